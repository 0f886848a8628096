package source

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/agentmemory/internal/config"
	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
)

// TS01: Both record shapes normalize to the same document
func TestParseTranscript_FlatAndNestedShapes(t *testing.T) {
	// Given: one flat and one nested record
	input := `{"role":"user","content":"Hello"}
{"type":"message","message":{"role":"assistant","content":[{"type":"text","text":"Hi!"}]}}
`

	// When: parsing and joining
	turns, warnings, err := ParseTranscript(strings.NewReader(input))

	// Then: two turns joined by a newline
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, turns, 2)
	assert.Equal(t, Turn{Role: "user", Text: "Hello"}, turns[0])
	assert.Equal(t, Turn{Role: "assistant", Text: "Hi!"}, turns[1])
	assert.Equal(t, "Hello\nHi!", JoinTurns(turns))
}

func TestParseTranscript_OnlyTextPartsContribute(t *testing.T) {
	input := `{"type":"message","message":{"role":"assistant","content":[
{"type":"thinking","thinking":"hmm"},
{"type":"text","text":"first"},
{"type":"tool_use","name":"grep","input":{}},
{"type":"text","text":"second"}]}}`
	input = strings.ReplaceAll(input, "\n", "")

	turns, _, err := ParseTranscript(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "first second", turns[0].Text)
}

func TestParseTranscript_SkipsMalformedLinesWithWarning(t *testing.T) {
	input := `{"role":"user","content":"kept"}
{not json
{"role":"assistant","content":42}

{"role":"assistant","content":"also kept"}
`

	turns, warnings, err := ParseTranscript(strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, "kept\nalso kept", JoinTurns(turns))
	require.Len(t, warnings, 2)
	for _, w := range warnings {
		assert.Equal(t, amerrors.ErrCodeMalformedLine, amerrors.GetCode(w))
		assert.True(t, amerrors.IsParse(w))
	}
}

func TestParseTranscript_IgnoresNonConversationalRecords(t *testing.T) {
	input := `{"type":"summary","summary":"x"}
{"role":"system","content":"you are helpful"}
{"role":"tool","content":"output"}
{"type":"message","message":{"role":"user","content":[{"type":"tool_result","content":"r"}]}}
{"role":"user","content":"   "}
`

	turns, warnings, err := ParseTranscript(strings.NewReader(input))

	require.NoError(t, err)
	assert.Empty(t, turns)
	assert.Empty(t, warnings)
}

func TestTranscriptDir_OneDocumentPerFile(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "2024-05-01-session.jsonl"),
		`{"role":"user","content":"Hello"}`+"\n"+`{"role":"assistant","content":"Hi!"}`+"\n")
	write(t, filepath.Join(dir, "broken.jsonl"), "{oops\n"+`{"role":"user","content":"still here"}`+"\n")
	write(t, filepath.Join(dir, "empty.jsonl"), `{"type":"summary"}`+"\n")
	write(t, filepath.Join(dir, "readme.md"), "not a transcript")

	res := read(t, Descriptor{Path: dir, Type: config.SourceTranscriptDir, Label: "sessions"})

	require.Len(t, res.Documents, 2)
	assert.Equal(t, "Hello\nHi!", res.Documents[0].Text)
	assert.Equal(t, "2024-05-01", res.Documents[0].Date.Format("2006-01-02"))
	assert.Equal(t, "sessions", res.Documents[0].Label)
	assert.Equal(t, "still here", res.Documents[1].Text)
	require.Len(t, res.Warnings, 1)
	me, ok := amerrors.As(res.Warnings[0])
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "broken.jsonl"), me.Details["path"])
}
