package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
)

// maxLineSize bounds one JSONL record. Tool outputs embedded in
// transcripts can be large.
const maxLineSize = 16 * 1024 * 1024

// Turn is one normalized conversation message.
type Turn struct {
	Role string
	Text string
}

// ParseTranscript reads JSONL records and normalizes both accepted shapes
//
//	{"role": "user", "content": "..."}
//	{"type": "message", "message": {"role": "...", "content": [{"type": "text", "text": "..."}]}}
//
// to turns. Only user and assistant turns are kept, and only text parts
// contribute. Malformed lines are returned as warnings and skipped.
func ParseTranscript(r io.Reader) ([]Turn, []error, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var turns []Turn
	var warnings []error
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		turn, ok, err := parseRecord(line)
		if err != nil {
			warnings = append(warnings, amerrors.New(amerrors.ErrCodeMalformedLine,
				fmt.Sprintf("line %d: %s", lineNo, err.Error()), nil).
				WithDetail("line", fmt.Sprint(lineNo)))
			continue
		}
		if ok {
			turns = append(turns, turn)
		}
	}
	if err := sc.Err(); err != nil {
		return turns, warnings, err
	}
	return turns, warnings, nil
}

// parseRecord returns ok=false for well-formed records that carry no
// conversational text (summaries, tool calls, system messages).
func parseRecord(line []byte) (Turn, bool, error) {
	if !gjson.ValidBytes(line) {
		return Turn{}, false, fmt.Errorf("invalid JSON")
	}
	rec := gjson.ParseBytes(line)
	if !rec.IsObject() {
		return Turn{}, false, fmt.Errorf("record is not an object")
	}

	msg := rec
	if rec.Get("type").String() == "message" && rec.Get("message").IsObject() {
		msg = rec.Get("message")
	}

	role := msg.Get("role").String()
	if role != "user" && role != "assistant" {
		return Turn{}, false, nil
	}

	text, err := contentText(msg.Get("content"))
	if err != nil {
		return Turn{}, false, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, false, nil
	}
	return Turn{Role: role, Text: text}, true, nil
}

func contentText(content gjson.Result) (string, error) {
	switch {
	case !content.Exists() || content.Type == gjson.Null:
		return "", nil
	case content.Type == gjson.String:
		return content.String(), nil
	case content.IsArray():
		var parts []string
		content.ForEach(func(_, part gjson.Result) bool {
			if part.Get("type").String() == "text" {
				if t := strings.TrimSpace(part.Get("text").String()); t != "" {
					parts = append(parts, t)
				}
			}
			return true
		})
		return strings.Join(parts, " "), nil
	default:
		return "", fmt.Errorf("unsupported content type %s", content.Type)
	}
}

// JoinTurns renders turns as one document, one turn per line.
func JoinTurns(turns []Turn) string {
	texts := make([]string, len(turns))
	for i, t := range turns {
		texts[i] = t.Text
	}
	return strings.Join(texts, "\n")
}

type transcriptDir struct {
	desc Descriptor
}

func (a *transcriptDir) Descriptor() Descriptor { return a.desc }

func (a *transcriptDir) Read(ctx context.Context) (*Result, error) {
	if _, err := checkPath(a.desc); err != nil {
		return nil, err
	}

	files, err := listFiles(ctx, a.desc.Path, a.desc.Recursive, transcriptExts...)
	if err != nil {
		return nil, amerrors.ParseError(fmt.Sprintf("cannot list %s", a.desc.Path), err)
	}

	res := &Result{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		doc, warnings, err := readTranscript(f, a.desc.SourceLabel())
		for _, w := range warnings {
			if me, ok := amerrors.As(w); ok {
				me.WithDetail("path", f)
			}
			res.Warnings = append(res.Warnings, w)
		}
		if err != nil {
			res.Failures = append(res.Failures, Failure{Path: absPath(f), Err: err})
			continue
		}
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		res.Documents = append(res.Documents, doc)
	}
	return res, nil
}

func readTranscript(path, label string) (Document, []error, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, nil, amerrors.ParseError(fmt.Sprintf("cannot stat %s", path), err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, nil, amerrors.ParseError(fmt.Sprintf("cannot read %s", path), err)
	}

	turns, warnings, err := ParseTranscript(bytes.NewReader(data))
	if err != nil {
		return Document{}, warnings, amerrors.ParseError(fmt.Sprintf("cannot parse %s", path), err)
	}

	return Document{
		Text:    JoinTurns(turns),
		Label:   label,
		Path:    absPath(path),
		Date:    documentDate(path, info.ModTime()),
		ModTime: info.ModTime(),
		Hash:    HashContent(data),
	}, warnings, nil
}
