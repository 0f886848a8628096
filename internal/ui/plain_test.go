package ui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer_UpdateProgress_OutputFormat(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: updating progress
	r.UpdateProgress(ProgressEvent{
		Stage:       StageIndexing,
		Source:      "notes",
		Current:     5,
		Total:       10,
		CurrentFile: "/home/me/notes/2026-01-02.md",
	})

	// Then: output is correctly formatted
	assert.Equal(t, "[INDEX] notes 5/10 - /home/me/notes/2026-01-02.md\n", buf.String())
}

func TestPlainRenderer_UpdateProgress_MessageWithoutTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.UpdateProgress(ProgressEvent{Stage: StageReading, Source: "transcripts", Message: "reading"})
	r.UpdateProgress(ProgressEvent{Stage: StageReading}) // nothing to say

	assert.Equal(t, "[READ] transcripts reading\n", buf.String())
}

func TestPlainRenderer_NoANSICodes(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: rendering every stage and a summary
	for _, stage := range []Stage{StageReading, StageIndexing, StageReconciling, StageComplete} {
		r.UpdateProgress(ProgressEvent{Stage: stage, Current: 1, Total: 2, Message: "x"})
	}
	r.Complete(CompletionStats{Mode: "full", Added: 1, Chunks: 3})

	// Then: output contains no ANSI escape codes
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestPlainRenderer_AddError(t *testing.T) {
	tests := []struct {
		name  string
		event ErrorEvent
		want  string
	}{
		{"error with file", ErrorEvent{File: "a.md", Err: errors.New("unreadable")}, "ERROR: a.md: unreadable\n"},
		{"warning with file", ErrorEvent{File: "t.jsonl", Err: errors.New("bad line"), IsWarn: true}, "WARN: t.jsonl: bad line\n"},
		{"no file", ErrorEvent{Err: errors.New("boom")}, "ERROR: boom\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			r := NewPlainRenderer(NewConfig(buf))
			r.AddError(tt.event)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPlainRenderer_Complete(t *testing.T) {
	// Given: a finished incremental run
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: completing
	r.Complete(CompletionStats{
		Mode:      "incremental",
		Added:     1200,
		Updated:   2,
		Unchanged: 5,
		Removed:   1,
		Failed:    1,
		Chunks:    4321,
		Warnings:  3,
		Duration:  1500 * time.Millisecond,
		Embedder:  EmbedderInfo{Model: "nomic-embed-text", Dimensions: 768},
	})

	// Then: counts are humanized and every outcome is listed
	out := buf.String()
	assert.Contains(t, out, "Complete (incremental): 1,208 documents, 4,321 chunks written in 1.5s")
	assert.Contains(t, out, "added 1200, updated 2, unchanged 5, removed 1, failed 1, 3 warnings")
	assert.Contains(t, out, "Embedder: nomic-embed-text (768 dims)")
}

func TestPlainRenderer_StartStop(t *testing.T) {
	r := NewPlainRenderer(NewConfig(&bytes.Buffer{}))
	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop())
}

func TestPlainRenderer_ThreadSafe(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.UpdateProgress(ProgressEvent{Stage: StageIndexing, Current: i, Total: 20, CurrentFile: fmt.Sprint(i)})
			r.AddError(ErrorEvent{Err: errors.New("x"), IsWarn: true})
		}()
	}
	wg.Wait()

	assert.Len(t, r.errors, 20)
}
