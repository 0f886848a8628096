package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCmd_HTTPStopsOnCancel(t *testing.T) {
	// Given: a context that is already cancelled
	h := newTestHome(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--config", h.config, "serve", "--addr", "127.0.0.1:0"})

	// When: serving HTTP
	err := cmd.ExecuteContext(ctx)
	_ = stopLogging(nil, nil)

	// Then: the server starts and shuts down cleanly
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Serving agent memory on http://127.0.0.1:0 (agent tester)")
}

func TestServeCmd_Flags(t *testing.T) {
	serve := newServeCmd()

	assert.NotNil(t, serve.Flags().Lookup("mcp"))
	assert.NotNil(t, serve.Flags().Lookup("addr"))
}
