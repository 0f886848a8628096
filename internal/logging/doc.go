// Package logging configures structured slog output for agentmemory.
//
// Logs are JSON lines written to ~/.agentmemory/logs/agentmemory.log with
// size-based rotation. The --debug flag lowers the level to debug and
// mirrors output to stderr. MCP stdio mode never writes to stderr or
// stdout.
package logging
