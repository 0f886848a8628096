package index

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Aman-CERP/agentmemory/internal/config"
	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
	"github.com/Aman-CERP/agentmemory/internal/source"
	"github.com/Aman-CERP/agentmemory/internal/store"
)

// DefaultIngestSource labels ingested text that names no source.
const DefaultIngestSource = "manual"

// IngestRequest is raw text plus its metadata.
type IngestRequest struct {
	AgentID    string
	Content    string
	Source     string
	SourcePath string
	SourceDate time.Time
	Importance string
	Tags       []string
}

// IngestFileRequest names a file to ingest whole.
type IngestFileRequest struct {
	AgentID string
	Path    string
	// Source defaults to single_file.
	Source string
	// SourceDate overrides the date taken from the file name or mtime.
	SourceDate time.Time
	Importance string
	Tags       []string
}

// Ingest chunks, embeds and inserts text, returning the new chunk ids.
// The chunks of one request are written in one transaction.
func (m *Manager) Ingest(ctx context.Context, req IngestRequest) ([]string, error) {
	label := strings.TrimSpace(req.Source)
	if label == "" {
		label = DefaultIngestSource
	}
	doc := source.Document{
		Text:  req.Content,
		Label: label,
		Path:  req.SourcePath,
		Date:  req.SourceDate,
	}
	return m.ingest(ctx, req.AgentID, doc, req.Importance, req.Tags)
}

// IngestFile reads path and ingests its content. The file's fingerprint
// is stored with the chunks.
func (m *Manager) IngestFile(ctx context.Context, req IngestFileRequest) ([]string, error) {
	if strings.TrimSpace(req.Path) == "" {
		return nil, amerrors.New(amerrors.ErrCodeInvalidInput, "file path is required", nil)
	}
	label := strings.TrimSpace(req.Source)
	if label == "" {
		label = config.SourceSingleFile
	}
	doc, err := source.ReadFile(config.ExpandHome(req.Path), label)
	if err != nil {
		return nil, err
	}
	if !req.SourceDate.IsZero() {
		doc.Date = req.SourceDate
	}
	return m.ingest(ctx, req.AgentID, doc, req.Importance, req.Tags)
}

func (m *Manager) ingest(ctx context.Context, agentID string, doc source.Document, importance string, tags []string) ([]string, error) {
	agentID = normalizeAgent(agentID)
	if strings.TrimSpace(importance) == "" {
		importance = store.DefaultImportance
	}

	chunks, err := m.buildChunks(ctx, agentID, doc, importance, tags)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, amerrors.New(amerrors.ErrCodeInvalidInput, "no content to ingest", nil)
	}
	if err := m.store.Insert(ctx, chunks); err != nil {
		return nil, err
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	slog.Info("ingest_complete",
		slog.String("agent_id", agentID),
		slog.String("source", doc.Label),
		slog.String("path", doc.Path),
		slog.Int("chunks", len(ids)))
	return ids, nil
}
