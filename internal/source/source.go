// Package source reads ingestible documents from configured origins.
//
// The set of source types is closed: markdown_dir, single_file and
// transcript_dir. New dispatches on the descriptor's type tag.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/Aman-CERP/agentmemory/internal/config"
	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
)

// Descriptor identifies one ingestible origin.
type Descriptor struct {
	Path      string
	Type      string
	Label     string
	Recursive bool
}

// FromConfig converts a configured source.
func FromConfig(sc config.SourceConfig) Descriptor {
	return Descriptor{
		Path:      sc.Path,
		Type:      sc.Type,
		Label:     sc.Label(),
		Recursive: sc.Recursive,
	}
}

// SourceLabel returns the label stored on chunks from this source.
func (d Descriptor) SourceLabel() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Type
}

// WatchDir returns the directory whose changes affect this source.
func (d Descriptor) WatchDir() string {
	if d.Type == config.SourceSingleFile {
		return filepath.Dir(d.Path)
	}
	return d.Path
}

// Document is one input unit handed to the chunker.
type Document struct {
	Text  string
	Label string
	Path  string
	// Date is the calendar date of the content; zero when unknown.
	Date time.Time

	// Fingerprint inputs.
	ModTime time.Time
	Hash    string
}

// Failure records a document that could not be read or parsed.
type Failure struct {
	Path string
	Err  error
}

// Result is everything one adapter read.
type Result struct {
	Documents []Document
	// Failures are per-file parse errors; the other files were still read.
	Failures []Failure
	// Warnings are recoverable problems inside otherwise readable files,
	// such as malformed transcript lines.
	Warnings []error
}

// Adapter reads the documents of one source.
type Adapter interface {
	Descriptor() Descriptor
	// Read enumerates and reads every document. It returns an error only
	// when the source as a whole is unusable (missing path); per-file
	// problems are reported in the Result.
	Read(ctx context.Context) (*Result, error)
}

// New returns the adapter for d.Type.
func New(d Descriptor) (Adapter, error) {
	switch d.Type {
	case config.SourceMarkdownDir:
		return &markdownDir{desc: d}, nil
	case config.SourceSingleFile:
		return &singleFile{desc: d}, nil
	case config.SourceTranscriptDir:
		return &transcriptDir{desc: d}, nil
	default:
		return nil, amerrors.New(amerrors.ErrCodeUnknownSourceType,
			fmt.Sprintf("unknown source type %q", d.Type), nil).
			WithSuggestion("use markdown_dir, single_file or transcript_dir")
	}
}

var datePattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)

// DateFromName returns the first valid YYYY-MM-DD date in the file name.
func DateFromName(path string) (time.Time, bool) {
	for _, m := range datePattern.FindAllString(filepath.Base(path), -1) {
		if d, err := time.Parse(time.DateOnly, m); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// documentDate prefers a date in the file name and falls back to the
// modification date.
func documentDate(path string, mod time.Time) time.Time {
	if d, ok := DateFromName(path); ok {
		return d
	}
	y, m, day := mod.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// HashContent returns the hex sha256 of data.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// statSource fails with a config error when the source path is missing.
func statSource(d Descriptor) (os.FileInfo, error) {
	info, err := os.Stat(d.Path)
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeSourceNotFound,
			fmt.Sprintf("source path %s (%s) not found", d.Path, d.Type), err).
			WithDetail("path", d.Path)
	}
	return info, nil
}

// checkPath stats d.Path and checks it is a directory, or a plain file
// for single_file sources.
func checkPath(d Descriptor) (os.FileInfo, error) {
	info, err := statSource(d)
	if err != nil {
		return nil, err
	}
	wantDir := d.Type != config.SourceSingleFile
	switch {
	case wantDir && !info.IsDir():
		return nil, amerrors.ConfigError(fmt.Sprintf("%s source %s is not a directory", d.Type, d.Path), nil)
	case !wantDir && info.IsDir():
		return nil, amerrors.ConfigError(fmt.Sprintf("%s source %s is a directory", d.Type, d.Path), nil)
	}
	return info, nil
}

// Validate checks the type and path of every descriptor. Callers run it
// before their first write so a bad entry leaves the store untouched.
func Validate(sources []Descriptor) error {
	for _, d := range sources {
		if _, err := New(d); err != nil {
			return err
		}
		if _, err := checkPath(d); err != nil {
			return err
		}
	}
	return nil
}

// ReadFile reads one file as a plain-text document. It backs the
// single_file adapter and file ingestion.
func ReadFile(path, label string) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, amerrors.New(amerrors.ErrCodeSourceNotFound,
			fmt.Sprintf("file %s not found", path), err).WithDetail("path", path)
	}
	if info.IsDir() {
		return Document{}, amerrors.New(amerrors.ErrCodeInvalidInput,
			fmt.Sprintf("%s is a directory", path), nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, amerrors.ParseError(fmt.Sprintf("cannot read %s", path), err)
	}
	return Document{
		Text:    string(data),
		Label:   label,
		Path:    absPath(path),
		Date:    documentDate(path, info.ModTime()),
		ModTime: info.ModTime(),
		Hash:    HashContent(data),
	}, nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
