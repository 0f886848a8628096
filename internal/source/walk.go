package source

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Aman-CERP/agentmemory/internal/config"
)

var (
	markdownExts   = []string{".md", ".markdown"}
	transcriptExts = []string{".jsonl"}
)

// listFiles returns the regular files under dir whose extension is in
// exts, sorted. Hidden entries are skipped.
func listFiles(ctx context.Context, dir string, recursive bool, exts ...string) ([]string, error) {
	match := func(name string) bool {
		ext := strings.ToLower(filepath.Ext(name))
		return slices.Contains(exts, ext)
	}

	var files []string
	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Type().IsRegular() && !isHidden(e.Name()) && match(e.Name()) {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
		return files, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if isHidden(d.Name()) && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && match(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// Covers reports whether a change to path can affect this source. For
// recursive sources an extensionless path may be a removed directory and
// is always covered.
func (d Descriptor) Covers(path string) bool {
	path = absPath(path)
	root := absPath(d.Path)
	if d.Type == config.SourceSingleFile {
		return path == root
	}

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) > 1 && !d.Recursive {
		return false
	}
	for _, part := range parts {
		if isHidden(part) {
			return false
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return d.Recursive
	}
	switch d.Type {
	case config.SourceMarkdownDir:
		return slices.Contains(markdownExts, ext)
	case config.SourceTranscriptDir:
		return slices.Contains(transcriptExts, ext)
	}
	return false
}
