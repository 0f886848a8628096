package chunk

import (
	"fmt"
	"iter"
	"strings"
	"unicode"

	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
)

// Chunker walks text in windows of Size runes. Each window after the
// first starts Overlap runes before the previous one ended, so stripping
// the first Overlap runes of every window but the first and
// concatenating reconstructs the input exactly.
type Chunker struct {
	opts Options
}

// New validates opts and returns a Chunker.
func New(opts Options) (*Chunker, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{opts: opts}, nil
}

// Validate checks the option invariants.
func (o Options) Validate() error {
	switch {
	case o.Size < 1:
		return amerrors.New(amerrors.ErrCodeInvalidChunking,
			fmt.Sprintf("chunk size must be at least 1, got %d", o.Size), nil)
	case o.Overlap < 0:
		return amerrors.New(amerrors.ErrCodeInvalidChunking,
			fmt.Sprintf("chunk overlap must be non-negative, got %d", o.Overlap), nil)
	case o.Overlap >= o.Size:
		return amerrors.New(amerrors.ErrCodeInvalidChunking,
			fmt.Sprintf("chunk overlap (%d) must be smaller than chunk size (%d)", o.Overlap, o.Size), nil).
			WithSuggestion("lower chunking.overlap or raise chunking.size")
	case o.Tolerance < 0:
		return amerrors.New(amerrors.ErrCodeInvalidChunking,
			fmt.Sprintf("chunk tolerance must be non-negative, got %d", o.Tolerance), nil)
	}
	return nil
}

// Options returns the chunker's options.
func (c *Chunker) Options() Options {
	return c.opts
}

// Windows returns the windows of text as a lazy sequence. The text is
// trimmed first; blank text yields nothing. The sequence can be ranged
// over any number of times.
func (c *Chunker) Windows(text string) iter.Seq[Window] {
	return func(yield func(Window) bool) {
		runes := []rune(strings.TrimSpace(text))
		n := len(runes)
		if n == 0 {
			return
		}

		start := 0
		for i := 0; ; i++ {
			end := min(start+c.opts.Size, n)
			if end < n {
				end = c.breakpoint(runes, start, end)
			}

			w := Window{Index: i, Start: start, End: end, Text: string(runes[start:end])}
			if !yield(w) {
				return
			}
			if end == n {
				return
			}
			start = end - c.opts.Overlap
		}
	}
}

// Chunk collects all windows of text.
func (c *Chunker) Chunk(text string) []Window {
	var out []Window
	for w := range c.Windows(text) {
		out = append(out, w)
	}
	return out
}

// breakpoint picks the cut position for a window [start, end). It looks
// back at most Tolerance runes for, in order of preference, a paragraph
// break, a line break, a sentence end and any whitespace. The cut always
// leaves the window longer than Overlap so the walk makes progress.
func (c *Chunker) breakpoint(r []rune, start, end int) int {
	lo := max(end-c.opts.Tolerance, start+c.opts.Overlap+1)
	if lo > end {
		return end
	}

	matchers := []func(p int) bool{
		func(p int) bool { return p-2 >= start && r[p-2] == '\n' && r[p-1] == '\n' },
		func(p int) bool { return r[p-1] == '\n' },
		func(p int) bool { return p-2 >= start && isSentenceEnd(r[p-2]) && unicode.IsSpace(r[p-1]) },
		func(p int) bool { return unicode.IsSpace(r[p-1]) },
	}
	for _, match := range matchers {
		for p := end; p >= lo; p-- {
			if match(p) {
				return p
			}
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
