// Package chunk splits document text into fixed-size overlapping windows.
package chunk

// Chunk size defaults, in characters.
const (
	DefaultSize      = 800
	DefaultOverlap   = 120 // 15% of DefaultSize
	DefaultTolerance = 80
)

// Options configures a Chunker.
type Options struct {
	// Size is the maximum window length in characters (runes).
	Size int
	// Overlap is the exact number of characters shared by consecutive windows.
	Overlap int
	// Tolerance is how far before the hard cut a natural breakpoint may be taken.
	// Zero disables breakpoint search.
	Tolerance int
}

// DefaultOptions returns the default chunking options.
func DefaultOptions() Options {
	return Options{
		Size:      DefaultSize,
		Overlap:   DefaultOverlap,
		Tolerance: DefaultTolerance,
	}
}

// Window is one chunk of a document. Start and End are rune offsets into
// the trimmed document text, End exclusive.
type Window struct {
	Index int
	Start int
	End   int
	Text  string
}

// Len returns the window length in runes.
func (w Window) Len() int {
	return w.End - w.Start
}
