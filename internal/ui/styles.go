package ui

import "github.com/charmbracelet/lipgloss"

// ANSI 256 palette.
const (
	ColorAccent = "81"  // sky blue
	ColorText   = "252" // source labels
	ColorMuted  = "244" // secondary text
	ColorFaint  = "240" // hints, pending rows
	ColorOK     = "78"
	ColorWarn   = "214"
	ColorFail   = "203"
)

// Styles are the lipgloss styles of the live view.
type Styles struct {
	Header  lipgloss.Style
	Active  lipgloss.Style
	Label   lipgloss.Style
	Dim     lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Header:  fg(ColorAccent).Bold(true),
		Active:  fg(ColorText),
		Label:   fg(ColorMuted),
		Dim:     fg(ColorFaint),
		Success: fg(ColorOK),
		Warning: fg(ColorWarn),
		Error:   fg(ColorFail).Bold(true),
	}
}

// NoColorStyles returns styles that render text unchanged.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:  plain,
		Active:  plain,
		Label:   plain,
		Dim:     plain,
		Success: plain,
		Warning: plain,
		Error:   plain,
	}
}

// GetStyles picks the style set for the color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
