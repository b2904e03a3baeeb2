package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#1DB954", "#B3B3B3", "#E05252", "#FFA500", "#626262")

// Palette holds the overlay's named [lipgloss.Style] values.
type Palette struct {
	title  lipgloss.Style
	artist lipgloss.Style
	lyrics lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	panel  lipgloss.Style
}

// NewPalette builds a palette from accent, muted, error, warning and help colors.
func NewPalette(accent, muted, e, w, h string) *Palette {
	return &Palette{
		title:  NewBold(accent),
		artist: NewStyle(muted),
		lyrics: lipgloss.NewStyle(),
		ok:     NewBold(accent),
		err:    NewBold(e),
		warn:   NewStyle(w),
		help:   NewEm(h),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(h)).
			Padding(0, 1),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
