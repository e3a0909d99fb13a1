package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Styles is the palette used by every command.
var Styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

// NewPalette builds a palette from foreground colors for titles, success, errors, warnings and hints.
func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewStyle(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func (p *Palette) Title(format string, args ...any) string { return render(p.title, format, args) }
func (p *Palette) OK(format string, args ...any) string    { return render(p.ok, format, args) }
func (p *Palette) Err(format string, args ...any) string   { return render(p.err, format, args) }
func (p *Palette) Warn(format string, args ...any) string  { return render(p.warn, format, args) }
func (p *Palette) Help(format string, args ...any) string  { return render(p.help, format, args) }

func render(style lipgloss.Style, format string, args []any) string {
	return style.Render(fmt.Sprintf(format, args...))
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
