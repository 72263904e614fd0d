package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	colorTitle = "#7D56F4"
	colorOK    = "#04B575"
	colorErr   = "#FF0000"
	colorWarn  = "#FFA500"
	colorHelp  = "#626262"
	colorTempo = "#1DB954"
)

// Palette is a small stylesheet built with named [lipgloss.Style] fields.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	tempo lipgloss.Style
	rule  lipgloss.Style
}

// NewPalette creates a palette whose color profile is detected from w.
func NewPalette(w io.Writer) *Palette {
	r := lipgloss.NewRenderer(w)
	style := func(fg string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(fg))
	}
	return &Palette{
		title: style(colorTitle).Bold(true),
		ok:    style(colorOK).Bold(true),
		err:   style(colorErr).Bold(true),
		warn:  style(colorWarn),
		help:  style(colorHelp).Italic(true),
		tempo: style(colorTempo).Bold(true),
		rule:  style(colorHelp),
	}
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render(s) }
func (p *Palette) Err(s string) string   { return p.err.Render(s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *Palette) Help(s string) string  { return p.help.Render(s) }

// BPM renders a tempo label, or a muted "?" when bpm is not positive.
func (p *Palette) BPM(bpm int) string {
	if bpm <= 0 {
		return p.help.Render("? bpm")
	}
	return p.tempo.Render(fmt.Sprintf("%d bpm", bpm))
}

// Header renders title between two rules of the same width.
func (p *Palette) Header(title string) string {
	line := p.rule.Render(strings.Repeat("═", max(39, lipgloss.Width(title))))
	return line + "\n" + p.title.Render(title) + "\n" + line + "\n"
}
