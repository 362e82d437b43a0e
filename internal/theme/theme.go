package theme

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-notifier/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the run summary title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// PanelStyle wraps the summary counts.
var PanelStyle = lipgloss.NewStyle().
	Padding(0, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// LabelStyle is used for count labels.
var LabelStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Width(10)

// LinkStyle renders page URLs.
var LinkStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Underline(true)

// WarningStyle highlights the overdue section heading.
var WarningStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorYellow)

// ErrorStyle highlights failures.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// CountStyle returns the style for a summary count. Zero counts are muted
// and any failure is red.
func CountStyle(label string, n int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch {
	case n == 0:
		return base.Foreground(ColorGray)
	case label == "failed":
		return base.Foreground(ColorRed)
	case label == "skipped":
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorGreen)
	}
}

// KindStyle returns a color-coded label style for a record kind.
func KindStyle(kind model.Kind) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch kind {
	case model.KindTask:
		return base.Foreground(ColorBlue)
	case model.KindMeeting:
		return base.Foreground(ColorMagenta)
	default:
		return base.Foreground(ColorGray)
	}
}

// Form returns the huh theme used by confirmation prompts.
func Form() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Base = t.Focused.Base.BorderForeground(ColorBorder)
	t.Focused.Card = t.Focused.Base
	t.Focused.Title = t.Focused.Title.Foreground(ColorBlue).Bold(true)
	t.Focused.NoteTitle = t.Focused.NoteTitle.Foreground(ColorBlue).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(ColorWhite)
	t.Focused.SelectSelector = t.Focused.SelectSelector.Foreground(ColorMagenta)
	t.Focused.Option = t.Focused.Option.Foreground(ColorWhite)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(ColorGreen)

	t.Blurred = t.Focused
	t.Blurred.Base = t.Focused.Base.BorderStyle(lipgloss.HiddenBorder())
	t.Blurred.Card = t.Blurred.Base

	return t
}
