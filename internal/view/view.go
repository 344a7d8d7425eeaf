package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rivo/uniseg"

	"github.com/oukeidos/lapsectl/internal/apperrors"
	"github.com/oukeidos/lapsectl/internal/catalog"
	"github.com/oukeidos/lapsectl/internal/reconciler"
	"github.com/oukeidos/lapsectl/internal/remote"
	"github.com/oukeidos/lapsectl/internal/settings"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	frameStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

// Status renders the control panel for a reconciler snapshot.
func Status(s reconciler.State, now time.Time) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Timelapse"))
	b.WriteString("\n")

	switch s.Phase() {
	case reconciler.PhaseRunning:
		row(&b, "State", runningStyle.Render("running"))
	case reconciler.PhaseError:
		row(&b, "State", errorStyle.Render("idle (last action failed)"))
	default:
		row(&b, "State", idleStyle.Render("idle"))
	}

	row(&b, "Frequency", s.Settings.Frequency.Label)
	row(&b, "Duration", s.Settings.Duration.Label)
	row(&b, "Resolution", s.Settings.Resolution.Label)

	frames, err := s.ExpectedFrames()
	switch {
	case err != nil && apperrors.IsInvariant(err):
		row(&b, "Expected", errorStyle.Render("invalid settings: "+err.Error()))
	case s.Run.Running:
		row(&b, "Frames", fmt.Sprintf("%d / %d", s.Run.FrameCount, frames))
	default:
		row(&b, "Expected", fmt.Sprintf("%d frames", frames))
	}
	if s.FrequencyTooHigh() {
		row(&b, "", warnStyle.Render("capture interval is longer than the session"))
	}

	if remaining, ok := s.Remaining(now); ok {
		row(&b, "Ends", fmt.Sprintf("%s (in %s)", s.Run.EndTime.Local().Format("2006-01-02 15:04:05"), remaining.Round(time.Second)))
	}
	if s.Run.LatestFrame != nil {
		row(&b, "Last frame", s.Run.LatestFrame.Local().Format("15:04:05"))
	}
	if s.Run.Err != "" {
		row(&b, "Error", errorStyle.Render(s.Run.Err))
	}
	return frameStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(pad(label, 11)))
	b.WriteString(" ")
	b.WriteString(value)
	b.WriteString("\n")
}

// Options lists the catalog of one setting, marking the current selection.
func Options(d settings.Dimension, c *catalog.Catalog, current catalog.Option) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(string(d)))
	b.WriteString("\n")
	for _, o := range c.Options() {
		mark := " "
		if o.Value == current.Value {
			mark = "*"
		}
		fmt.Fprintf(&b, " %s %s %s\n", mark, pad(o.Label, 12), labelStyle.Render(o.Value.String()))
	}
	return b.String()
}

// Library renders the completed timelapses as an aligned table.
func Library(items []remote.Timelapse) string {
	if len(items) == 0 {
		return idleStyle.Render("No timelapses yet.")
	}
	nameWidth := uniseg.StringWidth("Name")
	for _, t := range items {
		if w := uniseg.StringWidth(t.Name); w > nameWidth {
			nameWidth = w
		}
	}

	var b strings.Builder
	header := fmt.Sprintf("%s  %s  %s  %s", pad("Name", nameWidth), pad("Date", 19), pad("Frames", 6), "ID")
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")
	for _, t := range items {
		fmt.Fprintf(&b, "%s  %s  %6d  %s\n", pad(t.Name, nameWidth), pad(t.Date, 19), t.Frames, labelStyle.Render(t.ID))
	}
	return strings.TrimRight(b.String(), "\n")
}

// pad right-fills s to width terminal cells. fmt's %-*s counts bytes, which
// misaligns accented or wide labels.
func pad(s string, width int) string {
	w := uniseg.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
