package main

import (
	"fmt"
	"time"

	"github.com/oukeidos/lapsectl/internal/catalog"
	"github.com/oukeidos/lapsectl/internal/reconciler"
	"github.com/oukeidos/lapsectl/internal/remote"
	"github.com/oukeidos/lapsectl/internal/settings"
)

func phaseText(s reconciler.State) string {
	switch s.Phase() {
	case reconciler.PhaseRunning:
		return "Recording"
	case reconciler.PhaseError:
		return "Idle (last request failed)"
	default:
		return "Idle"
	}
}

func framesText(s reconciler.State) string {
	expected, err := s.ExpectedFrames()
	if err != nil {
		return "Expected frames: unavailable"
	}
	if s.Run.Running {
		return fmt.Sprintf("Frames: %d / %d", s.Run.FrameCount, expected)
	}
	return fmt.Sprintf("Expected frames: %d", expected)
}

func warningText(s reconciler.State) string {
	if s.FrequencyTooHigh() {
		return "The capture interval is longer than the session."
	}
	return ""
}

func endText(s reconciler.State, now time.Time) string {
	remaining, ok := s.Remaining(now)
	if !ok {
		return ""
	}
	return fmt.Sprintf("Ends %s (%s left)", s.Run.EndTime.Local().Format("Jan 2 15:04:05"), remaining.Round(time.Second))
}

// controlsEnabled reports which of start and stop may be pressed.
func controlsEnabled(s reconciler.State) (start, stop bool) {
	return !s.Run.Running, s.Run.Running
}

func optionForLabel(d settings.Dimension, label string) (catalog.Option, bool) {
	c, err := settings.CatalogFor(d)
	if err != nil {
		return catalog.Option{}, false
	}
	return c.FindLabel(label)
}

func libraryRowText(t remote.Timelapse) string {
	return fmt.Sprintf("%s  ·  %s  ·  %d frames", t.Name, t.Date, t.Frames)
}
