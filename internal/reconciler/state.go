package reconciler

import (
	"time"

	"github.com/oukeidos/lapsectl/internal/settings"
)

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhaseError   Phase = "error"
)

// RunState is the local record of the remote job.
// EndTime and LatestFrame are nil when no job is known to be running.
type RunState struct {
	Running     bool
	EndTime     *time.Time
	FrameCount  int
	LatestFrame *time.Time
	// Err holds the most recent failure message, if any.
	Err string
}

// State is a consistent copy of everything the control surface shows.
type State struct {
	Settings settings.Settings
	Run      RunState
}

func (s State) Phase() Phase {
	switch {
	case s.Run.Running:
		return PhaseRunning
	case s.Run.Err != "":
		return PhaseError
	default:
		return PhaseIdle
	}
}

// ExpectedFrames is recomputed on every call.
func (s State) ExpectedFrames() (int, error) {
	return settings.ExpectedFrames(s.Settings)
}

func (s State) FrequencyTooHigh() bool {
	return settings.IsFrequencyTooHigh(s.Settings)
}

// Remaining is the time left until EndTime, clamped at zero.
func (s State) Remaining(now time.Time) (time.Duration, bool) {
	if !s.Run.Running || s.Run.EndTime == nil {
		return 0, false
	}
	d := s.Run.EndTime.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}

// NeedsStatus reports whether a poller should reload the full status rather
// than frame progress. Only the status call can see the job finish, so it is
// needed once the end time has passed or when the service never reported one.
func (s State) NeedsStatus(now time.Time) bool {
	if !s.Run.Running {
		return false
	}
	remaining, ok := s.Remaining(now)
	return !ok || remaining == 0
}

func cloneRun(r RunState) RunState {
	out := r
	if r.EndTime != nil {
		t := *r.EndTime
		out.EndTime = &t
	}
	if r.LatestFrame != nil {
		t := *r.LatestFrame
		out.LatestFrame = &t
	}
	return out
}
