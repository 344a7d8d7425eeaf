package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oukeidos/lapsectl/internal/apperrors"
	"github.com/oukeidos/lapsectl/internal/catalog"
	"github.com/oukeidos/lapsectl/internal/logger"
	"github.com/oukeidos/lapsectl/internal/remote"
	"github.com/oukeidos/lapsectl/internal/settings"
)

// API is the remote collaborator. *remote.Client implements it.
type API interface {
	Status(ctx context.Context) (*remote.Status, error)
	Start(ctx context.Context, req settings.StartRequest) error
	Stop(ctx context.Context) error
	FrameInfo(ctx context.Context) (*remote.FrameInfo, error)
}

// ErrStale is returned when a response arrived after a newer start or stop
// had already been issued. The response was discarded.
var ErrStale = errors.New("response superseded by a newer action")

const (
	msgStatus = "failed to get timelapse status"
	msgStart  = "failed to start timelapse"
	msgStop   = "failed to stop timelapse"
)

type Option func(*Reconciler)

// WithClock overrides time.Now, used for the locally computed end time and
// for the frame marker fallback.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// Reconciler keeps the local settings and run state in step with the service.
type Reconciler struct {
	api API
	now func() time.Time

	mu       sync.Mutex
	settings settings.Settings
	run      RunState
	// seq numbers every action; cmdSeq is the seq of the latest start/stop.
	seq       uint64
	cmdSeq    uint64
	listeners []func(State)
}

func New(api API, opts ...Option) *Reconciler {
	r := &Reconciler{
		api:      api,
		now:      time.Now,
		settings: settings.Defaults(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnChange registers fn to be called with a fresh snapshot after every
// state change. fn runs on the goroutine that caused the change.
func (r *Reconciler) OnChange(fn func(State)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Reconciler) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Reconciler) snapshotLocked() State {
	return State{Settings: r.settings, Run: cloneRun(r.run)}
}

// SetOption replaces one setting.
func (r *Reconciler) SetOption(d settings.Dimension, o catalog.Option) error {
	r.mu.Lock()
	err := r.settings.Set(d, o)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.notify()
	return nil
}

// Load fetches the authoritative status. When a job is running its progress
// and configuration replace the local view.
func (r *Reconciler) Load(ctx context.Context) error {
	seq := r.begin(false)
	st, err := r.api.Status(ctx)

	r.mu.Lock()
	if r.cmdSeq > seq {
		r.mu.Unlock()
		logger.Debug("Dropping stale status response", "seq", seq)
		return ErrStale
	}
	if err != nil {
		err = r.failLocked(msgStatus, err)
		r.mu.Unlock()
		r.notify()
		return err
	}

	before := r.phaseLocked()
	r.run.Running = st.Running
	if st.Running {
		r.run.FrameCount = st.FramesTaken
		if end, ok := remote.EpochTime(st.EndDate); ok {
			r.run.EndTime = &end
		}
		if marker, ok := remote.EpochTime(st.LatestFrameTime); ok {
			r.run.LatestFrame = &marker
		}
		if st.Config != nil {
			r.resolveLocked(settings.Frequency, st.Config.Frequency)
			r.resolveLocked(settings.Duration, st.Config.Duration)
			r.resolveLocked(settings.Resolution, st.Config.Resolution)
		}
	}
	running, frames := r.run.Running, r.run.FrameCount
	r.transitionLocked("load", before, seq)
	r.mu.Unlock()

	logger.Info("Timelapse status loaded", "running", running, "frames", frames)
	r.notify()
	return nil
}

// resolveLocked maps a reported value onto the catalog. A miss keeps the
// current selection.
func (r *Reconciler) resolveLocked(d settings.Dimension, v catalog.Value) {
	c, err := settings.CatalogFor(d)
	if err != nil {
		return
	}
	o, ok := c.Find(v)
	if !ok {
		logger.Debug("Reported value not in catalog; keeping selection", "setting", string(d), "value", v.String())
		return
	}
	_ = r.settings.Set(d, o)
}

// Start asks the service to begin a job with the current settings. On
// success the end time is computed from the local clock.
func (r *Reconciler) Start(ctx context.Context) error {
	seq := r.begin(true)
	r.mu.Lock()
	req := r.settings.Payload()
	r.mu.Unlock()

	err := r.api.Start(ctx, req)

	r.mu.Lock()
	if r.cmdSeq != seq {
		r.mu.Unlock()
		logger.Debug("Dropping stale start response", "seq", seq)
		return ErrStale
	}
	if err != nil {
		err = r.failLocked(msgStart, err)
		r.mu.Unlock()
		r.notify()
		return err
	}
	before := r.phaseLocked()
	r.run.Running = true
	r.run.Err = ""
	r.run.EndTime = nil
	if secs, ok := req.Duration.Float(); ok {
		end := r.now().Add(time.Duration(secs * float64(time.Second)))
		r.run.EndTime = &end
	}
	r.transitionLocked("start", before, seq)
	r.mu.Unlock()

	logger.Info("Timelapse started", "frequency", req.Frequency.String(), "duration", req.Duration.String(), "resolution", req.Resolution.String())
	r.notify()
	return nil
}

// Stop asks the service to end the job. The local view goes idle even when
// the call fails: the service may already have stopped on its own.
func (r *Reconciler) Stop(ctx context.Context) error {
	seq := r.begin(true)
	err := r.api.Stop(ctx)

	r.mu.Lock()
	if r.cmdSeq != seq {
		r.mu.Unlock()
		logger.Debug("Dropping stale stop response", "seq", seq)
		return ErrStale
	}
	before := r.phaseLocked()
	if err != nil {
		err = r.failLocked(msgStop, err)
		r.run.Running = false
		r.transitionLocked("stop", before, seq)
		r.mu.Unlock()
		r.notify()
		return err
	}
	r.run.Running = false
	r.run.EndTime = nil
	r.run.FrameCount = 0
	r.run.LatestFrame = nil
	r.transitionLocked("stop", before, seq)
	r.mu.Unlock()

	logger.Info("Timelapse stopped")
	r.notify()
	return nil
}

// Refresh pulls frame progress without touching the run/idle state.
func (r *Reconciler) Refresh(ctx context.Context) error {
	seq := r.begin(false)
	info, err := r.api.FrameInfo(ctx)

	r.mu.Lock()
	if r.cmdSeq > seq {
		r.mu.Unlock()
		logger.Debug("Dropping stale frame-info response", "seq", seq)
		return ErrStale
	}
	if err != nil {
		err = r.failLocked(msgStatus, err)
		r.mu.Unlock()
		r.notify()
		return err
	}
	r.run.FrameCount = info.FramesTaken
	if marker, ok := remote.EpochTime(info.LatestFrameTime); ok {
		r.run.LatestFrame = &marker
	}
	r.transitionLocked("refresh", r.phaseLocked(), seq)
	r.mu.Unlock()

	r.notify()
	return nil
}

// FrameMarker is the cache-busting value for the latest-frame image: the
// capture time of the newest frame, or the current time when none is known.
func (r *Reconciler) FrameMarker() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run.LatestFrame != nil {
		return r.run.LatestFrame.Unix()
	}
	return r.now().Unix()
}

func (r *Reconciler) begin(command bool) uint64 {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	if command {
		r.cmdSeq = seq
	}
	r.run.Err = ""
	r.mu.Unlock()
	r.notify()
	return seq
}

func (r *Reconciler) failLocked(prefix string, cause error) error {
	if apperrors.IsInvariant(cause) {
		logger.Error("Invariant violated", "action", prefix, "error", cause)
	}
	err := fmt.Errorf("%s: %w", prefix, cause)
	r.run.Err = err.Error()
	logger.Warn("Timelapse action failed", "error", r.run.Err)
	return err
}

func (r *Reconciler) phaseLocked() Phase {
	return State{Run: r.run}.Phase()
}

// transitionLocked logs the outcome of an applied response. Phase changes
// log at info, progress-only updates at debug.
func (r *Reconciler) transitionLocked(action string, before Phase, seq uint64) {
	fields := []any{"frames", r.run.FrameCount}
	if r.run.EndTime != nil {
		fields = append(fields, "end", r.run.EndTime.UTC().Format(time.RFC3339))
	}
	if r.run.Err != "" {
		fields = append(fields, "error", r.run.Err)
	}
	logger.Transition(action, string(before), string(r.phaseLocked()), seq, fields...)
}

func (r *Reconciler) notify() {
	r.mu.Lock()
	if len(r.listeners) == 0 {
		r.mu.Unlock()
		return
	}
	snap := r.snapshotLocked()
	listeners := append(make([]func(State), 0, len(r.listeners)), r.listeners...)
	r.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}
