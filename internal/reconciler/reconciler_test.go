package reconciler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oukeidos/lapsectl/internal/apperrors"
	"github.com/oukeidos/lapsectl/internal/catalog"
	"github.com/oukeidos/lapsectl/internal/remote"
	"github.com/oukeidos/lapsectl/internal/settings"
)

type fakeAPI struct {
	mu sync.Mutex

	status    *remote.Status // returned by Status
	statusErr error
	startErr  error
	stopErr   error
	frameInfo *remote.FrameInfo
	frameErr  error

	startReqs []settings.StartRequest
	stopCalls int

	// statusGate, when set, blocks Status until closed. The other gates
	// block only the next call of their method.
	statusGate chan struct{}
	startGate  chan struct{}
	stopGate   chan struct{}
	frameGate  chan struct{}
}

// takeGate returns *gate and clears it so later calls pass straight through.
func (f *fakeAPI) takeGate(gate *chan struct{}) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := *gate
	*gate = nil
	return g
}

func (f *fakeAPI) Status(ctx context.Context) (*remote.Status, error) {
	if f.statusGate != nil {
		<-f.statusGate
	}
	return f.status, f.statusErr
}

func (f *fakeAPI) Start(ctx context.Context, req settings.StartRequest) error {
	f.mu.Lock()
	f.startReqs = append(f.startReqs, req)
	err := f.startErr
	f.mu.Unlock()
	if g := f.takeGate(&f.startGate); g != nil {
		<-g
	}
	return err
}

func (f *fakeAPI) Stop(ctx context.Context) error {
	f.mu.Lock()
	f.stopCalls++
	err := f.stopErr
	f.mu.Unlock()
	if g := f.takeGate(&f.stopGate); g != nil {
		<-g
	}
	return err
}

func (f *fakeAPI) FrameInfo(ctx context.Context) (*remote.FrameInfo, error) {
	f.mu.Lock()
	info, err := f.frameInfo, f.frameErr
	f.mu.Unlock()
	if g := f.takeGate(&f.frameGate); g != nil {
		<-g
	}
	return info, err
}

// waitIssued blocks until the reconciler has handed out n sequence numbers.
func waitIssued(t *testing.T, r *Reconciler, n uint64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		r.mu.Lock()
		issued := r.seq
		r.mu.Unlock()
		if issued >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for action %d", n)
		}
		time.Sleep(time.Millisecond)
	}
}

func epoch(v float64) *float64 { return &v }

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestReconciler(api API) *Reconciler {
	return New(api, WithClock(func() time.Time { return fixedNow }))
}

func TestLoad_NotRunningKeepsDefaults(t *testing.T) {
	api := &fakeAPI{status: &remote.Status{Running: false, FramesTaken: 99}}
	r := newTestReconciler(api)

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := r.Snapshot()
	if s.Settings != settings.Defaults() {
		t.Fatalf("settings changed: %+v", s.Settings)
	}
	if s.Run.Running || s.Run.FrameCount != 0 || s.Run.EndTime != nil || s.Run.LatestFrame != nil {
		t.Fatalf("run state changed: %+v", s.Run)
	}
	if s.Phase() != PhaseIdle {
		t.Fatalf("phase = %s, want idle", s.Phase())
	}
}

func TestLoad_RunningAdoptsRemoteState(t *testing.T) {
	api := &fakeAPI{status: &remote.Status{
		Running: true,
		Config: &remote.JobConfig{
			Frequency:  catalog.Number(30),
			Duration:   catalog.Number(900),
			Resolution: catalog.String("640x480"),
		},
		FramesTaken:     12,
		EndDate:         epoch(1760530500),
		LatestFrameTime: epoch(1760530000),
	}}
	r := newTestReconciler(api)

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := r.Snapshot()
	wantFreq, _ := catalog.Frequencies().Find(catalog.Number(30))
	wantDur, _ := catalog.Durations().Find(catalog.Number(900))
	if s.Settings.Frequency != wantFreq || s.Settings.Duration != wantDur {
		t.Fatalf("settings not resolved: %+v", s.Settings)
	}
	if s.Settings.Resolution.Value != catalog.String("640x480") {
		t.Fatalf("resolution = %+v", s.Settings.Resolution)
	}
	if !s.Run.Running || s.Run.FrameCount != 12 {
		t.Fatalf("run = %+v", s.Run)
	}
	if s.Run.EndTime == nil || s.Run.EndTime.Unix() != 1760530500 {
		t.Fatalf("end time = %v", s.Run.EndTime)
	}
	if s.Run.LatestFrame == nil || s.Run.LatestFrame.Unix() != 1760530000 {
		t.Fatalf("latest frame = %v", s.Run.LatestFrame)
	}
	if frames, err := s.ExpectedFrames(); err != nil || frames != 30 {
		t.Fatalf("ExpectedFrames = (%d, %v), want 30", frames, err)
	}
}

func TestLoad_UnresolvedConfigKeepsSelection(t *testing.T) {
	api := &fakeAPI{status: &remote.Status{
		Running: true,
		Config: &remote.JobConfig{
			Frequency:  catalog.Number(45),
			Duration:   catalog.String("900"),
			Resolution: catalog.String("1920x1080"),
		},
	}}
	r := newTestReconciler(api)

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := r.Snapshot().Settings; got != settings.Defaults() {
		t.Fatalf("unresolved values must keep defaults, got %+v", got)
	}
}

func TestLoad_NullMarkerDoesNotClobber(t *testing.T) {
	api := &fakeAPI{status: &remote.Status{Running: true, FramesTaken: 3, LatestFrameTime: epoch(1760530000), EndDate: epoch(1760531000)}}
	r := newTestReconciler(api)
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	api.status = &remote.Status{Running: true, FramesTaken: 4, LatestFrameTime: nil, EndDate: epoch(0)}
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	s := r.Snapshot()
	if s.Run.LatestFrame == nil || s.Run.LatestFrame.Unix() != 1760530000 {
		t.Fatalf("marker was clobbered: %v", s.Run.LatestFrame)
	}
	if s.Run.EndTime == nil || s.Run.EndTime.Unix() != 1760531000 {
		t.Fatalf("end time was clobbered: %v", s.Run.EndTime)
	}
	if s.Run.FrameCount != 4 {
		t.Fatalf("frame count = %d, want 4", s.Run.FrameCount)
	}
}

func TestLoad_FailureSetsError(t *testing.T) {
	api := &fakeAPI{statusErr: apperrors.Transport(errors.New("connection refused"))}
	r := newTestReconciler(api)

	err := r.Load(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	s := r.Snapshot()
	if s.Run.Err != "failed to get timelapse status: connection refused" {
		t.Fatalf("Err = %q", s.Run.Err)
	}
	if s.Run.Running || s.Phase() != PhaseError {
		t.Fatalf("unexpected run state %+v", s.Run)
	}
}

func TestStart_SuccessComputesLocalEndTime(t *testing.T) {
	api := &fakeAPI{}
	r := newTestReconciler(api)
	opt, _ := catalog.Durations().Find(catalog.Number(300))
	if err := r.SetOption(settings.Duration, opt); err != nil {
		t.Fatalf("SetOption: %v", err)
	}

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s := r.Snapshot()
	if !s.Run.Running || s.Run.Err != "" {
		t.Fatalf("run = %+v", s.Run)
	}
	if s.Run.EndTime == nil || !s.Run.EndTime.Equal(fixedNow.Add(300*time.Second)) {
		t.Fatalf("end time = %v", s.Run.EndTime)
	}
	if len(api.startReqs) != 1 || api.startReqs[0].Duration != catalog.Number(300) {
		t.Fatalf("start payload = %+v", api.startReqs)
	}
}

func TestStart_FailureKeepsIdle(t *testing.T) {
	api := &fakeAPI{startErr: apperrors.Rejection(400, "Timelapse already running", nil)}
	r := newTestReconciler(api)

	if err := r.Start(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	s := r.Snapshot()
	if s.Run.Running {
		t.Fatalf("running after failed start")
	}
	if !strings.Contains(s.Run.Err, "Timelapse already running") {
		t.Fatalf("Err = %q, want rejection detail", s.Run.Err)
	}
	if s.Run.EndTime != nil {
		t.Fatalf("end time set after failed start")
	}
}

func TestStop_SuccessResetsCounters(t *testing.T) {
	api := &fakeAPI{status: &remote.Status{Running: true, FramesTaken: 8, LatestFrameTime: epoch(1760530000), EndDate: epoch(1760531000)}}
	r := newTestReconciler(api)
	_ = r.Load(context.Background())

	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	run := r.Snapshot().Run
	if run.Running || run.FrameCount != 0 || run.LatestFrame != nil || run.EndTime != nil {
		t.Fatalf("run after stop = %+v", run)
	}
}

func TestStop_FailureForcesIdle(t *testing.T) {
	api := &fakeAPI{
		status:  &remote.Status{Running: true, FramesTaken: 8},
		stopErr: apperrors.Rejection(400, "Timelapse not running", nil),
	}
	r := newTestReconciler(api)
	_ = r.Load(context.Background())

	if err := r.Stop(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	run := r.Snapshot().Run
	if run.Running {
		t.Fatalf("running must be forced false after failed stop")
	}
	if run.Err != "failed to stop timelapse: Timelapse not running" {
		t.Fatalf("Err = %q", run.Err)
	}
}

func TestRefresh(t *testing.T) {
	api := &fakeAPI{frameInfo: &remote.FrameInfo{FramesTaken: 5, LatestFrameTime: epoch(1760530000)}}
	r := newTestReconciler(api)

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	run := r.Snapshot().Run
	if run.FrameCount != 5 || run.LatestFrame == nil || run.LatestFrame.Unix() != 1760530000 {
		t.Fatalf("run after refresh = %+v", run)
	}
	if run.Running {
		t.Fatalf("refresh must not change running")
	}

	api.frameInfo = &remote.FrameInfo{FramesTaken: 6}
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	run = r.Snapshot().Run
	if run.FrameCount != 6 || run.LatestFrame == nil || run.LatestFrame.Unix() != 1760530000 {
		t.Fatalf("null marker must not clobber: %+v", run)
	}

	api.frameErr = apperrors.Transport(errors.New("timeout"))
	if err := r.Refresh(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	run = r.Snapshot().Run
	if run.FrameCount != 6 || run.Running || run.Err == "" {
		t.Fatalf("run after failed refresh = %+v", run)
	}
}

func TestNewActionClearsError(t *testing.T) {
	api := &fakeAPI{startErr: errors.New("boom")}
	r := newTestReconciler(api)
	_ = r.Start(context.Background())
	if r.Snapshot().Run.Err == "" {
		t.Fatalf("expected error to be recorded")
	}

	var seen []string
	r.OnChange(func(s State) { seen = append(seen, s.Run.Err) })
	api.startErr = nil
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(seen) == 0 || seen[0] != "" {
		t.Fatalf("error not cleared before the call: %q", seen)
	}
}

func TestLoad_StaleResponseAfterStartIsDropped(t *testing.T) {
	api := &fakeAPI{
		status:     &remote.Status{Running: false},
		statusGate: make(chan struct{}),
	}
	r := newTestReconciler(api)

	done := make(chan error, 1)
	go func() { done <- r.Load(context.Background()) }()
	waitIssued(t, r, 1)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	close(api.statusGate)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("Load err = %v, want ErrStale", err)
	}
	if !r.Snapshot().Run.Running {
		t.Fatalf("stale status response clobbered the started job")
	}
}

func TestStaleResponsesAreDropped(t *testing.T) {
	running := &remote.Status{Running: true, FramesTaken: 8, EndDate: epoch(1760531000)}

	tests := []struct {
		name string
		// setup configures the fake and brings the reconciler to its
		// starting state. It returns the gate that holds the stale call.
		setup func(t *testing.T, api *fakeAPI, r *Reconciler) chan struct{}
		stale func(r *Reconciler) error
		// newer runs after the stale call was issued and before its
		// response is released.
		newer func(r *Reconciler) error
		check func(t *testing.T, run RunState)
	}{
		{
			name: "start overtaken by stop",
			setup: func(t *testing.T, api *fakeAPI, r *Reconciler) chan struct{} {
				api.startGate = make(chan struct{})
				return api.startGate
			},
			stale: func(r *Reconciler) error { return r.Start(context.Background()) },
			newer: func(r *Reconciler) error { return r.Stop(context.Background()) },
			check: func(t *testing.T, run RunState) {
				if run.Running || run.EndTime != nil {
					t.Fatalf("stale start revived the job: %+v", run)
				}
			},
		},
		{
			name: "failed stop overtaken by start",
			setup: func(t *testing.T, api *fakeAPI, r *Reconciler) chan struct{} {
				api.status = running
				if err := r.Load(context.Background()); err != nil {
					t.Fatalf("Load: %v", err)
				}
				api.stopErr = apperrors.Transport(errors.New("connection reset"))
				api.stopGate = make(chan struct{})
				return api.stopGate
			},
			stale: func(r *Reconciler) error { return r.Stop(context.Background()) },
			newer: func(r *Reconciler) error { return r.Start(context.Background()) },
			check: func(t *testing.T, run RunState) {
				if !run.Running {
					t.Fatalf("stale stop failure forced the new job idle")
				}
				if run.Err != "" {
					t.Fatalf("stale stop failure recorded an error: %q", run.Err)
				}
			},
		},
		{
			name: "refresh overtaken by stop",
			setup: func(t *testing.T, api *fakeAPI, r *Reconciler) chan struct{} {
				api.status = running
				if err := r.Load(context.Background()); err != nil {
					t.Fatalf("Load: %v", err)
				}
				api.frameInfo = &remote.FrameInfo{FramesTaken: 42, LatestFrameTime: epoch(1760530000)}
				api.frameGate = make(chan struct{})
				return api.frameGate
			},
			stale: func(r *Reconciler) error { return r.Refresh(context.Background()) },
			newer: func(r *Reconciler) error { return r.Stop(context.Background()) },
			check: func(t *testing.T, run RunState) {
				if run.FrameCount != 0 || run.LatestFrame != nil {
					t.Fatalf("stale frame info applied after stop: %+v", run)
				}
			},
		},
		{
			name: "refresh overtaken by start",
			setup: func(t *testing.T, api *fakeAPI, r *Reconciler) chan struct{} {
				api.frameInfo = &remote.FrameInfo{FramesTaken: 42}
				api.frameGate = make(chan struct{})
				return api.frameGate
			},
			stale: func(r *Reconciler) error { return r.Refresh(context.Background()) },
			newer: func(r *Reconciler) error { return r.Start(context.Background()) },
			check: func(t *testing.T, run RunState) {
				if !run.Running || run.FrameCount != 0 {
					t.Fatalf("stale frame info applied after start: %+v", run)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			r := newTestReconciler(api)
			gate := tt.setup(t, api, r)

			r.mu.Lock()
			base := r.seq
			r.mu.Unlock()

			done := make(chan error, 1)
			go func() { done <- tt.stale(r) }()
			waitIssued(t, r, base+1)

			if err := tt.newer(r); err != nil {
				t.Fatalf("newer action: %v", err)
			}
			want := r.Snapshot()
			close(gate)

			if err := <-done; !errors.Is(err, ErrStale) {
				t.Fatalf("stale call err = %v, want ErrStale", err)
			}
			got := r.Snapshot()
			tt.check(t, got.Run)
			if got.Run.Running != want.Run.Running || got.Run.FrameCount != want.Run.FrameCount || got.Run.Err != want.Run.Err {
				t.Fatalf("dropped response changed state: before %+v, after %+v", want.Run, got.Run)
			}
		})
	}
}

func TestStart_NonNumericDurationClearsPreviousEndTime(t *testing.T) {
	api := &fakeAPI{}
	r := newTestReconciler(api)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.Snapshot().Run.EndTime == nil {
		t.Fatalf("numeric duration must set an end time")
	}

	// A failed stop goes idle but leaves the old end time behind.
	api.stopErr = apperrors.Transport(errors.New("timeout"))
	_ = r.Stop(context.Background())

	api.stopErr = nil
	if err := r.SetOption(settings.Duration, catalog.Option{Label: "Until stopped", Value: catalog.String("forever")}); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	run := r.Snapshot().Run
	if !run.Running {
		t.Fatalf("not running after start")
	}
	if run.EndTime != nil {
		t.Fatalf("end time %v carried over from the previous session", run.EndTime)
	}
}

func TestNeedsStatus(t *testing.T) {
	past := fixedNow.Add(-time.Second)
	future := fixedNow.Add(time.Minute)
	tests := []struct {
		name string
		run  RunState
		want bool
	}{
		{"idle", RunState{}, false},
		{"running before end", RunState{Running: true, EndTime: &future}, false},
		{"running past end", RunState{Running: true, EndTime: &past}, true},
		{"running without end date", RunState{Running: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (State{Run: tt.run}).NeedsStatus(fixedNow); got != tt.want {
				t.Fatalf("NeedsStatus = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInvariantErrorsAreNotHidden(t *testing.T) {
	r := newTestReconciler(&fakeAPI{})
	if err := r.SetOption(settings.Frequency, catalog.Option{Label: "broken", Value: catalog.Number(0)}); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	_, err := r.Snapshot().ExpectedFrames()
	if !errors.Is(err, settings.ErrZeroFrequency) {
		t.Fatalf("expected ErrZeroFrequency, got %v", err)
	}
}

func TestFrameMarker(t *testing.T) {
	api := &fakeAPI{frameInfo: &remote.FrameInfo{FramesTaken: 1, LatestFrameTime: epoch(1760530000)}}
	r := newTestReconciler(api)
	if got := r.FrameMarker(); got != fixedNow.Unix() {
		t.Fatalf("FrameMarker without frame = %d, want clock", got)
	}
	_ = r.Refresh(context.Background())
	if got := r.FrameMarker(); got != 1760530000 {
		t.Fatalf("FrameMarker = %d, want 1760530000", got)
	}
}

func TestRemaining(t *testing.T) {
	end := fixedNow.Add(90 * time.Second)
	s := State{Run: RunState{Running: true, EndTime: &end}}
	if d, ok := s.Remaining(fixedNow); !ok || d != 90*time.Second {
		t.Fatalf("Remaining = (%v, %v)", d, ok)
	}
	if d, ok := s.Remaining(fixedNow.Add(time.Hour)); !ok || d != 0 {
		t.Fatalf("Remaining past end = (%v, %v)", d, ok)
	}
}
