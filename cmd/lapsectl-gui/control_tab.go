package main

import (
	"errors"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/oukeidos/lapsectl/internal/logger"
	"github.com/oukeidos/lapsectl/internal/reconciler"
	"github.com/oukeidos/lapsectl/internal/settings"
)

type controlTab struct {
	app *guiApp

	selects  map[settings.Dimension]*widget.Select
	syncing  bool
	phase    *widget.Label
	frames   *widget.Label
	warning  *widget.Label
	ends     *widget.Label
	errLabel *widget.Label
	startBtn *widget.Button
	stopBtn  *widget.Button
	frame    *canvas.Image

	pollMu   sync.Mutex
	pollStop chan struct{}
}

func newControlTab(a *guiApp) *controlTab {
	t := &controlTab{
		app:      a,
		selects:  make(map[settings.Dimension]*widget.Select),
		phase:    widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		frames:   widget.NewLabel(""),
		warning:  widget.NewLabel(""),
		ends:     widget.NewLabel(""),
		errLabel: widget.NewLabel(""),
	}
	t.warning.Importance = widget.WarningImportance
	t.errLabel.Importance = widget.DangerImportance
	t.errLabel.Wrapping = fyne.TextWrapWord

	for _, d := range settings.Dimensions {
		c, err := settings.CatalogFor(d)
		if err != nil {
			continue
		}
		sel := widget.NewSelect(c.Labels(), func(label string) {
			if t.syncing {
				return
			}
			o, ok := optionForLabel(d, label)
			if !ok {
				return
			}
			if err := a.rec.SetOption(d, o); err != nil {
				logger.Warn("Setting rejected", "setting", string(d), "error", err)
			}
		})
		t.selects[d] = sel
	}

	t.startBtn = widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), t.start)
	t.startBtn.Importance = widget.HighImportance
	t.stopBtn = widget.NewButtonWithIcon("Stop", theme.MediaStopIcon(), t.confirmStop)

	t.frame = canvas.NewImageFromResource(nil)
	t.frame.FillMode = canvas.ImageFillContain
	t.frame.SetMinSize(fyne.NewSize(320, 240))

	t.render(a.rec.Snapshot())
	return t
}

func (t *controlTab) object() fyne.CanvasObject {
	form := widget.NewForm(
		widget.NewFormItem("Capture every", t.selects[settings.Frequency]),
		widget.NewFormItem("Capture for", t.selects[settings.Duration]),
		widget.NewFormItem("Resolution", t.selects[settings.Resolution]),
	)
	refresh := widget.NewButtonWithIcon("Refresh", theme.ViewRefreshIcon(), t.refresh)
	buttons := container.NewHBox(t.startBtn, t.stopBtn, refresh)
	status := container.NewVBox(t.phase, t.frames, t.warning, t.ends, t.errLabel)
	return container.NewPadded(container.NewBorder(
		container.NewVBox(form, buttons, widget.NewSeparator(), status),
		nil, nil, nil,
		t.frame,
	))
}

// render copies a snapshot into the widgets. It must run on the UI goroutine.
func (t *controlTab) render(s reconciler.State) {
	t.syncing = true
	for _, d := range settings.Dimensions {
		sel, ok := t.selects[d]
		if !ok {
			continue
		}
		o, err := s.Settings.Get(d)
		if err == nil && sel.Selected != o.Label {
			sel.SetSelected(o.Label)
		}
	}
	t.syncing = false

	t.phase.SetText(phaseText(s))
	t.frames.SetText(framesText(s))
	t.warning.SetText(warningText(s))
	t.ends.SetText(endText(s, time.Now()))
	t.errLabel.SetText(s.Run.Err)

	start, stop := controlsEnabled(s)
	setEnabled(t.startBtn, start)
	setEnabled(t.stopBtn, stop)
	for _, sel := range t.selects {
		setEnabled(sel, start)
	}
}

type disableable interface {
	Enable()
	Disable()
}

func setEnabled(w disableable, on bool) {
	if on {
		w.Enable()
	} else {
		w.Disable()
	}
}

func (t *controlTab) load() {
	t.app.safeGo("control.load", func() {
		ctx, done := t.app.requestContext()
		defer done()
		if err := t.app.rec.Load(ctx); err == nil {
			t.reloadFrame()
		}
	})
}

func (t *controlTab) start() {
	t.app.safeGo("control.start", func() {
		ctx, done := t.app.requestContext()
		defer done()
		if err := t.app.rec.Start(ctx); err != nil && !errors.Is(err, reconciler.ErrStale) {
			logger.Debug("Start failed", "error", err)
		}
	})
}

func (t *controlTab) confirmStop() {
	dialog.ShowConfirm("Stop timelapse", "Stop the running timelapse?", func(ok bool) {
		if !ok {
			return
		}
		t.app.safeGo("control.stop", func() {
			ctx, done := t.app.requestContext()
			defer done()
			if err := t.app.rec.Stop(ctx); err != nil && !errors.Is(err, reconciler.ErrStale) {
				logger.Debug("Stop failed", "error", err)
			}
		})
	}, t.app.window)
}

func (t *controlTab) refresh() {
	t.app.safeGo("control.refresh", func() {
		ctx, done := t.app.requestContext()
		defer done()
		if err := t.app.rec.Refresh(ctx); err == nil {
			t.reloadFrame()
		}
	})
}

// reloadFrame fetches the latest frame under a fresh cache-busting URL.
// Called off the UI goroutine.
func (t *controlTab) reloadFrame() {
	if !t.app.rec.Snapshot().Run.Running {
		return
	}
	url := t.app.client.LatestFrameURL(t.app.rec.FrameMarker())
	res, err := fyne.LoadResourceFromURLString(url)
	if err != nil {
		logger.Debug("Latest frame unavailable", "url", url, "error", err)
		return
	}
	t.app.safeDo("control.frame", func() {
		t.frame.Resource = res
		t.frame.Refresh()
	})
}

// startPolling follows progress while a job runs, reloading the full status
// when only that can tell whether the job has finished.
func (t *controlTab) startPolling(interval time.Duration) {
	t.pollMu.Lock()
	defer t.pollMu.Unlock()
	if t.pollStop != nil {
		return
	}
	stop := make(chan struct{})
	t.pollStop = stop
	t.app.safeGo("control.poll", func() {
		pollEvery(interval, stop, func() {
			s := t.app.rec.Snapshot()
			if !s.Run.Running {
				return
			}
			ctx, done := t.app.requestContext()
			defer done()
			if s.NeedsStatus(time.Now()) {
				_ = t.app.rec.Load(ctx)
				return
			}
			if err := t.app.rec.Refresh(ctx); err == nil {
				t.reloadFrame()
			}
		})
	})
}

func (t *controlTab) stopPolling() {
	t.pollMu.Lock()
	defer t.pollMu.Unlock()
	if t.pollStop != nil {
		close(t.pollStop)
		t.pollStop = nil
	}
}
