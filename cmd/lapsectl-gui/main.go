package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"

	"github.com/oukeidos/lapsectl/internal/config"
	"github.com/oukeidos/lapsectl/internal/httpclient"
	"github.com/oukeidos/lapsectl/internal/library"
	"github.com/oukeidos/lapsectl/internal/logger"
	"github.com/oukeidos/lapsectl/internal/reconciler"
	"github.com/oukeidos/lapsectl/internal/remote"
)

type guiApp struct {
	window fyne.Window
	cfg    config.Config
	client *remote.Client
	rec    *reconciler.Reconciler
	lib    *library.Library

	control *controlTab
	library *libraryTab

	ctx             context.Context
	cancel          context.CancelFunc
	cancelOnce      sync.Once
	panicNoticeOnce sync.Once
}

func newGUIApp(w fyne.Window, cfg config.Config) *guiApp {
	client := remote.NewClient(cfg.BaseURL, remote.WithHTTPClient(httpclient.ForCalls(cfg.Timeout)))
	ctx, cancel := context.WithCancel(context.Background())
	a := &guiApp{
		ctx:    ctx,
		cancel: cancel,
		window: w,
		cfg:    cfg,
		client: client,
		rec:    reconciler.New(client),
		lib:    library.New(client),
	}
	a.control = newControlTab(a)
	a.library = newLibraryTab(a)
	a.rec.OnChange(func(s reconciler.State) {
		a.safeDo("state.render", func() { a.control.render(s) })
	})
	return a
}

// requestContext bounds one remote call by the configured timeout. Every
// call also ends when the window closes.
func (a *guiApp) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(a.ctx, a.cfg.Timeout)
}

// downloadContext has no deadline; a video stream may take long.
func (a *guiApp) downloadContext() context.Context {
	return a.ctx
}

func (a *guiApp) cancelActive(reason string) {
	a.cancelOnce.Do(func() {
		logger.Warn("Cancellation requested", "reason", reason)
		a.cancel()
	})
}

func (a *guiApp) content() fyne.CanvasObject {
	return container.NewAppTabs(
		container.NewTabItemWithIcon("Control", theme.MediaRecordIcon(), a.control.object()),
		container.NewTabItemWithIcon("Library", theme.MediaVideoIcon(), a.library.object()),
		container.NewTabItemWithIcon("About", theme.InfoIcon(), buildAboutTab(a.window, a.cfg)),
	)
}

func loadConfig() config.Config {
	path, err := config.DefaultPath()
	if err != nil {
		logger.Warn("Config directory unavailable; using defaults", "error", err)
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		logger.Error("Config file rejected; using defaults", "path", path, "error", err)
		return config.Default()
	}
	return cfg
}

func main() {
	logger.Init(logger.LevelInfo, nil)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Unrecovered GUI panic", "scope", "main", "panic", fmt.Sprint(r))
			os.Exit(1)
		}
	}()

	cfg := loadConfig()
	if level, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		logger.Init(level, nil)
	}

	myApp := app.NewWithID("com.oukeidos.lapsectl")
	myApp.SetIcon(theme.MediaVideoIcon())

	w := myApp.NewWindow("lapsectl")
	w.SetMaster()
	w.Resize(fyne.NewSize(720, 620))
	w.CenterOnScreen()

	ga := newGUIApp(w, cfg)
	w.SetContent(ga.content())
	w.SetCloseIntercept(func() {
		ga.control.stopPolling()
		ga.cancelActive("window closed")
		w.SetCloseIntercept(nil)
		w.Close()
	})

	ga.control.load()
	ga.library.reload()
	ga.control.startPolling(cfg.WatchInterval)

	w.ShowAndRun()
}

// pollEvery runs fn on every tick until stop is closed.
func pollEvery(interval time.Duration, stop <-chan struct{}, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			fn()
		}
	}
}
