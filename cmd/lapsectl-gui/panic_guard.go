package main

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"github.com/oukeidos/lapsectl/internal/logger"
)

func withPanicGuard(scope string, onPanic func(any), fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered panic", "scope", scope, "panic", fmt.Sprint(r))
			if onPanic != nil {
				onPanic(r)
			}
		}
	}()
	fn()
}

func safeGo(scope string, fn func()) {
	go func() {
		withPanicGuard(scope, nil, fn)
	}()
}

func safeDo(scope string, fn func()) {
	withPanicGuard(scope+".dispatch", nil, func() {
		fyne.Do(func() {
			withPanicGuard(scope, nil, fn)
		})
	})
}

func (a *guiApp) safeGo(scope string, fn func()) {
	if a == nil {
		safeGo(scope, fn)
		return
	}
	go func() {
		withPanicGuard(scope, func(r any) {
			a.handleRecoveredPanic(scope, r)
		}, fn)
	}()
}

func (a *guiApp) safeDo(scope string, fn func()) {
	if a == nil {
		safeDo(scope, fn)
		return
	}
	withPanicGuard(scope+".dispatch", func(r any) {
		a.handleRecoveredPanic(scope+".dispatch", r)
	}, func() {
		fyne.Do(func() {
			withPanicGuard(scope, func(r any) {
				a.handleRecoveredPanic(scope, r)
			}, fn)
		})
	})
}

func (a *guiApp) handleRecoveredPanic(scope string, _ any) {
	if a == nil || fyne.CurrentApp() == nil {
		return
	}
	logger.Warn("Request abandoned after panic", "scope", scope)

	a.panicNoticeOnce.Do(func() {
		a.safeDo("panic.notice", func() {
			if a.window == nil {
				return
			}
			dialog.ShowInformation(
				"Unexpected Error",
				"An internal error occurred and the current request was abandoned. Please retry. If this repeats, restart the app.",
				a.window,
			)
		})
	})
}
