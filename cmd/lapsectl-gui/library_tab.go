package main

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/oukeidos/lapsectl/internal/apperrors"
	"github.com/oukeidos/lapsectl/internal/remote"
)

type libraryTab struct {
	app *guiApp

	items    []remote.Timelapse
	selected int
	list     *widget.List
	status   *widget.Label
	download *widget.Button
	remove   *widget.Button
}

func newLibraryTab(a *guiApp) *libraryTab {
	t := &libraryTab{app: a, selected: -1, status: widget.NewLabel("")}
	t.list = widget.NewList(
		func() int { return len(t.items) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < len(t.items) {
				obj.(*widget.Label).SetText(libraryRowText(t.items[id]))
			}
		},
	)
	t.list.OnSelected = func(id widget.ListItemID) {
		t.selected = id
		t.download.Enable()
		t.remove.Enable()
	}
	t.list.OnUnselected = func(widget.ListItemID) {
		t.selected = -1
		t.download.Disable()
		t.remove.Disable()
	}
	t.download = widget.NewButtonWithIcon("Download", theme.DownloadIcon(), t.downloadSelected)
	t.remove = widget.NewButtonWithIcon("Delete", theme.DeleteIcon(), t.confirmDelete)
	t.download.Disable()
	t.remove.Disable()
	return t
}

func (t *libraryTab) object() fyne.CanvasObject {
	reload := widget.NewButtonWithIcon("Reload", theme.ViewRefreshIcon(), t.reload)
	return container.NewPadded(container.NewBorder(
		nil,
		container.NewVBox(container.NewHBox(reload, t.download, t.remove), t.status),
		nil, nil,
		t.list,
	))
}

func (t *libraryTab) current() (remote.Timelapse, bool) {
	if t.selected < 0 || t.selected >= len(t.items) {
		return remote.Timelapse{}, false
	}
	return t.items[t.selected], true
}

func (t *libraryTab) reload() {
	t.app.safeGo("library.reload", func() {
		ctx, done := t.app.requestContext()
		defer done()
		items, err := t.app.lib.List(ctx)
		t.app.safeDo("library.render", func() {
			if err != nil {
				t.status.SetText(apperrors.PublicMessage(err))
				return
			}
			t.items = items
			t.list.UnselectAll()
			t.list.Refresh()
			t.status.SetText(fmt.Sprintf("%d timelapses", len(items)))
		})
	})
}

func (t *libraryTab) downloadSelected() {
	item, ok := t.current()
	if !ok {
		return
	}
	dir := t.app.cfg.DownloadDir
	t.status.SetText("Downloading " + item.Name + "...")
	t.app.safeGo("library.download", func() {
		// Downloads have no overall deadline; the stream may be large.
		path, err := t.app.lib.Download(t.app.downloadContext(), item.ID, dir)
		t.app.safeDo("library.download.done", func() {
			if err != nil {
				t.status.SetText("")
				dialog.ShowError(err, t.app.window)
				return
			}
			t.status.SetText("Saved " + path)
		})
	})
}

func (t *libraryTab) confirmDelete() {
	item, ok := t.current()
	if !ok {
		return
	}
	dialog.ShowConfirm("Delete timelapse",
		fmt.Sprintf("Delete %q? This cannot be undone.", item.Name),
		func(yes bool) {
			if !yes {
				return
			}
			t.app.safeGo("library.delete", func() {
				ctx, done := t.app.requestContext()
				defer done()
				err := t.app.lib.Delete(ctx, item.ID)
				t.app.safeDo("library.delete.done", func() {
					if err != nil {
						dialog.ShowError(err, t.app.window)
						return
					}
					t.items = t.app.lib.Items()
					t.list.UnselectAll()
					t.list.Refresh()
					t.status.SetText("Deleted " + item.Name)
				})
			})
		}, t.app.window)
}
