package main

import (
	"net/url"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/oukeidos/lapsectl/internal/config"
	"github.com/oukeidos/lapsectl/internal/version"
)

const githubURL = "https://github.com/oukeidos/lapsectl"

func buildAboutTab(_ fyne.Window, cfg config.Config) fyne.CanvasObject {
	about := container.NewVBox(
		widget.NewLabelWithStyle("About", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewForm(
			widget.NewFormItem("App", widget.NewLabel("lapsectl")),
			widget.NewFormItem("Version", widget.NewLabel(version.Version)),
			widget.NewFormItem("Commit", widget.NewLabel(version.Commit)),
			widget.NewFormItem("Build", widget.NewLabel(version.BuildDate)),
			widget.NewFormItem("Links", buildLinksRow()),
		),
	)
	connection := container.NewVBox(
		widget.NewLabelWithStyle("Connection", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewForm(
			widget.NewFormItem("Service", widget.NewLabel(cfg.BaseURL)),
			widget.NewFormItem("Timeout", widget.NewLabel(cfg.Timeout.String())),
			widget.NewFormItem("Downloads", widget.NewLabel(cfg.DownloadDir)),
		),
	)
	return container.NewPadded(container.NewVScroll(container.NewVBox(about, widget.NewSeparator(), connection)))
}

func buildLinksRow() fyne.CanvasObject {
	u, err := url.Parse(githubURL)
	if err != nil {
		return widget.NewLabel(githubURL)
	}
	return widget.NewHyperlink("GitHub", u)
}
