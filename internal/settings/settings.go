package settings

import (
	"fmt"
	"strings"

	"github.com/oukeidos/lapsectl/internal/catalog"
)

type Dimension string

const (
	Frequency  Dimension = "frequency"
	Duration   Dimension = "duration"
	Resolution Dimension = "resolution"
)

// Dimensions lists the keys in display order.
var Dimensions = []Dimension{Frequency, Duration, Resolution}

func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case Frequency, Duration, Resolution:
		return d, nil
	}
	return "", fmt.Errorf("unknown setting %q (expected frequency, duration or resolution)", s)
}

// CatalogFor returns the catalog backing a dimension.
func CatalogFor(d Dimension) (*catalog.Catalog, error) {
	switch d {
	case Frequency:
		return catalog.Frequencies(), nil
	case Duration:
		return catalog.Durations(), nil
	case Resolution:
		return catalog.Resolutions(), nil
	}
	return nil, fmt.Errorf("unknown setting %q", d)
}

// Settings is the currently selected option for each dimension.
type Settings struct {
	Frequency  catalog.Option
	Duration   catalog.Option
	Resolution catalog.Option
}

// Defaults returns the selection used before any remote state is known.
func Defaults() Settings {
	return Settings{
		Frequency:  catalog.Option{Label: "5 seconds", Value: catalog.Number(5)},
		Duration:   catalog.Option{Label: "5 seconds", Value: catalog.Number(5)},
		Resolution: catalog.Option{Label: "640x480", Value: catalog.String("640x480")},
	}
}

// Set replaces the option at d. The option is not checked against the
// catalog; selection UIs only ever offer catalog entries.
func (s *Settings) Set(d Dimension, o catalog.Option) error {
	switch d {
	case Frequency:
		s.Frequency = o
	case Duration:
		s.Duration = o
	case Resolution:
		s.Resolution = o
	default:
		return fmt.Errorf("unknown setting %q", d)
	}
	return nil
}

func (s Settings) Get(d Dimension) (catalog.Option, error) {
	switch d {
	case Frequency:
		return s.Frequency, nil
	case Duration:
		return s.Duration, nil
	case Resolution:
		return s.Resolution, nil
	}
	return catalog.Option{}, fmt.Errorf("unknown setting %q", d)
}

// StartRequest is the body of POST /timelapse/start.
type StartRequest struct {
	Frequency  catalog.Value `json:"frequency"`
	Duration   catalog.Value `json:"duration"`
	Resolution catalog.Value `json:"resolution"`
}

func (s Settings) Payload() StartRequest {
	return StartRequest{
		Frequency:  s.Frequency.Value,
		Duration:   s.Duration.Value,
		Resolution: s.Resolution.Value,
	}
}
