package picker

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/oukeidos/lapsectl/internal/settings"
)

// Selection holds the label chosen for each setting. The form writes into it.
type Selection map[settings.Dimension]*string

// BuildForm returns a form with one select per setting, preselected from current.
func BuildForm(current settings.Settings) (*huh.Form, Selection) {
	sel := Selection{}
	var fields []huh.Field
	for _, d := range settings.Dimensions {
		o, err := current.Get(d)
		if err != nil {
			continue
		}
		c, err := settings.CatalogFor(d)
		if err != nil {
			continue
		}
		label := o.Label
		sel[d] = &label

		opts := make([]huh.Option[string], 0, c.Len())
		for _, o := range c.Options() {
			opts = append(opts, huh.NewOption(o.Label, o.Label))
		}
		fields = append(fields, huh.NewSelect[string]().
			Title(title(d)).
			Description(fmt.Sprintf("Currently %s.", label)).
			Key(string(d)).
			Options(opts...).
			Value(sel[d]))
	}
	return huh.NewForm(huh.NewGroup(fields...)), sel
}

// Apply resolves the chosen labels back to catalog options.
func Apply(current settings.Settings, sel Selection) (settings.Settings, error) {
	out := current
	for _, d := range settings.Dimensions {
		label, ok := sel[d]
		if !ok || label == nil {
			continue
		}
		c, err := settings.CatalogFor(d)
		if err != nil {
			return current, err
		}
		o, ok := c.FindLabel(*label)
		if !ok {
			return current, fmt.Errorf("unknown %s %q", d, *label)
		}
		if err := out.Set(d, o); err != nil {
			return current, err
		}
	}
	return out, nil
}

// Run shows the form and returns the chosen settings. A cancelled form
// returns ErrCancelled and leaves current untouched.
func Run(current settings.Settings) (settings.Settings, error) {
	form, sel := BuildForm(current)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return current, ErrCancelled
		}
		return current, err
	}
	return Apply(current, sel)
}

var ErrCancelled = errors.New("selection cancelled")

func title(d settings.Dimension) string {
	switch d {
	case settings.Frequency:
		return "Capture every"
	case settings.Duration:
		return "Capture for"
	default:
		return "Resolution"
	}
}

// Summary describes the frame count a settings choice produces.
func Summary(s settings.Settings) string {
	n, err := settings.ExpectedFrames(s)
	if err != nil {
		return err.Error()
	}
	msg := fmt.Sprintf("%d frames", n)
	if settings.IsFrequencyTooHigh(s) {
		msg += " (interval is longer than the session)"
	}
	return msg
}
