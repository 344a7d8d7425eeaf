package catalog

import (
	"fmt"
	"strings"
)

// Option is one legal choice for a configurable dimension.
type Option struct {
	Label string
	Value Value
}

func (o Option) String() string { return o.Label }

// Catalog is an ordered, read-only set of options. Order is display order.
type Catalog struct {
	name    string
	options []Option
}

func New(name string, options ...Option) *Catalog {
	return &Catalog{name: name, options: append([]Option(nil), options...)}
}

func (c *Catalog) Name() string { return c.name }

func (c *Catalog) Len() int { return len(c.options) }

// Options returns a copy of the catalog entries.
func (c *Catalog) Options() []Option {
	return append([]Option(nil), c.options...)
}

func (c *Catalog) Labels() []string {
	labels := make([]string, len(c.options))
	for i, o := range c.options {
		labels[i] = o.Label
	}
	return labels
}

// Find returns the entry whose value equals v exactly.
func (c *Catalog) Find(v Value) (Option, bool) {
	for _, o := range c.options {
		if o.Value == v {
			return o, true
		}
	}
	return Option{}, false
}

func (c *Catalog) FindLabel(label string) (Option, bool) {
	for _, o := range c.options {
		if o.Label == label {
			return o, true
		}
	}
	return Option{}, false
}

// Lookup resolves user input by value first, then by case-insensitive label.
func (c *Catalog) Lookup(input string) (Option, bool) {
	if o, ok := c.Find(ParseValue(input)); ok {
		return o, true
	}
	needle := strings.TrimSpace(input)
	for _, o := range c.options {
		if strings.EqualFold(o.Label, needle) {
			return o, true
		}
	}
	return Option{}, false
}

// Validate reports construction errors: empty catalogs and duplicate values.
// When positive is set every entry must be a number greater than zero.
func (c *Catalog) Validate(positive bool) error {
	if len(c.options) == 0 {
		return fmt.Errorf("catalog %s is empty", c.name)
	}
	seen := make(map[Value]bool, len(c.options))
	for _, o := range c.options {
		if o.Value.IsZero() {
			return fmt.Errorf("catalog %s: option %q has no value", c.name, o.Label)
		}
		if seen[o.Value] {
			return fmt.Errorf("catalog %s: duplicate value %s", c.name, o.Value)
		}
		seen[o.Value] = true
		if positive {
			n, ok := o.Value.Float()
			if !ok || n <= 0 {
				return fmt.Errorf("catalog %s: option %q must be a positive number", c.name, o.Label)
			}
		}
	}
	return nil
}
