package settings

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/oukeidos/lapsectl/internal/apperrors"
	"github.com/oukeidos/lapsectl/internal/catalog"
)

func withValues(freq, dur float64) Settings {
	s := Defaults()
	s.Frequency = catalog.Option{Label: "f", Value: catalog.Number(freq)}
	s.Duration = catalog.Option{Label: "d", Value: catalog.Number(dur)}
	return s
}

func TestExpectedFrames(t *testing.T) {
	cases := []struct {
		freq, dur float64
		want      int
	}{
		{freq: 5, dur: 300, want: 60},
		{freq: 60, dur: 300, want: 5},
		{freq: 30, dur: 5, want: 0},
		{freq: 3600, dur: 2628000, want: 730},
	}
	for _, tc := range cases {
		got, err := ExpectedFrames(withValues(tc.freq, tc.dur))
		if err != nil {
			t.Fatalf("ExpectedFrames(f=%v, d=%v) error: %v", tc.freq, tc.dur, err)
		}
		if got != tc.want {
			t.Fatalf("ExpectedFrames(f=%v, d=%v) = %d, want %d", tc.freq, tc.dur, got, tc.want)
		}
	}
}

func TestExpectedFrames_ZeroFrequencyIsInvariantError(t *testing.T) {
	_, err := ExpectedFrames(withValues(0, 300))
	if !errors.Is(err, ErrZeroFrequency) {
		t.Fatalf("expected ErrZeroFrequency, got %v", err)
	}
	if !apperrors.IsInvariant(err) {
		t.Fatalf("expected invariant kind, got %v", err)
	}
}

func TestExpectedFrames_NonNumeric(t *testing.T) {
	s := Defaults()
	s.Frequency = catalog.Option{Label: "bogus", Value: catalog.String("5")}
	if _, err := ExpectedFrames(s); !apperrors.IsInvariant(err) {
		t.Fatalf("expected invariant error for string frequency, got %v", err)
	}
}

func TestIsFrequencyTooHigh(t *testing.T) {
	if !IsFrequencyTooHigh(withValues(3600, 300)) {
		t.Fatalf("expected warning for frequency=3600 duration=300")
	}
	if IsFrequencyTooHigh(withValues(5, 300)) {
		t.Fatalf("unexpected warning for frequency=5 duration=300")
	}
	if IsFrequencyTooHigh(withValues(300, 300)) {
		t.Fatalf("equal values must not warn")
	}
}

func TestSetAndGet(t *testing.T) {
	s := Defaults()
	opt, _ := catalog.Durations().Find(catalog.Number(900))
	if err := s.Set(Duration, opt); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(Duration)
	if err != nil || got != opt {
		t.Fatalf("Get(duration) = (%+v, %v), want %+v", got, err, opt)
	}
	if s.Frequency != Defaults().Frequency || s.Resolution != Defaults().Resolution {
		t.Fatalf("Set must only touch the named key")
	}
	if err := s.Set(Dimension("fps"), opt); err == nil {
		t.Fatalf("expected error for unknown dimension")
	}
}

func TestDefaultsAreCatalogMembers(t *testing.T) {
	s := Defaults()
	for _, d := range Dimensions {
		c, err := CatalogFor(d)
		if err != nil {
			t.Fatalf("CatalogFor(%s): %v", d, err)
		}
		o, _ := s.Get(d)
		if got, ok := c.Find(o.Value); !ok || got != o {
			t.Fatalf("default %s = %+v is not a catalog member", d, o)
		}
	}
}

func TestParseDimension(t *testing.T) {
	if d, err := ParseDimension(" Frequency "); err != nil || d != Frequency {
		t.Fatalf("ParseDimension = (%q, %v)", d, err)
	}
	if _, err := ParseDimension("fps"); err == nil {
		t.Fatalf("expected error for unknown dimension")
	}
}

func TestPayload(t *testing.T) {
	s := Defaults()
	opt, _ := catalog.Frequencies().Find(catalog.Number(30))
	_ = s.Set(Frequency, opt)
	data, err := json.Marshal(s.Payload())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"frequency":30,"duration":5,"resolution":"640x480"}`
	if string(data) != want {
		t.Fatalf("payload = %s, want %s", data, want)
	}
}
