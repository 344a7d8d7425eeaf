package settings

import (
	"fmt"
	"math"

	"github.com/oukeidos/lapsectl/internal/apperrors"
)

// ErrZeroFrequency means the frequency catalog handed out a zero interval.
var ErrZeroFrequency = apperrors.Invariant("capture frequency is zero")

// ExpectedFrames is floor(duration / frequency).
func ExpectedFrames(s Settings) (int, error) {
	freq, ok := s.Frequency.Value.Float()
	if !ok {
		return 0, apperrors.Invariant(fmt.Sprintf("capture frequency %q is not numeric", s.Frequency.Value))
	}
	dur, ok := s.Duration.Value.Float()
	if !ok {
		return 0, apperrors.Invariant(fmt.Sprintf("session duration %q is not numeric", s.Duration.Value))
	}
	if freq == 0 {
		return 0, ErrZeroFrequency
	}
	return int(math.Floor(dur / freq)), nil
}

// IsFrequencyTooHigh reports whether the interval between captures is longer
// than the whole session. Non-numeric operands never trip the warning.
func IsFrequencyTooHigh(s Settings) bool {
	freq, ok := s.Frequency.Value.Float()
	if !ok {
		return false
	}
	dur, ok := s.Duration.Value.Float()
	if !ok {
		return false
	}
	return freq > dur
}
