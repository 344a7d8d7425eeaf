package remote

import (
	"math"
	"time"

	"github.com/oukeidos/lapsectl/internal/catalog"
)

// JobConfig is the configuration the service reports for a running job.
// Values keep their wire type so catalog matching stays exact.
type JobConfig struct {
	Frequency  catalog.Value `json:"frequency"`
	Duration   catalog.Value `json:"duration"`
	Resolution catalog.Value `json:"resolution"`
}

// Status is the body of GET /timelapse/status.
type Status struct {
	Running         bool       `json:"running"`
	Config          *JobConfig `json:"config"`
	FramesTaken     int        `json:"frames_taken"`
	ExpectedFrames  *int       `json:"expected_frames"`
	EndDate         *float64   `json:"end_date"`
	LatestFrameTime *float64   `json:"latest_frame_time"`
	TimelapseID     *string    `json:"timelapse_id,omitempty"`
}

// FrameInfo is the body of GET /timelapse/frame-info.
type FrameInfo struct {
	FramesTaken     int      `json:"frames_taken"`
	LatestFrameTime *float64 `json:"latest_frame_time"`
}

// Timelapse is one completed job in the library listing.
type Timelapse struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Frames int    `json:"frames"`
	Name   string `json:"name"`
}

type timelapseList struct {
	Timelapses []Timelapse `json:"timelapses"`
}

// EpochTime converts an optional epoch-seconds field. A missing or zero
// value carries no information and reports ok=false.
func EpochTime(sec *float64) (time.Time, bool) {
	if sec == nil || *sec == 0 || math.IsNaN(*sec) || math.IsInf(*sec, 0) {
		return time.Time{}, false
	}
	whole, frac := math.Modf(*sec)
	return time.Unix(int64(whole), int64(frac*1e9)), true
}
