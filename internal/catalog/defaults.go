package catalog

const (
	minute = 60
	hour   = 60 * minute
	day    = 24 * hour
	week   = 7 * day
	// month follows the service's notion of a month (365 days / 12).
	month = 2628000
)

var frequencies = New("frequency",
	Option{Label: "5 seconds", Value: Number(5)},
	Option{Label: "30 seconds", Value: Number(30)},
	Option{Label: "1 minute", Value: Number(minute)},
	Option{Label: "1 hour", Value: Number(hour)},
	Option{Label: "1 day", Value: Number(day)},
	Option{Label: "2 days", Value: Number(2 * day)},
	Option{Label: "1 week", Value: Number(week)},
)

var durations = New("duration",
	Option{Label: "5 seconds", Value: Number(5)},
	Option{Label: "1 minute", Value: Number(minute)},
	Option{Label: "5 minutes", Value: Number(5 * minute)},
	Option{Label: "15 minutes", Value: Number(15 * minute)},
	Option{Label: "60 minutes", Value: Number(hour)},
	Option{Label: "1 day", Value: Number(day)},
	Option{Label: "1 week", Value: Number(week)},
	Option{Label: "1 month", Value: Number(month)},
)

// Higher resolutions are not offered: the capture device only delivers
// MJPEG at 640x480 reliably.
var resolutions = New("resolution",
	Option{Label: "640x480", Value: String("640x480")},
)

// Frequencies returns the capture interval catalog, in seconds.
func Frequencies() *Catalog { return frequencies }

// Durations returns the session length catalog, in seconds.
func Durations() *Catalog { return durations }

func Resolutions() *Catalog { return resolutions }
