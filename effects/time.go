package effects

import (
	"time"

	"github.com/rickb777/date/v2/timespan"
)

// TimeSpan is a window of time starting at its earlier endpoint. It contains its
// start but not its end.
type TimeSpan = timespan.TimeSpan

// NewTimeSpan spans from and to, in whichever order they are given.
func NewTimeSpan(from, to time.Time) TimeSpan {
	return timespan.BetweenTimes(from, to)
}
