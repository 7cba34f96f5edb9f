package scheduler

import (
	"math"
	"time"
)

func timeNow() time.Time { return time.Now() }

func timeSince(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return time.Since(t).Seconds()
}

func absFloat(v float64) float64 { return math.Abs(v) }
