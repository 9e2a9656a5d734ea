// Package engine holds the arithmetic shared by the recommendation engine
// components. The components themselves live in the sub-packages.
package engine

import (
	"math"
	"time"
)

// DateLayout is the YYYY-MM-DD form used for per-day keys.
const DateLayout = "2006-01-02"

// Clamp100 bounds a score to [0, 100]. NaN maps to 0.
func Clamp100(v float64) float64 {
	return Clamp(v, 0, 100)
}

func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Clock returns the current time.
type Clock func() time.Time

// ParseDay resolves a YYYY-MM-DD string in loc. An empty string means the
// day of now.
func ParseDay(date string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if date == "" {
		n := now.In(loc)
		return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc), nil
	}
	return time.ParseInLocation(DateLayout, date, loc)
}
