package stock

import "time"

// Euronext Paris trading window, both bounds inclusive.
const (
	MarketOpenHour    = 9
	MarketOpenMinute  = 0
	MarketCloseHour   = 17
	MarketCloseMinute = 30
)

// IsMarketOpen reports whether t, read in its own location, falls on a
// weekday between 09:00 and 17:30 inclusive. Resolution is one minute.
func IsMarketOpen(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	open := MarketOpenHour*60 + MarketOpenMinute
	closing := MarketCloseHour*60 + MarketCloseMinute
	return minutes >= open && minutes <= closing
}

// Clock returns the current time.
type Clock func() time.Time

// MarketClock returns a Clock reading wall time in loc.
// A nil loc means time.Local.
func MarketClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}
