package core

import "time"

var NowFunc = time.Now // mockable

// Today returns the current calendar date in loc.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(NowFunc().In(loc))
}
