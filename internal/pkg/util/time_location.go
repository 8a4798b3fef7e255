package util

import (
	"time"

	log "github.com/sirupsen/logrus"
)

var Loc = time.Local

// SetLocation switches the zone used for calendar-day comparisons.
func SetLocation(name string) {
	if name == "" {
		return
	}
	l, err := time.LoadLocation(name)
	if err != nil {
		log.Warnf("load location %s failed, keep %s", name, Loc)
		return
	}
	Loc = l
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = Loc
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
