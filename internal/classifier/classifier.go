// Package classifier splits dated records into upcoming and past buckets.
//
// Each record kind supplies a Policy: which date decides the bucket, what
// happens to records without that date, and how each bucket is ordered.
// "Today" is the calendar date of now in now's location, so callers pass
// the viewer's clock.
package classifier

import (
	"sort"
	"time"
)

// NullDatePolicy decides the bucket of a record whose key date is absent
// or unparseable.
type NullDatePolicy int

const (
	AlwaysUpcoming NullDatePolicy = iota
	AlwaysPast
	Excluded
)

func (p NullDatePolicy) String() string {
	switch p {
	case AlwaysUpcoming:
		return "always_upcoming"
	case AlwaysPast:
		return "always_past"
	case Excluded:
		return "excluded"
	}
	return "unknown"
}

// Policy describes how one record kind is classified.
type Policy[T any] struct {
	// Key returns the date that decides the bucket, nil when absent.
	Key func(T) *time.Time
	// Calendar marks keys that are calendar dates rather than instants.
	// Their year, month and day are compared as stored instead of being
	// converted into the viewer zone first.
	Calendar bool
	Nulls    NullDatePolicy
	// Upcoming and Past order each bucket. Nil leaves input order.
	Upcoming func(a, b T) bool
	Past     func(a, b T) bool
}

// Buckets is the result of Partition.
type Buckets[T any] struct {
	Upcoming []T
	Past     []T
}

// Partition classifies items under p. A record is upcoming when its key
// date is on or after today. Both slices are non-nil.
func Partition[T any](items []T, p Policy[T], now time.Time) Buckets[T] {
	out := Buckets[T]{Upcoming: []T{}, Past: []T{}}
	today := civil(now)

	for _, item := range items {
		key := p.Key(item)
		if key == nil || key.IsZero() {
			switch p.Nulls {
			case AlwaysUpcoming:
				out.Upcoming = append(out.Upcoming, item)
			case AlwaysPast:
				out.Past = append(out.Past, item)
			}
			continue
		}

		var day time.Time
		if p.Calendar {
			day = civil(*key)
		} else {
			day = civil(key.In(now.Location()))
		}
		if day.Before(today) {
			out.Past = append(out.Past, item)
		} else {
			out.Upcoming = append(out.Upcoming, item)
		}
	}

	if p.Upcoming != nil {
		sort.SliceStable(out.Upcoming, func(i, j int) bool { return p.Upcoming(out.Upcoming[i], out.Upcoming[j]) })
	}
	if p.Past != nil {
		sort.SliceStable(out.Past, func(i, j int) bool { return p.Past(out.Past[i], out.Past[j]) })
	}
	return out
}

// civil drops the clock and zone of t, keeping its wall-clock date.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ByTimeAsc orders by key ascending with absent keys last.
func ByTimeAsc[T any](key func(T) *time.Time) func(a, b T) bool {
	return func(a, b T) bool {
		ta, tb := key(a), key(b)
		switch {
		case absent(ta):
			return false
		case absent(tb):
			return true
		}
		return ta.Before(*tb)
	}
}

// ByTimeDesc orders by key descending with absent keys last.
func ByTimeDesc[T any](key func(T) *time.Time) func(a, b T) bool {
	return func(a, b T) bool {
		ta, tb := key(a), key(b)
		switch {
		case absent(ta):
			return false
		case absent(tb):
			return true
		}
		return ta.After(*tb)
	}
}

func absent(t *time.Time) bool {
	return t == nil || t.IsZero()
}

// WithinWeek reports whether t falls in [now, now+7d].
func WithinWeek(t *time.Time, now time.Time) bool {
	if absent(t) {
		return false
	}
	return !t.Before(now) && !t.After(now.Add(7*24*time.Hour))
}
