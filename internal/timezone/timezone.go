// Package timezone converts local wall-clock values to UTC instants and
// renders instants in a care recipient's (or viewer's) IANA zone.
package timezone

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// NotSet is rendered for absent instants.
	NotSet = "Not set"

	DatePattern     = "dd MMM yyyy"
	DateTimePattern = "dd MMM yyyy, hh:mm a"
	OffsetISO       = "yyyy-MM-dd'T'HH:mm:ssXXX"
)

var (
	defaultMu  sync.RWMutex
	defaultLoc = time.Local

	cacheMu sync.RWMutex
	zones   = map[string]*time.Location{}
)

// localLayouts are the wall-clock forms accepted from forms and imports.
var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// SetDefault sets the zone used when no zone (or an unknown one) is given.
func SetDefault(zone string) error {
	if zone == "" {
		return nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return fmt.Errorf("failed to load default zone %q: %w", zone, err)
	}
	defaultMu.Lock()
	defaultLoc = loc
	defaultMu.Unlock()
	return nil
}

// Default returns the fallback viewer zone.
func Default() *time.Location {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLoc
}

// Valid reports whether zone names a loadable IANA zone.
func Valid(zone string) bool {
	if zone == "" {
		return false
	}
	_, err := lookup(zone)
	return err == nil
}

// Load resolves zone, falling back to Default for empty or unknown names.
func Load(zone string) *time.Location {
	if zone == "" {
		return Default()
	}
	loc, err := lookup(zone)
	if err != nil {
		return Default()
	}
	return loc
}

func lookup(zone string) (*time.Location, error) {
	cacheMu.RLock()
	loc, ok := zones[zone]
	cacheMu.RUnlock()
	if ok {
		return loc, nil
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	zones[zone] = loc
	cacheMu.Unlock()
	return loc, nil
}

// ToUTC interprets local as a wall-clock time in zone and returns the UTC
// instant. Values that already carry an offset keep it.
func ToUTC(local string, zone string) (time.Time, error) {
	local = strings.TrimSpace(local)
	if local == "" {
		return time.Time{}, fmt.Errorf("empty local time")
	}

	if t, err := time.Parse(time.RFC3339, local); err == nil {
		return t.UTC(), nil
	}

	loc := Load(zone)
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, local, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised local time %q", local)
}

// ValidLocal reports whether s parses as a wall-clock or RFC 3339 value.
func ValidLocal(s string) bool {
	_, err := ToUTC(s, "UTC")
	return err == nil
}

// FormatInZone renders t in zone using a date-fns style pattern.
func FormatInZone(t *time.Time, zone, pattern string) string {
	if t == nil || t.IsZero() {
		return NotSet
	}
	return t.In(Load(zone)).Format(Layout(pattern))
}

// FormatDate renders a calendar date without zone conversion.
func FormatDate(d *time.Time, pattern string) string {
	if d == nil || d.IsZero() {
		return NotSet
	}
	return d.Format(Layout(pattern))
}

// ToZonedOffsetISOString renders t as wall-clock time in zone with an
// explicit numeric offset, e.g. 2024-03-10T15:30:00+03:00.
func ToZonedOffsetISOString(t time.Time, zone string) string {
	return t.In(Load(zone)).Format(Layout(OffsetISO))
}
