package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage form of calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date without a zone. A zero Date is "not set"; a Date
// built from an unparseable string is not set but remembers it was malformed.
type Date struct {
	Time  time.Time
	Valid bool
	raw   string
}

// NewDate truncates t to its calendar date.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp. Blank input is a
// null date; anything else unparseable is a malformed one.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return NewDate(t)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return NewDate(t)
	}
	return Date{raw: s}
}

// Malformed reports whether the date was supplied but could not be parsed.
func (d Date) Malformed() bool {
	return !d.Valid && d.raw != ""
}

// Ptr returns nil for unset or malformed dates.
func (d Date) Ptr() *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}

// In returns local midnight of the date in loc.
func (d Date) In(loc *time.Location) *time.Time {
	if !d.Valid {
		return nil
	}
	y, m, day := d.Time.Date()
	t := time.Date(y, m, day, 0, 0, 0, 0, loc)
	return &t
}

func (d Date) String() string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	*d = ParseDate(s)
	return nil
}

func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = NewDate(v)
	case []byte:
		*d = ParseDate(string(v))
	case string:
		*d = ParseDate(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", value)
	}
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if !d.Valid {
		return nil, nil
	}
	return d.String(), nil
}
