package domain

import (
	"errors"
	"time"
)

const DateLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

var ErrEmptyStay = errors.New("check-out must be after check-in")

// Stay is a half-open date interval [CheckIn, CheckOut): the check-out day
// is neither occupied nor billed.
type Stay struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewStay normalizes both ends to UTC calendar dates.
func NewStay(checkIn, checkOut time.Time) Stay {
	return Stay{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
}

// ParseStay parses two YYYY-MM-DD dates.
func ParseStay(checkIn, checkOut string) (Stay, error) {
	in, err := time.Parse(DateLayout, checkIn)
	if err != nil {
		return Stay{}, err
	}
	out, err := time.Parse(DateLayout, checkOut)
	if err != nil {
		return Stay{}, err
	}
	return NewStay(in, out), nil
}

// Day truncates t to midnight UTC of its calendar date in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s Stay) Validate() error {
	if !s.CheckOut.After(s.CheckIn) {
		return ErrEmptyStay
	}
	return nil
}

// Overlaps reports whether the two intervals share at least one night.
func (s Stay) Overlaps(other Stay) bool {
	return s.CheckIn.Before(other.CheckOut) && s.CheckOut.After(other.CheckIn)
}

// Contains reports whether day is one of the occupied nights.
func (s Stay) Contains(day time.Time) bool {
	day = Day(day)
	return !day.Before(s.CheckIn) && day.Before(s.CheckOut)
}

// Nights is the number of calendar days between check-in and check-out.
// It is zero or negative for an invalid stay.
func (s Stay) Nights() int64 {
	return (Day(s.CheckOut).Unix() - Day(s.CheckIn).Unix()) / secondsPerDay
}

func (s Stay) Equal(other Stay) bool {
	return s.CheckIn.Equal(other.CheckIn) && s.CheckOut.Equal(other.CheckOut)
}

func (s Stay) String() string {
	return "[" + s.CheckIn.Format(DateLayout) + ", " + s.CheckOut.Format(DateLayout) + ")"
}
