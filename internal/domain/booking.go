package domain

import (
	"fmt"
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// ParseBookingStatus accepts the legacy spellings ("Confirmed", "cancelled", ...).
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch BookingStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case BookingStatusConfirmed:
		return BookingStatusConfirmed, nil
	case BookingStatusCancelled, "CANCELED":
		return BookingStatusCancelled, nil
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

type Booking struct {
	ID              int64
	RoomID          int64
	GuestName       string
	GuestEmail      string
	CheckIn         time.Time
	CheckOut        time.Time
	TotalPriceCents int64
	Status          BookingStatus
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (b *Booking) Stay() Stay {
	return Stay{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed
}

// BookingView is the read-side projection of a booking joined with its
// room, hotel, city and country.
type BookingView struct {
	Booking
	RoomNumber         string
	RoomType           string
	PricePerNightCents int64
	HotelID            int64
	HotelName          string
	HotelAddress       string
	CityName           string
	CountryName        string
	CountryCode        string
}
