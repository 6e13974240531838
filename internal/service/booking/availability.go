package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// IsBooked reports whether any confirmed booking other than excludeID
// overlaps stay.
func IsBooked(bookings []domain.Booking, stay domain.Stay, excludeID int64) bool {
	for i := range bookings {
		b := &bookings[i]
		if !b.IsConfirmed() || (excludeID != 0 && b.ID == excludeID) {
			continue
		}
		if b.Stay().Overlaps(stay) {
			return true
		}
	}
	return false
}

// occupies reports whether a confirmed booking covers the night of day.
func occupies(bookings []domain.Booking, day time.Time) bool {
	for i := range bookings {
		if bookings[i].IsConfirmed() && bookings[i].Stay().Contains(day) {
			return true
		}
	}
	return false
}

// IsBooked checks committed bookings of roomID. An unknown room has no
// bookings and is reported as not booked.
func (s *BookingService) IsBooked(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) (bool, error) {
	const op = "check availability"

	stay := domain.NewStay(checkIn, checkOut)
	if err := validateStay(op, stay, checkIn, checkOut); err != nil {
		return false, err
	}

	bookings, err := s.bookings.FindBookingsForRoom(ctx, roomID, excludeBookingID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return IsBooked(bookings, stay, excludeBookingID), nil
}

// CheckAvailability is true when the room is free for the whole stay.
func (s *BookingService) CheckAvailability(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) (available bool, err error) {
	ctx, span := tracing.Start(ctx, "booking.CheckAvailability", attribute.Int64("room.id", roomID))
	defer func() { tracing.End(span, err) }()

	booked, err := s.IsBooked(ctx, roomID, checkIn, checkOut, excludeBookingID)
	if err != nil {
		return false, err
	}
	return !booked, nil
}

func validateStay(op string, stay domain.Stay, checkIn, checkOut time.Time) error {
	verr := domain.NewValidationError(op)
	if checkIn.IsZero() {
		verr.AddField("check_in", "is required")
	}
	if checkOut.IsZero() {
		verr.AddField("check_out", "is required")
	}
	if !verr.HasFields() && stay.Validate() != nil {
		verr.AddField("check_out", "must be after check_in")
	}
	if verr.HasFields() {
		verr.Stay = &stay
		return verr
	}
	return nil
}
