package booking

import (
	"math"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
)

// ComputeTotal prices a stay in cents: rate times whole nights. Fewer than
// one night, a negative rate or an int64 overflow is a validation error.
func ComputeTotal(pricePerNightCents int64, checkIn, checkOut time.Time) (int64, error) {
	verr := domain.NewValidationError("compute total")

	nights := domain.NewStay(checkIn, checkOut).Nights()
	if nights < 1 {
		verr.AddField("check_out", "must be at least one night after check_in")
	}
	if pricePerNightCents < 0 {
		verr.AddField("price_per_night_cents", "must not be negative")
	}
	if verr.HasFields() {
		return 0, verr
	}

	if pricePerNightCents > 0 && nights > math.MaxInt64/pricePerNightCents {
		verr.AddField("total_price_cents", "overflows")
		return 0, verr
	}
	return pricePerNightCents * nights, nil
}
