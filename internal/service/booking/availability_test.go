package booking

import (
	"testing"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestIsBooked(t *testing.T) {
	existing := []domain.Booking{
		{ID: 1, CheckIn: date("2024-06-01"), CheckOut: date("2024-06-05"), Status: domain.BookingStatusConfirmed},
		{ID: 2, CheckIn: date("2024-06-10"), CheckOut: date("2024-06-12"), Status: domain.BookingStatusCancelled},
	}

	tests := []struct {
		name      string
		in, out   string
		excludeID int64
		want      bool
	}{
		{"exact overlap", "2024-06-01", "2024-06-05", 0, true},
		{"partial start", "2024-05-28", "2024-06-03", 0, true},
		{"partial end", "2024-06-04", "2024-06-08", 0, true},
		{"contained", "2024-06-02", "2024-06-03", 0, true},
		{"containing", "2024-05-01", "2024-07-01", 0, true},
		{"arrive on checkout day", "2024-06-05", "2024-06-10", 0, false},
		{"leave on checkin day", "2024-05-28", "2024-06-01", 0, false},
		{"cancelled ignored", "2024-06-10", "2024-06-12", 0, false},
		{"self excluded", "2024-06-01", "2024-06-05", 1, false},
		{"other id not excluded", "2024-06-01", "2024-06-05", 99, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stay := domain.NewStay(date(tt.in), date(tt.out))
			assert.Equal(t, tt.want, IsBooked(existing, stay, tt.excludeID))
		})
	}
}

func TestIsBooked_NoBookings(t *testing.T) {
	assert.False(t, IsBooked(nil, domain.NewStay(date("2024-06-01"), date("2024-06-02")), 0))
}

func TestOccupies(t *testing.T) {
	bookings := []domain.Booking{
		{ID: 1, CheckIn: date("2024-06-01"), CheckOut: date("2024-06-05"), Status: domain.BookingStatusConfirmed},
	}
	assert.True(t, occupies(bookings, date("2024-06-01")))
	assert.True(t, occupies(bookings, date("2024-06-04")))
	assert.False(t, occupies(bookings, date("2024-06-05")))
	assert.False(t, occupies(bookings, date("2024-05-31")))
}
