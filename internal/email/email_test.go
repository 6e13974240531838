package email

import (
	"bytes"
	"context"
	"testing"

	"github.com/Domenick1991/hotelbooking/internal/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(eventType string) kafka.BookingEvent {
	return kafka.BookingEvent{
		Type:            eventType,
		BookingID:       12,
		RoomNumber:      "101",
		HotelName:       "Grand Hotel",
		GuestName:       "Ann",
		GuestEmail:      "ann@example.com",
		CheckIn:         "2024-06-01",
		CheckOut:        "2024-06-04",
		TotalPriceCents: 30050,
	}
}

func TestCompose(t *testing.T) {
	msg, ok := Compose(testEvent(kafka.EventBookingCreated))
	require.True(t, ok)
	assert.Equal(t, "ann@example.com", msg.To)
	assert.Equal(t, "Booking #12 confirmed", msg.Subject)
	assert.Contains(t, msg.Body, "2024-06-01 to 2024-06-04")
	assert.Contains(t, msg.Body, "300.50")

	msg, ok = Compose(testEvent(kafka.EventBookingCancelled))
	require.True(t, ok)
	assert.Equal(t, "Booking #12 cancelled", msg.Subject)

	_, ok = Compose(testEvent("room_disabled"))
	assert.False(t, ok)

	noAddress := testEvent(kafka.EventBookingUpdated)
	noAddress.GuestEmail = ""
	_, ok = Compose(noAddress)
	assert.False(t, ok)
}

func TestSender_Send(t *testing.T) {
	var out bytes.Buffer
	s := NewSenderTo(&out)

	require.NoError(t, s.Send(context.Background(), testEvent(kafka.EventBookingUpdated)))
	assert.Contains(t, out.String(), "Subject: Booking #12 changed")

	out.Reset()
	require.NoError(t, s.Send(context.Background(), testEvent("unknown")))
	assert.Empty(t, out.String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, testEvent(kafka.EventBookingCreated)), context.Canceled)
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "0.05", formatCents(5))
	assert.Equal(t, "1500.00", formatCents(150000))
	assert.Equal(t, "-2.10", formatCents(-210))
}
