package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingUpdated   = "booking_updated"
	EventBookingCancelled = "booking_cancelled"
)

type BookingEvent struct {
	Type            string    `json:"type"`
	BookingID       int64     `json:"booking_id"`
	RoomID          int64     `json:"room_id"`
	RoomNumber      string    `json:"room_number"`
	HotelName       string    `json:"hotel_name"`
	GuestName       string    `json:"guest_name"`
	GuestEmail      string    `json:"guest_email"`
	CheckIn         string    `json:"check_in"`
	CheckOut        string    `json:"check_out"`
	TotalPriceCents int64     `json:"total_price_cents"`
	Status          string    `json:"status"`
	Version         int64     `json:"version"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType string, v *domain.BookingView) BookingEvent {
	return BookingEvent{
		Type:            eventType,
		BookingID:       v.ID,
		RoomID:          v.RoomID,
		RoomNumber:      v.RoomNumber,
		HotelName:       v.HotelName,
		GuestName:       v.GuestName,
		GuestEmail:      v.GuestEmail,
		CheckIn:         v.CheckIn.Format(domain.DateLayout),
		CheckOut:        v.CheckOut.Format(domain.DateLayout),
		TotalPriceCents: v.TotalPriceCents,
		Status:          string(v.Status),
		Version:         v.Version,
		OccurredAt:      time.Now().UTC(),
	}
}

// EventType lets transports that route by type (RabbitMQ) pick the key.
func (e BookingEvent) EventType() string {
	return e.Type
}

// Key partitions events by booking so one booking's events stay ordered.
func (e BookingEvent) Key() string {
	return fmt.Sprintf("booking-%d", e.BookingID)
}

func DecodeBookingEvent(data []byte) (BookingEvent, error) {
	var event BookingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return BookingEvent{}, fmt.Errorf("decode booking event: %w", err)
	}
	if event.Type == "" {
		return BookingEvent{}, fmt.Errorf("decode booking event: missing type")
	}
	return event, nil
}
