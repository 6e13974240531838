package email

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Domenick1991/hotelbooking/internal/kafka"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender writes guest notifications to out. There is no SMTP delivery.
type Sender struct {
	out io.Writer
}

func NewSender() *Sender {
	return &Sender{out: os.Stdout}
}

func NewSenderTo(out io.Writer) *Sender {
	return &Sender{out: out}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, ok := Compose(event)
	if !ok {
		log.Printf("email: no template for event %s, booking %d", event.Type, event.BookingID)
		return nil
	}
	_, err := fmt.Fprintf(s.out, "To: %s\nSubject: %s\n\n%s\n", msg.To, msg.Subject, msg.Body)
	return err
}

// Compose renders the notification for event. ok is false for event types
// guests are not notified about or when there is no address.
func Compose(event kafka.BookingEvent) (Message, bool) {
	if event.GuestEmail == "" {
		return Message{}, false
	}
	stay := fmt.Sprintf("%s to %s", event.CheckIn, event.CheckOut)
	msg := Message{To: event.GuestEmail}
	switch event.Type {
	case kafka.EventBookingCreated:
		msg.Subject = fmt.Sprintf("Booking #%d confirmed", event.BookingID)
		msg.Body = fmt.Sprintf("Dear %s, room %s at %s is booked for %s. Total: %s.",
			event.GuestName, event.RoomNumber, event.HotelName, stay, formatCents(event.TotalPriceCents))
	case kafka.EventBookingUpdated:
		msg.Subject = fmt.Sprintf("Booking #%d changed", event.BookingID)
		msg.Body = fmt.Sprintf("Dear %s, your booking of room %s at %s is now %s. Total: %s.",
			event.GuestName, event.RoomNumber, event.HotelName, stay, formatCents(event.TotalPriceCents))
	case kafka.EventBookingCancelled:
		msg.Subject = fmt.Sprintf("Booking #%d cancelled", event.BookingID)
		msg.Body = fmt.Sprintf("Dear %s, your booking of room %s at %s for %s has been cancelled.",
			event.GuestName, event.RoomNumber, event.HotelName, stay)
	default:
		return Message{}, false
	}
	return msg, true
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
