package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionMismatch = errors.New("booking was modified concurrently")
	ErrLockTimeout     = errors.New("timed out waiting for room lock")
	ErrOverlap         = errors.New("overlapping confirmed booking")
	ErrTxAborted       = errors.New("transaction aborted by concurrent writer")
)

// BookingTx is the set of gateway operations available inside one atomic
// unit. Nothing written through it is visible to others until InTx returns
// without error.
type BookingTx interface {
	// LockRoom must be the first call of a booking mutation: it serializes
	// writers of the same room until the transaction ends.
	LockRoom(ctx context.Context, roomID int64) (*domain.Room, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	// FindBookingsForRoom returns confirmed bookings of the room, skipping
	// excludeID when it is non-zero.
	FindBookingsForRoom(ctx context.Context, roomID, excludeID int64) ([]domain.Booking, error)
	InsertBooking(ctx context.Context, b *domain.Booking) error
	// UpdateBooking writes b if the stored version still equals
	// expectedVersion and bumps b.Version.
	UpdateBooking(ctx context.Context, b *domain.Booking, expectedVersion int64) error
	DeleteBooking(ctx context.Context, id int64) error
	SetRoomAvailable(ctx context.Context, roomID int64, available bool) error
}

type BookingFilter struct {
	RoomID     int64
	GuestEmail string
	Status     domain.BookingStatus
}

type BookingRepository interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx BookingTx) error) error
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	BookingExists(ctx context.Context, id int64) (bool, error)
	FindBookingsForRoom(ctx context.Context, roomID, excludeID int64) ([]domain.Booking, error)
	GetBookingView(ctx context.Context, id int64) (*domain.BookingView, error)
	ListBookingViews(ctx context.Context, filter BookingFilter) ([]domain.BookingView, error)
}

type RoomRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
	Create(ctx context.Context, room *domain.Room) error
	Update(ctx context.Context, room *domain.Room) error
	// RecomputeAvailability resets every room's coarse flag from the
	// booking set: available iff no confirmed booking occupies day.
	RecomputeAvailability(ctx context.Context, day time.Time) (int64, error)
}

// HotelFilter narrows hotel listings. With a Stay set, only rooms that are
// enabled and free for the whole stay are returned, and hotels without such
// rooms are dropped.
type HotelFilter struct {
	Country string
	City    string
	Stay    *domain.Stay
}

func (f HotelFilter) IsZero() bool {
	return f.Country == "" && f.City == "" && f.Stay == nil
}

type HotelRepository interface {
	List(ctx context.Context, filter HotelFilter) ([]domain.HotelView, error)
	GetByID(ctx context.Context, id int64) (*domain.HotelView, error)
	Exists(ctx context.Context, id int64) (bool, error)
	ListCountries(ctx context.Context) ([]domain.Country, error)
	ListCities(ctx context.Context, countryID int64) ([]domain.City, error)
}
