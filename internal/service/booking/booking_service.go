package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/kafka"
	"github.com/Domenick1991/hotelbooking/internal/repository"
	"github.com/Domenick1991/hotelbooking/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

type BookingUseCase interface {
	CheckAvailability(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) (bool, error)
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.BookingView, error)
	UpdateBooking(ctx context.Context, id int64, input UpdateBookingInput) (*domain.BookingView, error)
	CancelBooking(ctx context.Context, id int64) (*domain.BookingView, error)
	DeleteBooking(ctx context.Context, id int64) error
	GetBooking(ctx context.Context, id int64) (*domain.BookingView, error)
	ListBookings(ctx context.Context, input ListBookingsInput) ([]domain.BookingView, error)
	RefreshRoomFlags(ctx context.Context, day time.Time) (int64, error)
}

// RoomLocker is a lock shared between API instances, taken before the
// database transaction. Implemented by the redis cache.
type RoomLocker interface {
	AcquireRoomLock(ctx context.Context, roomID int64, ttl time.Duration) (string, bool, error)
	ReleaseRoomLock(ctx context.Context, roomID int64, token string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	rooms              repository.RoomRepository
	locker             RoomLocker
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	lockTTL            time.Duration
	lockWait           time.Duration
	now                func() time.Time
}

type CreateBookingInput struct {
	RoomID     int64
	GuestName  string
	GuestEmail string
	CheckIn    time.Time
	CheckOut   time.Time
}

// UpdateBookingInput holds the fields to change; nil leaves a field as is.
// A non-zero ExpectedVersion must match the stored version.
type UpdateBookingInput struct {
	GuestName       *string
	GuestEmail      *string
	CheckIn         *time.Time
	CheckOut        *time.Time
	Status          *string
	ExpectedVersion int64
}

type ListBookingsInput struct {
	RoomID     int64
	GuestEmail string
	Status     string
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

// WithRoomLocker serializes writers of a room across processes. wait bounds
// how long a request retries before giving up with a conflict.
func WithRoomLocker(locker RoomLocker, ttl, wait time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.locker = locker
		s.lockTTL = ttl
		s.lockWait = wait
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

// producer may be nil to disable events.
func NewBookingService(
	bookings repository.BookingRepository,
	rooms repository.RoomRepository,
	producer Producer,
	bookingTopic string,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		rooms:        rooms,
		producer:     producer,
		bookingTopic: bookingTopic,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (_ *domain.BookingView, err error) {
	const op = "create booking"
	ctx, span := tracing.Start(ctx, "booking.Create", attribute.Int64("room.id", input.RoomID))
	defer func() { tracing.End(span, err) }()

	stay := domain.NewStay(input.CheckIn, input.CheckOut)
	if err := validateCreate(op, input, stay); err != nil {
		return nil, err
	}

	release, err := s.acquireRoomLock(ctx, op, input.RoomID)
	if err != nil {
		return nil, err
	}
	defer release()

	created := domain.Booking{
		RoomID:     input.RoomID,
		GuestName:  strings.TrimSpace(input.GuestName),
		GuestEmail: strings.TrimSpace(input.GuestEmail),
		CheckIn:    stay.CheckIn,
		CheckOut:   stay.CheckOut,
		Status:     domain.BookingStatusConfirmed,
	}
	err = s.bookings.InTx(ctx, func(ctx context.Context, tx repository.BookingTx) error {
		room, err := tx.LockRoom(ctx, input.RoomID)
		if err != nil {
			return err
		}
		if !room.Enabled {
			return domain.UnavailableError(op, room.ID, &stay)
		}

		existing, err := tx.FindBookingsForRoom(ctx, room.ID, 0)
		if err != nil {
			return err
		}
		if IsBooked(existing, stay, 0) {
			return domain.ConflictError(op, room.ID, 0, &stay, errRoomBooked)
		}

		total, err := ComputeTotal(room.PricePerNightCents, stay.CheckIn, stay.CheckOut)
		if err != nil {
			return err
		}
		created.TotalPriceCents = total

		if err := tx.InsertBooking(ctx, &created); err != nil {
			return err
		}
		return tx.SetRoomAvailable(ctx, room.ID, false)
	})
	if err != nil {
		return nil, s.translate(ctx, op, err, input.RoomID, 0, &stay)
	}

	view, err := s.bookings.GetBookingView(ctx, created.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: load booking %d: %w", op, created.ID, err)
	}
	s.publish(ctx, kafka.EventBookingCreated, view)
	return view, nil
}

func (s *BookingService) UpdateBooking(ctx context.Context, id int64, input UpdateBookingInput) (_ *domain.BookingView, err error) {
	const op = "update booking"
	ctx, span := tracing.Start(ctx, "booking.Update", attribute.Int64("booking.id", id))
	defer func() { tracing.End(span, err) }()

	status, err := validateUpdate(op, input)
	if err != nil {
		return nil, err
	}

	current, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, s.translate(ctx, op, err, 0, id, nil)
	}
	if !current.IsConfirmed() {
		return nil, domain.InvalidStateError(op, id, current.Status)
	}
	expected := current.Version
	if input.ExpectedVersion != 0 {
		expected = input.ExpectedVersion
	}

	release, err := s.acquireRoomLock(ctx, op, current.RoomID)
	if err != nil {
		return nil, err
	}
	defer release()

	stay := current.Stay()
	cancelled := false
	err = s.bookings.InTx(ctx, func(ctx context.Context, tx repository.BookingTx) error {
		room, err := tx.LockRoom(ctx, current.RoomID)
		if err != nil {
			return err
		}
		b, err := tx.GetBooking(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrVersionMismatch
		}
		if err != nil {
			return err
		}
		if b.Version != expected {
			return repository.ErrVersionMismatch
		}
		if !b.IsConfirmed() {
			return domain.InvalidStateError(op, id, b.Status)
		}

		if input.GuestName != nil {
			b.GuestName = strings.TrimSpace(*input.GuestName)
		}
		if input.GuestEmail != nil {
			b.GuestEmail = strings.TrimSpace(*input.GuestEmail)
		}
		cancelled = status == domain.BookingStatusCancelled

		stay = b.Stay()
		if input.CheckIn != nil {
			stay.CheckIn = domain.Day(*input.CheckIn)
		}
		if input.CheckOut != nil {
			stay.CheckOut = domain.Day(*input.CheckOut)
		}
		if !stay.Equal(b.Stay()) {
			if err := validateStay(op, stay, stay.CheckIn, stay.CheckOut); err != nil {
				return err
			}
			if !cancelled {
				others, err := tx.FindBookingsForRoom(ctx, room.ID, id)
				if err != nil {
					return err
				}
				if IsBooked(others, stay, id) {
					return domain.ConflictError(op, room.ID, id, &stay, errRoomBooked)
				}
			}
			total, err := ComputeTotal(room.PricePerNightCents, stay.CheckIn, stay.CheckOut)
			if err != nil {
				return err
			}
			b.CheckIn, b.CheckOut, b.TotalPriceCents = stay.CheckIn, stay.CheckOut, total
		}
		if cancelled {
			b.Status = domain.BookingStatusCancelled
		}

		if err := tx.UpdateBooking(ctx, b, expected); err != nil {
			return err
		}
		if cancelled {
			return s.syncRoomFlag(ctx, tx, room.ID, id)
		}
		return nil
	})
	if err != nil {
		return nil, s.translate(ctx, op, err, current.RoomID, id, &stay)
	}

	view, err := s.bookings.GetBookingView(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: load booking %d: %w", op, id, err)
	}
	if cancelled {
		s.publish(ctx, kafka.EventBookingCancelled, view)
	} else {
		s.publish(ctx, kafka.EventBookingUpdated, view)
	}
	return view, nil
}

// CancelBooking marks the booking cancelled. Cancelling twice returns the
// booking unchanged.
func (s *BookingService) CancelBooking(ctx context.Context, id int64) (_ *domain.BookingView, err error) {
	const op = "cancel booking"
	ctx, span := tracing.Start(ctx, "booking.Cancel", attribute.Int64("booking.id", id))
	defer func() { tracing.End(span, err) }()

	current, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, s.translate(ctx, op, err, 0, id, nil)
	}

	changed := false
	if current.IsConfirmed() {
		release, err := s.acquireRoomLock(ctx, op, current.RoomID)
		if err != nil {
			return nil, err
		}
		defer release()

		err = s.bookings.InTx(ctx, func(ctx context.Context, tx repository.BookingTx) error {
			if _, err := tx.LockRoom(ctx, current.RoomID); err != nil {
				return err
			}
			b, err := tx.GetBooking(ctx, id)
			if err != nil {
				return err
			}
			if !b.IsConfirmed() {
				return nil
			}
			b.Status = domain.BookingStatusCancelled
			if err := tx.UpdateBooking(ctx, b, b.Version); err != nil {
				return err
			}
			changed = true
			return s.syncRoomFlag(ctx, tx, current.RoomID, id)
		})
		if err != nil {
			stay := current.Stay()
			return nil, s.translate(ctx, op, err, current.RoomID, id, &stay)
		}
	}

	view, err := s.bookings.GetBookingView(ctx, id)
	if err != nil {
		return nil, s.translate(ctx, op, err, current.RoomID, id, nil)
	}
	if changed {
		s.publish(ctx, kafka.EventBookingCancelled, view)
	}
	return view, nil
}

// DeleteBooking removes the booking row. The room flag is recomputed the
// same way as on cancel.
func (s *BookingService) DeleteBooking(ctx context.Context, id int64) (err error) {
	const op = "delete booking"
	ctx, span := tracing.Start(ctx, "booking.Delete", attribute.Int64("booking.id", id))
	defer func() { tracing.End(span, err) }()

	current, err := s.bookings.GetBookingView(ctx, id)
	if err != nil {
		return s.translate(ctx, op, err, 0, id, nil)
	}

	release, err := s.acquireRoomLock(ctx, op, current.RoomID)
	if err != nil {
		return err
	}
	defer release()

	err = s.bookings.InTx(ctx, func(ctx context.Context, tx repository.BookingTx) error {
		if _, err := tx.LockRoom(ctx, current.RoomID); err != nil {
			return err
		}
		if err := tx.DeleteBooking(ctx, id); err != nil {
			return err
		}
		return s.syncRoomFlag(ctx, tx, current.RoomID, id)
	})
	if err != nil {
		return s.translate(ctx, op, err, current.RoomID, id, nil)
	}

	if current.IsConfirmed() {
		current.Status = domain.BookingStatusCancelled
		s.publish(ctx, kafka.EventBookingCancelled, current)
	}
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*domain.BookingView, error) {
	view, err := s.bookings.GetBookingView(ctx, id)
	if err != nil {
		return nil, s.translate(ctx, "get booking", err, 0, id, nil)
	}
	return view, nil
}

func (s *BookingService) ListBookings(ctx context.Context, input ListBookingsInput) ([]domain.BookingView, error) {
	const op = "list bookings"
	filter := repository.BookingFilter{RoomID: input.RoomID, GuestEmail: strings.TrimSpace(input.GuestEmail)}
	if input.Status != "" {
		status, err := domain.ParseBookingStatus(input.Status)
		if err != nil {
			verr := domain.NewValidationError(op)
			verr.AddField("status", err.Error())
			return nil, verr
		}
		filter.Status = status
	}

	views, err := s.bookings.ListBookingViews(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return views, nil
}

// RefreshRoomFlags recomputes every room's coarse flag for the UTC date of day and returns
// how many flags changed.
func (s *BookingService) RefreshRoomFlags(ctx context.Context, day time.Time) (_ int64, err error) {
	ctx, span := tracing.Start(ctx, "booking.RefreshRoomFlags")
	defer func() { tracing.End(span, err) }()

	n, err := s.rooms.RecomputeAvailability(ctx, domain.Day(day.UTC()))
	if err != nil {
		return 0, fmt.Errorf("refresh room flags: %w", err)
	}
	return n, nil
}

// syncRoomFlag marks the room available iff no other confirmed booking
// occupies today.
func (s *BookingService) syncRoomFlag(ctx context.Context, tx repository.BookingTx, roomID, excludeID int64) error {
	others, err := tx.FindBookingsForRoom(ctx, roomID, excludeID)
	if err != nil {
		return err
	}
	return tx.SetRoomAvailable(ctx, roomID, !occupies(others, s.now().UTC()))
}

// acquireRoomLock takes the distributed room lock when one is configured,
// retrying with backoff until lockWait runs out.
func (s *BookingService) acquireRoomLock(ctx context.Context, op string, roomID int64) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	backoff := 10 * time.Millisecond
	for {
		token, ok, err := s.locker.AcquireRoomLock(waitCtx, roomID, s.lockTTL)
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("%s: acquire room lock: %w", op, err)
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
				defer cancel()
				if err := s.locker.ReleaseRoomLock(releaseCtx, roomID, token); err != nil {
					log.Printf("WARNING: release lock for room %d: %v", roomID, err)
				}
			}, nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, domain.ConflictError(op, roomID, 0, nil, repository.ErrLockTimeout)
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}

// translate turns gateway errors into caller-facing kinds. Anything it does
// not recognise is a storage fault and is wrapped as is.
func (s *BookingService) translate(ctx context.Context, op string, err error, roomID, bookingID int64, stay *domain.Stay) error {
	if domain.KindOf(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return domain.NotFoundError(op, roomID, bookingID)
	case errors.Is(err, repository.ErrVersionMismatch):
		exists, xerr := s.bookings.BookingExists(ctx, bookingID)
		if xerr != nil {
			return fmt.Errorf("%s: %w", op, xerr)
		}
		if !exists {
			return domain.NotFoundError(op, 0, bookingID)
		}
		return domain.ConflictError(op, roomID, bookingID, stay, err)
	case errors.Is(err, repository.ErrLockTimeout),
		errors.Is(err, repository.ErrTxAborted),
		errors.Is(err, repository.ErrOverlap):
		return domain.ConflictError(op, roomID, bookingID, stay, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *BookingService) publish(ctx context.Context, eventType string, view *domain.BookingView) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.NewBookingEvent(eventType, view)
	if err := s.producer.Publish(ctx, s.bookingTopic, event.Key(), event); err != nil {
		log.Printf("WARNING: Failed to publish %s event for booking %d: %v", eventType, view.ID, err)
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, event.Key(), event); err != nil {
			log.Printf("WARNING: Failed to publish %s notification for booking %d: %v", eventType, view.ID, err)
		}
	}
}

var errRoomBooked = errors.New("room already booked for these dates")

func validateCreate(op string, input CreateBookingInput, stay domain.Stay) error {
	verr := domain.NewValidationError(op)
	if input.RoomID <= 0 {
		verr.AddField("room_id", "must be positive")
	}
	if strings.TrimSpace(input.GuestName) == "" {
		verr.AddField("guest_name", "is required")
	}
	validateEmail(verr, input.GuestEmail)
	if err := validateStay(op, stay, input.CheckIn, input.CheckOut); err != nil {
		var se *domain.BookingError
		if errors.As(err, &se) {
			for field, msgs := range se.Fields {
				for _, msg := range msgs {
					verr.AddField(field, msg)
				}
			}
		}
	}
	if verr.HasFields() {
		verr.RoomID = input.RoomID
		verr.Stay = &stay
		return verr
	}
	return nil
}

func validateUpdate(op string, input UpdateBookingInput) (domain.BookingStatus, error) {
	verr := domain.NewValidationError(op)
	if input.GuestName != nil && strings.TrimSpace(*input.GuestName) == "" {
		verr.AddField("guest_name", "must not be empty")
	}
	if input.GuestEmail != nil {
		validateEmail(verr, *input.GuestEmail)
	}
	if input.CheckIn != nil && input.CheckIn.IsZero() {
		verr.AddField("check_in", "must not be empty")
	}
	if input.CheckOut != nil && input.CheckOut.IsZero() {
		verr.AddField("check_out", "must not be empty")
	}
	if input.ExpectedVersion < 0 {
		verr.AddField("version", "must be positive")
	}

	var status domain.BookingStatus
	if input.Status != nil {
		parsed, err := domain.ParseBookingStatus(*input.Status)
		if err != nil {
			verr.AddField("status", err.Error())
		}
		status = parsed
	}
	if verr.HasFields() {
		return "", verr
	}
	return status, nil
}

func validateEmail(verr *domain.BookingError, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		verr.AddField("guest_email", "is required")
		return
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		verr.AddField("guest_email", "is not a valid address")
	}
}

var _ BookingUseCase = (*BookingService)(nil)
