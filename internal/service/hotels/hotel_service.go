package hotels

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/repository"
	"github.com/Domenick1991/hotelbooking/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

type HotelUseCase interface {
	ListHotels(ctx context.Context, input ListHotelsInput) ([]domain.HotelView, error)
	GetHotel(ctx context.Context, id int64) (*domain.HotelView, error)
	GetRoom(ctx context.Context, id int64) (*domain.Room, error)
	ListCountries(ctx context.Context) ([]domain.Country, error)
	ListCities(ctx context.Context, countryID int64) ([]domain.City, error)
	CreateRoom(ctx context.Context, input CreateRoomInput) (*domain.Room, error)
	UpdateRoom(ctx context.Context, id int64, input UpdateRoomInput) (*domain.Room, error)
}

// HotelCache holds the unfiltered hotel listing. Implemented by the redis cache.
type HotelCache interface {
	GetHotels(ctx context.Context) ([]domain.HotelView, error)
	SetHotels(ctx context.Context, hotels []domain.HotelView) error
	InvalidateHotels(ctx context.Context) error
}

type HotelService struct {
	hotels repository.HotelRepository
	rooms  repository.RoomRepository
	cache  HotelCache
}

// ListHotelsInput filters the listing. CheckIn and CheckOut go together:
// with both set only rooms free for the whole stay are returned.
type ListHotelsInput struct {
	Country  string
	City     string
	CheckIn  *time.Time
	CheckOut *time.Time
}

type CreateRoomInput struct {
	HotelID            int64
	RoomNumber         string
	Type               string
	PricePerNightCents int64
	// Enabled defaults to true.
	Enabled *bool
}

type UpdateRoomInput struct {
	RoomNumber         *string
	Type               *string
	PricePerNightCents *int64
	Enabled            *bool
}

// cache may be nil.
func NewHotelService(hotels repository.HotelRepository, rooms repository.RoomRepository, cache HotelCache) *HotelService {
	return &HotelService{hotels: hotels, rooms: rooms, cache: cache}
}

func (s *HotelService) ListHotels(ctx context.Context, input ListHotelsInput) (_ []domain.HotelView, err error) {
	const op = "list hotels"
	ctx, span := tracing.Start(ctx, "hotels.List")
	defer func() { tracing.End(span, err) }()

	filter := repository.HotelFilter{Country: strings.TrimSpace(input.Country), City: strings.TrimSpace(input.City)}
	if input.CheckIn != nil || input.CheckOut != nil {
		verr := domain.NewValidationError(op)
		switch {
		case input.CheckIn == nil:
			verr.AddField("check_in", "is required with check_out")
		case input.CheckOut == nil:
			verr.AddField("check_out", "is required with check_in")
		default:
			stay := domain.NewStay(*input.CheckIn, *input.CheckOut)
			if err := stay.Validate(); err != nil {
				verr.AddField("check_out", err.Error())
			}
			filter.Stay = &stay
		}
		if verr.HasFields() {
			return nil, verr
		}
	}

	useCache := s.cache != nil && filter.IsZero()
	if useCache {
		if cached, err := s.cache.GetHotels(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	hotels, err := s.hotels.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if useCache {
		if err := s.cache.SetHotels(ctx, hotels); err != nil {
			log.Printf("WARNING: Failed to cache hotels: %v", err)
		}
	}
	return hotels, nil
}

func (s *HotelService) GetHotel(ctx context.Context, id int64) (*domain.HotelView, error) {
	hotel, err := s.hotels.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, hotelNotFound("get hotel", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get hotel: %w", err)
	}
	return hotel, nil
}

func (s *HotelService) GetRoom(ctx context.Context, id int64) (*domain.Room, error) {
	room, err := s.rooms.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.NotFoundError("get room", id, 0)
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

func (s *HotelService) ListCountries(ctx context.Context) ([]domain.Country, error) {
	countries, err := s.hotels.ListCountries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	return countries, nil
}

func (s *HotelService) ListCities(ctx context.Context, countryID int64) ([]domain.City, error) {
	cities, err := s.hotels.ListCities(ctx, countryID)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return cities, nil
}

func (s *HotelService) CreateRoom(ctx context.Context, input CreateRoomInput) (_ *domain.Room, err error) {
	const op = "create room"
	ctx, span := tracing.Start(ctx, "hotels.CreateRoom", attribute.Int64("hotel.id", input.HotelID))
	defer func() { tracing.End(span, err) }()

	verr := domain.NewValidationError(op)
	if input.HotelID <= 0 {
		verr.AddField("hotel_id", "must be positive")
	}
	if strings.TrimSpace(input.RoomNumber) == "" {
		verr.AddField("room_number", "is required")
	}
	if input.PricePerNightCents < 0 {
		verr.AddField("price_per_night_cents", "must not be negative")
	}
	if verr.HasFields() {
		return nil, verr
	}

	exists, err := s.hotels.Exists(ctx, input.HotelID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return nil, hotelNotFound(op, input.HotelID)
	}

	room := &domain.Room{
		HotelID:            input.HotelID,
		RoomNumber:         strings.TrimSpace(input.RoomNumber),
		Type:               strings.TrimSpace(input.Type),
		PricePerNightCents: input.PricePerNightCents,
		Available:          true,
		Enabled:            input.Enabled == nil || *input.Enabled,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, hotelNotFound(op, input.HotelID)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx)
	return room, nil
}

// UpdateRoom changes room attributes. A rate change applies to new
// bookings and to date changes only; stored totals are left as they are.
func (s *HotelService) UpdateRoom(ctx context.Context, id int64, input UpdateRoomInput) (_ *domain.Room, err error) {
	const op = "update room"
	ctx, span := tracing.Start(ctx, "hotels.UpdateRoom", attribute.Int64("room.id", id))
	defer func() { tracing.End(span, err) }()

	verr := domain.NewValidationError(op)
	if input.RoomNumber != nil && strings.TrimSpace(*input.RoomNumber) == "" {
		verr.AddField("room_number", "must not be empty")
	}
	if input.PricePerNightCents != nil && *input.PricePerNightCents < 0 {
		verr.AddField("price_per_night_cents", "must not be negative")
	}
	if verr.HasFields() {
		verr.RoomID = id
		return nil, verr
	}

	room, err := s.rooms.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.NotFoundError(op, id, 0)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if input.RoomNumber != nil {
		room.RoomNumber = strings.TrimSpace(*input.RoomNumber)
	}
	if input.Type != nil {
		room.Type = strings.TrimSpace(*input.Type)
	}
	if input.PricePerNightCents != nil {
		room.PricePerNightCents = *input.PricePerNightCents
	}
	if input.Enabled != nil {
		room.Enabled = *input.Enabled
	}

	if err := s.rooms.Update(ctx, room); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFoundError(op, id, 0)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx)
	return room, nil
}

func (s *HotelService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateHotels(ctx); err != nil {
		log.Printf("WARNING: Failed to invalidate hotels cache: %v", err)
	}
}

func hotelNotFound(op string, id int64) *domain.BookingError {
	return &domain.BookingError{Kind: domain.KindNotFound, Op: op, Err: fmt.Errorf("hotel %d not found", id)}
}

var _ HotelUseCase = (*HotelService)(nil)
