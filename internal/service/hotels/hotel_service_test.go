package hotels

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/repository"
	"github.com/Domenick1991/hotelbooking/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetHotels(ctx context.Context) ([]domain.HotelView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HotelView), args.Error(1)
}

func (m *MockCache) SetHotels(ctx context.Context, hotels []domain.HotelView) error {
	args := m.Called(ctx, hotels)
	return args.Error(0)
}

func (m *MockCache) InvalidateHotels(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newSeeded() (*memory.Store, *HotelService, *MockCache) {
	store := memory.NewStore(time.Second)
	store.Seed()
	cache := &MockCache{}
	return store, NewHotelService(store.Hotels(), store.Rooms(), cache), cache
}

func day(s string) *time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestHotelService_ListHotels_CacheMiss(t *testing.T) {
	_, service, cache := newSeeded()

	// Настройка моков
	cache.On("GetHotels", mock.Anything).Return(nil, nil).Once()
	cache.On("SetHotels", mock.Anything, mock.MatchedBy(func(h []domain.HotelView) bool { return len(h) == 10 })).Return(nil).Once()

	hotels, err := service.ListHotels(context.Background(), ListHotelsInput{})

	require.NoError(t, err)
	assert.Len(t, hotels, 10)
	cache.AssertExpectations(t)
}

func TestHotelService_ListHotels_CacheHit(t *testing.T) {
	_, service, cache := newSeeded()
	cached := []domain.HotelView{{Hotel: domain.Hotel{ID: 77, Name: "Cached"}}}

	cache.On("GetHotels", mock.Anything).Return(cached, nil).Once()

	hotels, err := service.ListHotels(context.Background(), ListHotelsInput{})

	require.NoError(t, err)
	assert.Equal(t, cached, hotels)
	cache.AssertNotCalled(t, "SetHotels", mock.Anything, mock.Anything)
}

func TestHotelService_ListHotels_CacheErrorFallsBack(t *testing.T) {
	_, service, cache := newSeeded()

	cache.On("GetHotels", mock.Anything).Return(nil, errors.New("redis down")).Once()
	cache.On("SetHotels", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()

	hotels, err := service.ListHotels(context.Background(), ListHotelsInput{})

	require.NoError(t, err)
	assert.Len(t, hotels, 10)
}

func TestHotelService_ListHotels_FilteredSkipsCache(t *testing.T) {
	_, service, cache := newSeeded()

	hotels, err := service.ListHotels(context.Background(), ListHotelsInput{Country: "United States"})

	require.NoError(t, err)
	require.Len(t, hotels, 3)
	for _, h := range hotels {
		assert.Equal(t, "US", h.CountryCode)
	}
	cache.AssertNotCalled(t, "GetHotels", mock.Anything)

	hotels, err = service.ListHotels(context.Background(), ListHotelsInput{City: "Paris"})
	require.NoError(t, err)
	require.Len(t, hotels, 1)
	assert.Equal(t, "Parisian Elegance", hotels[0].Name)
}

func TestHotelService_ListHotels_StayFilter(t *testing.T) {
	store, service, _ := newSeeded()
	ctx := context.Background()

	// Seaside Resort: один номер забронирован, второй отключён
	err := store.Bookings().InTx(ctx, func(ctx context.Context, tx repository.BookingTx) error {
		if _, err := tx.LockRoom(ctx, 4); err != nil {
			return err
		}
		return tx.InsertBooking(ctx, &domain.Booking{
			RoomID: 4, GuestName: "Ann", GuestEmail: "ann@example.com",
			CheckIn: *day("2024-07-01"), CheckOut: *day("2024-07-05"), TotalPriceCents: 48000,
			Status: domain.BookingStatusConfirmed,
		})
	})
	require.NoError(t, err)
	service.cache = nil
	disabled := false
	_, err = service.UpdateRoom(ctx, 5, UpdateRoomInput{Enabled: &disabled})
	require.NoError(t, err)

	hotels, err := service.ListHotels(ctx, ListHotelsInput{City: "Miami", CheckIn: day("2024-07-03"), CheckOut: day("2024-07-04")})
	require.NoError(t, err)
	assert.Empty(t, hotels)

	// день выезда свободен
	hotels, err = service.ListHotels(ctx, ListHotelsInput{City: "Miami", CheckIn: day("2024-07-05"), CheckOut: day("2024-07-06")})
	require.NoError(t, err)
	require.Len(t, hotels, 1)
	require.Len(t, hotels[0].Rooms, 1)
	assert.Equal(t, "201", hotels[0].Rooms[0].RoomNumber)
}

func TestHotelService_ListHotels_Validation(t *testing.T) {
	_, service, _ := newSeeded()
	ctx := context.Background()

	tests := []struct {
		name  string
		input ListHotelsInput
		field string
	}{
		{"only check-in", ListHotelsInput{CheckIn: day("2024-07-01")}, "check_out"},
		{"only check-out", ListHotelsInput{CheckOut: day("2024-07-01")}, "check_in"},
		{"reversed", ListHotelsInput{CheckIn: day("2024-07-03"), CheckOut: day("2024-07-01")}, "check_out"},
		{"same day", ListHotelsInput{CheckIn: day("2024-07-01"), CheckOut: day("2024-07-01")}, "check_out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ListHotels(ctx, tt.input)
			var be *domain.BookingError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, domain.KindValidation, be.Kind)
			assert.Contains(t, be.Fields, tt.field)
		})
	}
}

func TestHotelService_GetHotelAndRoom(t *testing.T) {
	_, service, _ := newSeeded()
	ctx := context.Background()

	hotel, err := service.GetHotel(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Grand Hotel", hotel.Name)
	assert.Len(t, hotel.Rooms, 3)

	_, err = service.GetHotel(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	room, err := service.GetRoom(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "102", room.RoomNumber)
	assert.Equal(t, int64(15000), room.PricePerNightCents)

	_, err = service.GetRoom(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHotelService_CountriesAndCities(t *testing.T) {
	_, service, _ := newSeeded()
	ctx := context.Background()

	countries, err := service.ListCountries(ctx)
	require.NoError(t, err)
	require.Len(t, countries, 8)

	var us domain.Country
	for _, c := range countries {
		if c.Code == "US" {
			us = c
		}
	}
	cities, err := service.ListCities(ctx, us.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(cities))
	for _, c := range cities {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Denver", "Miami", "New York"}, names)
}

func TestHotelService_CreateRoom(t *testing.T) {
	_, service, cache := newSeeded()
	ctx := context.Background()

	cache.On("InvalidateHotels", mock.Anything).Return(nil).Once()

	room, err := service.CreateRoom(ctx, CreateRoomInput{HotelID: 1, RoomNumber: " 104 ", Type: "Standard", PricePerNightCents: 11000})

	require.NoError(t, err)
	assert.NotZero(t, room.ID)
	assert.Equal(t, "104", room.RoomNumber)
	assert.True(t, room.Enabled)
	assert.True(t, room.Available)
	cache.AssertExpectations(t)
}

func TestHotelService_CreateRoom_Errors(t *testing.T) {
	_, service, cache := newSeeded()
	ctx := context.Background()

	_, err := service.CreateRoom(ctx, CreateRoomInput{HotelID: 999, RoomNumber: "1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = service.CreateRoom(ctx, CreateRoomInput{HotelID: 0, RoomNumber: "", PricePerNightCents: -1})
	var be *domain.BookingError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, domain.KindValidation, be.Kind)
	assert.Len(t, be.Fields, 3)

	cache.AssertNotCalled(t, "InvalidateHotels", mock.Anything)
}

func TestHotelService_UpdateRoom(t *testing.T) {
	_, service, cache := newSeeded()
	ctx := context.Background()

	cache.On("InvalidateHotels", mock.Anything).Return(errors.New("redis down")).Once()

	rate := int64(12345)
	room, err := service.UpdateRoom(ctx, 1, UpdateRoomInput{PricePerNightCents: &rate})

	require.NoError(t, err)
	assert.Equal(t, rate, room.PricePerNightCents)
	assert.Equal(t, "101", room.RoomNumber)
	assert.True(t, room.Enabled)

	negative := int64(-5)
	_, err = service.UpdateRoom(ctx, 1, UpdateRoomInput{PricePerNightCents: &negative})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = service.UpdateRoom(ctx, 999, UpdateRoomInput{PricePerNightCents: &rate})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	cache.AssertExpectations(t)
}
