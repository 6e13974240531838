package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newSeeded(t *testing.T) *Store {
	t.Helper()
	s := NewStore(100 * time.Millisecond)
	s.Seed()
	return s
}

func insert(t *testing.T, s *Store, roomID int64, in, out string) domain.Booking {
	t.Helper()
	b := domain.Booking{RoomID: roomID, GuestName: "Ann", GuestEmail: "ann@example.com", CheckIn: day(in), CheckOut: day(out), Status: domain.BookingStatusConfirmed}
	err := s.Bookings().InTx(context.Background(), func(ctx context.Context, tx repository.BookingTx) error {
		if _, err := tx.LockRoom(ctx, roomID); err != nil {
			return err
		}
		return tx.InsertBooking(ctx, &b)
	})
	require.NoError(t, err)
	return b
}

func TestSeed(t *testing.T) {
	s := newSeeded(t)
	s.Seed() // повторный вызов ничего не добавляет

	countries, err := s.Hotels().ListCountries(context.Background())
	require.NoError(t, err)
	assert.Len(t, countries, 8)

	hotels, err := s.Hotels().List(context.Background(), repository.HotelFilter{})
	require.NoError(t, err)
	require.Len(t, hotels, 10)
	assert.Equal(t, "Berlin Central", hotels[0].Name)

	grand, err := s.Hotels().List(context.Background(), repository.HotelFilter{City: "New York"})
	require.NoError(t, err)
	require.Len(t, grand, 1)
	assert.Equal(t, "United States", grand[0].CountryName)
	require.Len(t, grand[0].Rooms, 3)
	assert.Equal(t, int64(10000), grand[0].Rooms[0].PricePerNightCents)
}

func TestInTx_RollbackDiscardsWrites(t *testing.T) {
	s := newSeeded(t)
	boom := errors.New("boom")

	var id int64
	err := s.Bookings().InTx(context.Background(), func(ctx context.Context, tx repository.BookingTx) error {
		_, err := tx.LockRoom(ctx, 1)
		require.NoError(t, err)
		b := &domain.Booking{RoomID: 1, CheckIn: day("2024-06-01"), CheckOut: day("2024-06-05"), Status: domain.BookingStatusConfirmed}
		require.NoError(t, tx.InsertBooking(ctx, b))
		require.NoError(t, tx.SetRoomAvailable(ctx, 1, false))
		id = b.ID

		// внутри транзакции запись уже видна
		got, err := tx.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Version)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Bookings().GetBooking(context.Background(), id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	room, err := s.Rooms().GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, room.Available)
}

func TestInTx_LockTimeout(t *testing.T) {
	s := newSeeded(t)
	locked := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = s.Bookings().InTx(context.Background(), func(ctx context.Context, tx repository.BookingTx) error {
			_, err := tx.LockRoom(ctx, 1)
			close(locked)
			<-done
			return err
		})
	}()
	<-locked
	defer close(done)

	err := s.Bookings().InTx(context.Background(), func(ctx context.Context, tx repository.BookingTx) error {
		_, err := tx.LockRoom(ctx, 1)
		return err
	})
	assert.ErrorIs(t, err, repository.ErrLockTimeout)

	// другая комната не блокируется
	err = s.Bookings().InTx(context.Background(), func(ctx context.Context, tx repository.BookingTx) error {
		_, err := tx.LockRoom(ctx, 2)
		return err
	})
	assert.NoError(t, err)
}

func TestInTx_OverlapBackstop(t *testing.T) {
	s := newSeeded(t)
	insert(t, s, 1, "2024-06-01", "2024-06-05")

	err := s.Bookings().InTx(context.Background(), func(ctx context.Context, tx repository.BookingTx) error {
		// проверка пропущена намеренно
		b := &domain.Booking{RoomID: 1, CheckIn: day("2024-06-03"), CheckOut: day("2024-06-04"), Status: domain.BookingStatusConfirmed}
		return tx.InsertBooking(ctx, b)
	})
	assert.ErrorIs(t, err, repository.ErrOverlap)

	list, err := s.Bookings().FindBookingsForRoom(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpdateBooking_VersionCheck(t *testing.T) {
	s := newSeeded(t)
	b := insert(t, s, 1, "2024-06-01", "2024-06-05")

	err := s.Bookings().InTx(context.Background(), func(ctx context.Context, tx repository.BookingTx) error {
		b.GuestName = "Bob"
		return tx.UpdateBooking(ctx, &b, 1)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), b.Version)

	err = s.Bookings().InTx(context.Background(), func(ctx context.Context, tx repository.BookingTx) error {
		return tx.UpdateBooking(ctx, &b, 1)
	})
	assert.ErrorIs(t, err, repository.ErrVersionMismatch)

	got, err := s.Bookings().GetBookingView(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.GuestName)
	assert.Equal(t, "Grand Hotel", got.HotelName)
	assert.Equal(t, "101", got.RoomNumber)
	assert.Equal(t, "US", got.CountryCode)
}

func TestFindBookingsForRoom_ExcludesAndFilters(t *testing.T) {
	s := newSeeded(t)
	a := insert(t, s, 1, "2024-06-10", "2024-06-12")
	b := insert(t, s, 1, "2024-06-01", "2024-06-05")
	insert(t, s, 2, "2024-06-01", "2024-06-05")

	err := s.Bookings().InTx(context.Background(), func(ctx context.Context, tx repository.BookingTx) error {
		b.Status = domain.BookingStatusCancelled
		return tx.UpdateBooking(ctx, &b, b.Version)
	})
	require.NoError(t, err)

	list, err := s.Bookings().FindBookingsForRoom(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	list, err = s.Bookings().FindBookingsForRoom(context.Background(), 1, a.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	views, err := s.Bookings().ListBookingViews(context.Background(), repository.BookingFilter{RoomID: 1})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, a.ID, views[0].ID)

	views, err = s.Bookings().ListBookingViews(context.Background(), repository.BookingFilter{GuestEmail: "ANN@example.com", Status: domain.BookingStatusCancelled})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, b.ID, views[0].ID)
}

func TestDeleteBooking(t *testing.T) {
	s := newSeeded(t)
	b := insert(t, s, 1, "2024-06-01", "2024-06-05")

	err := s.Bookings().InTx(context.Background(), func(ctx context.Context, tx repository.BookingTx) error {
		if err := tx.DeleteBooking(ctx, b.ID); err != nil {
			return err
		}
		return tx.DeleteBooking(ctx, b.ID)
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	exists, err := s.Bookings().BookingExists(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestHotelList_StayFilter(t *testing.T) {
	s := newSeeded(t)
	insert(t, s, 1, "2024-06-01", "2024-06-05")
	insert(t, s, 2, "2024-06-01", "2024-06-05")

	room3, err := s.Rooms().GetByID(context.Background(), 3)
	require.NoError(t, err)
	room3.Enabled = false
	require.NoError(t, s.Rooms().Update(context.Background(), room3))

	stay := domain.NewStay(day("2024-06-03"), day("2024-06-04"))
	hotels, err := s.Hotels().List(context.Background(), repository.HotelFilter{City: "New York", Stay: &stay})
	require.NoError(t, err)
	assert.Empty(t, hotels)

	// день выезда свободен
	stay = domain.NewStay(day("2024-06-05"), day("2024-06-07"))
	hotels, err = s.Hotels().List(context.Background(), repository.HotelFilter{City: "New York", Stay: &stay})
	require.NoError(t, err)
	require.Len(t, hotels, 1)
	assert.Len(t, hotels[0].Rooms, 2)
}

func TestRecomputeAvailability(t *testing.T) {
	s := newSeeded(t)
	insert(t, s, 1, "2024-06-01", "2024-06-05")

	n, err := s.Rooms().RecomputeAvailability(context.Background(), day("2024-06-02"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	room, _ := s.Rooms().GetByID(context.Background(), 1)
	assert.False(t, room.Available)

	n, err = s.Rooms().RecomputeAvailability(context.Background(), day("2024-06-05"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	room, _ = s.Rooms().GetByID(context.Background(), 1)
	assert.True(t, room.Available)
}

func TestRoomCreate_UnknownHotel(t *testing.T) {
	s := newSeeded(t)
	err := s.Rooms().Create(context.Background(), &domain.Room{HotelID: 999, RoomNumber: "1"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	room := &domain.Room{HotelID: 1, RoomNumber: "104", Type: "Suite", PricePerNightCents: 30000, Enabled: true, Available: true}
	require.NoError(t, s.Rooms().Create(context.Background(), room))
	assert.NotZero(t, room.ID)
}
