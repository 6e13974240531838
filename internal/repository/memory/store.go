// Package memory is an in-process implementation of the repository
// contracts. Booking transactions take a per-room lock and buffer their
// writes until commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/lock"
	"github.com/Domenick1991/hotelbooking/internal/repository"
)

type Store struct {
	mu        sync.RWMutex
	countries map[int64]domain.Country
	cities    map[int64]domain.City
	hotels    map[int64]domain.Hotel
	rooms     map[int64]domain.Room
	bookings  map[int64]domain.Booking
	lastID    map[string]int64

	roomLocks   *lock.Keyed
	lockTimeout time.Duration
}

func NewStore(lockTimeout time.Duration) *Store {
	return &Store{
		countries:   make(map[int64]domain.Country),
		cities:      make(map[int64]domain.City),
		hotels:      make(map[int64]domain.Hotel),
		rooms:       make(map[int64]domain.Room),
		bookings:    make(map[int64]domain.Booking),
		lastID:      make(map[string]int64),
		roomLocks:   lock.NewKeyed(),
		lockTimeout: lockTimeout,
	}
}

func (s *Store) Bookings() repository.BookingRepository { return &bookingRepo{s: s} }

func (s *Store) Rooms() repository.RoomRepository { return &roomRepo{s: s} }

func (s *Store) Hotels() repository.HotelRepository { return &hotelRepo{s: s} }

// nextID behaves like a sequence: ids handed to rolled back transactions
// are not reused.
func (s *Store) nextID(table string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID[table]++
	return s.lastID[table]
}

func (s *Store) AddCountry(c domain.Country) domain.Country {
	c.ID = s.nextID("countries")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countries[c.ID] = c
	return c
}

func (s *Store) AddCity(c domain.City) domain.City {
	c.ID = s.nextID("cities")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cities[c.ID] = c
	return c
}

func (s *Store) AddHotel(h domain.Hotel) domain.Hotel {
	h.ID = s.nextID("hotels")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hotels[h.ID] = h
	return h
}

// AddRoom stores r as is, without checking that its hotel exists.
func (s *Store) AddRoom(r domain.Room) domain.Room {
	r.ID = s.nextID("rooms")
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
	return r
}

type bookingRepo struct {
	s *Store
}

func (r *bookingRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.BookingTx) error) error {
	tx := newTx(r.s)
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.commit()
}

func (r *bookingRepo) GetBooking(_ context.Context, id int64) (*domain.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r *bookingRepo) BookingExists(_ context.Context, id int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.bookings[id]
	return ok, nil
}

func (r *bookingRepo) FindBookingsForRoom(_ context.Context, roomID, excludeID int64) ([]domain.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return confirmedForRoom(r.s.bookings, roomID, excludeID), nil
}

func (r *bookingRepo) GetBookingView(_ context.Context, id int64) (*domain.BookingView, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v := r.s.viewLocked(b)
	return &v, nil
}

func (r *bookingRepo) ListBookingViews(_ context.Context, filter repository.BookingFilter) ([]domain.BookingView, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	views := make([]domain.BookingView, 0)
	for _, b := range r.s.bookings {
		if filter.RoomID != 0 && b.RoomID != filter.RoomID {
			continue
		}
		if filter.GuestEmail != "" && !strings.EqualFold(b.GuestEmail, filter.GuestEmail) {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		views = append(views, r.s.viewLocked(b))
	}
	sort.Slice(views, func(i, j int) bool {
		if !views[i].CheckIn.Equal(views[j].CheckIn) {
			return views[i].CheckIn.After(views[j].CheckIn)
		}
		return views[i].ID > views[j].ID
	})
	return views, nil
}

func (s *Store) viewLocked(b domain.Booking) domain.BookingView {
	v := domain.BookingView{Booking: b}
	room := s.rooms[b.RoomID]
	hotel := s.hotels[room.HotelID]
	city := s.cities[hotel.CityID]
	country := s.countries[city.CountryID]
	v.RoomNumber, v.RoomType, v.PricePerNightCents = room.RoomNumber, room.Type, room.PricePerNightCents
	v.HotelID, v.HotelName, v.HotelAddress = hotel.ID, hotel.Name, hotel.Address
	v.CityName, v.CountryName, v.CountryCode = city.Name, country.Name, country.Code
	return v
}

func confirmedForRoom(bookings map[int64]domain.Booking, roomID, excludeID int64) []domain.Booking {
	out := make([]domain.Booking, 0)
	for _, b := range bookings {
		if b.RoomID != roomID || !b.IsConfirmed() || (excludeID != 0 && b.ID == excludeID) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckIn.Equal(out[j].CheckIn) {
			return out[i].CheckIn.Before(out[j].CheckIn)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// tx buffers writes in its own maps; commit applies them under the store
// mutex.
type tx struct {
	s       *Store
	unlocks map[int64]func()
	changed map[int64]domain.Booking
	deleted map[int64]bool
	flags   map[int64]bool
}

func newTx(s *Store) *tx {
	return &tx{
		s:       s,
		unlocks: make(map[int64]func()),
		changed: make(map[int64]domain.Booking),
		deleted: make(map[int64]bool),
		flags:   make(map[int64]bool),
	}
}

func (t *tx) LockRoom(ctx context.Context, roomID int64) (*domain.Room, error) {
	if _, held := t.unlocks[roomID]; !held {
		lockCtx, cancel := context.WithTimeout(ctx, t.s.lockTimeout)
		defer cancel()
		unlock, err := t.s.roomLocks.Lock(lockCtx, roomID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: room %d", repository.ErrLockTimeout, roomID)
		}
		t.unlocks[roomID] = unlock
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	room, ok := t.s.rooms[roomID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if flag, ok := t.flags[roomID]; ok {
		room.Available = flag
	}
	return &room, nil
}

func (t *tx) GetBooking(_ context.Context, id int64) (*domain.Booking, error) {
	b, ok := t.lookup(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (t *tx) FindBookingsForRoom(_ context.Context, roomID, excludeID int64) ([]domain.Booking, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return confirmedForRoom(t.mergedLocked(roomID), roomID, excludeID), nil
}

func (t *tx) InsertBooking(_ context.Context, b *domain.Booking) error {
	b.ID = t.s.nextID("bookings")
	b.Version = 1
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	t.changed[b.ID] = *b
	return nil
}

func (t *tx) UpdateBooking(_ context.Context, b *domain.Booking, expectedVersion int64) error {
	cur, ok := t.lookup(b.ID)
	if !ok || cur.Version != expectedVersion {
		return repository.ErrVersionMismatch
	}
	b.Version = expectedVersion + 1
	b.CreatedAt = cur.CreatedAt
	b.UpdatedAt = time.Now().UTC()
	t.changed[b.ID] = *b
	return nil
}

func (t *tx) DeleteBooking(_ context.Context, id int64) error {
	if _, ok := t.lookup(id); !ok {
		return repository.ErrNotFound
	}
	delete(t.changed, id)
	t.deleted[id] = true
	return nil
}

func (t *tx) SetRoomAvailable(_ context.Context, roomID int64, available bool) error {
	t.flags[roomID] = available
	return nil
}

func (t *tx) lookup(id int64) (domain.Booking, bool) {
	if t.deleted[id] {
		return domain.Booking{}, false
	}
	if b, ok := t.changed[id]; ok {
		return b, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	b, ok := t.s.bookings[id]
	return b, ok
}

// mergedLocked returns the room's bookings as this transaction sees them.
func (t *tx) mergedLocked(roomID int64) map[int64]domain.Booking {
	out := make(map[int64]domain.Booking)
	for id, b := range t.s.bookings {
		if b.RoomID == roomID && !t.deleted[id] {
			out[id] = b
		}
	}
	for id, b := range t.changed {
		if b.RoomID == roomID {
			out[id] = b
		} else {
			delete(out, id)
		}
	}
	return out
}

func (t *tx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	rooms := make(map[int64]bool)
	for _, b := range t.changed {
		rooms[b.RoomID] = true
	}
	for roomID := range rooms {
		if err := checkNoOverlap(t.mergedLocked(roomID)); err != nil {
			return err
		}
	}

	for id := range t.deleted {
		delete(t.s.bookings, id)
	}
	for id, b := range t.changed {
		t.s.bookings[id] = b
	}
	for roomID, flag := range t.flags {
		room, ok := t.s.rooms[roomID]
		if !ok || room.Available == flag {
			continue
		}
		room.Available = flag
		room.UpdatedAt = time.Now().UTC()
		t.s.rooms[roomID] = room
	}
	return nil
}

func (t *tx) release() {
	for _, unlock := range t.unlocks {
		unlock()
	}
	t.unlocks = nil
}

// checkNoOverlap is the store-level backstop for the no-double-booking
// rule, the counterpart of the exclusion constraint in PostgreSQL.
func checkNoOverlap(bookings map[int64]domain.Booking) error {
	confirmed := make([]domain.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.IsConfirmed() {
			confirmed = append(confirmed, b)
		}
	}
	for i := range confirmed {
		for j := i + 1; j < len(confirmed); j++ {
			if confirmed[i].Stay().Overlaps(confirmed[j].Stay()) {
				return fmt.Errorf("%w: bookings %d and %d", repository.ErrOverlap, confirmed[i].ID, confirmed[j].ID)
			}
		}
	}
	return nil
}

type roomRepo struct {
	s *Store
}

func (r *roomRepo) GetByID(_ context.Context, id int64) (*domain.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	room, ok := r.s.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &room, nil
}

func (r *roomRepo) Create(_ context.Context, room *domain.Room) error {
	r.s.mu.RLock()
	_, ok := r.s.hotels[room.HotelID]
	r.s.mu.RUnlock()
	if !ok {
		return repository.ErrNotFound
	}
	*room = r.s.AddRoom(*room)
	return nil
}

func (r *roomRepo) Update(_ context.Context, room *domain.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.rooms[room.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.RoomNumber, cur.Type, cur.PricePerNightCents, cur.Enabled = room.RoomNumber, room.Type, room.PricePerNightCents, room.Enabled
	cur.UpdatedAt = time.Now().UTC()
	r.s.rooms[room.ID] = cur
	*room = cur
	return nil
}

func (r *roomRepo) RecomputeAvailability(_ context.Context, day time.Time) (int64, error) {
	day = domain.Day(day)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	occupied := make(map[int64]bool)
	for _, b := range r.s.bookings {
		if b.IsConfirmed() && b.Stay().Contains(day) {
			occupied[b.RoomID] = true
		}
	}

	var changed int64
	for id, room := range r.s.rooms {
		free := !occupied[id]
		if room.Available == free {
			continue
		}
		room.Available = free
		room.UpdatedAt = time.Now().UTC()
		r.s.rooms[id] = room
		changed++
	}
	return changed, nil
}

type hotelRepo struct {
	s *Store
}

func (r *hotelRepo) List(_ context.Context, filter repository.HotelFilter) ([]domain.HotelView, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	hotels := make([]domain.HotelView, 0)
	for _, h := range r.s.hotels {
		v := r.s.hotelViewLocked(h)
		if filter.Country != "" && v.CountryName != filter.Country {
			continue
		}
		if filter.City != "" && v.CityName != filter.City {
			continue
		}
		if filter.Stay != nil {
			free := make([]domain.Room, 0, len(v.Rooms))
			for _, room := range v.Rooms {
				if room.Enabled && r.s.roomFreeLocked(room.ID, *filter.Stay) {
					free = append(free, room)
				}
			}
			if len(free) == 0 {
				continue
			}
			v.Rooms = free
		}
		hotels = append(hotels, v)
	}
	sort.Slice(hotels, func(i, j int) bool {
		if hotels[i].Name != hotels[j].Name {
			return hotels[i].Name < hotels[j].Name
		}
		return hotels[i].ID < hotels[j].ID
	})
	return hotels, nil
}

func (r *hotelRepo) GetByID(_ context.Context, id int64) (*domain.HotelView, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	h, ok := r.s.hotels[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v := r.s.hotelViewLocked(h)
	return &v, nil
}

func (r *hotelRepo) Exists(_ context.Context, id int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.hotels[id]
	return ok, nil
}

func (r *hotelRepo) ListCountries(_ context.Context) ([]domain.Country, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	countries := make([]domain.Country, 0, len(r.s.countries))
	for _, c := range r.s.countries {
		countries = append(countries, c)
	}
	sort.Slice(countries, func(i, j int) bool { return countries[i].Name < countries[j].Name })
	return countries, nil
}

func (r *hotelRepo) ListCities(_ context.Context, countryID int64) ([]domain.City, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	cities := make([]domain.City, 0)
	for _, c := range r.s.cities {
		if c.CountryID == countryID {
			cities = append(cities, c)
		}
	}
	sort.Slice(cities, func(i, j int) bool { return cities[i].Name < cities[j].Name })
	return cities, nil
}

func (s *Store) hotelViewLocked(h domain.Hotel) domain.HotelView {
	city := s.cities[h.CityID]
	country := s.countries[city.CountryID]
	v := domain.HotelView{Hotel: h, CityName: city.Name, CountryName: country.Name, CountryCode: country.Code, Rooms: make([]domain.Room, 0)}
	for _, room := range s.rooms {
		if room.HotelID == h.ID {
			v.Rooms = append(v.Rooms, room)
		}
	}
	sort.Slice(v.Rooms, func(i, j int) bool { return v.Rooms[i].RoomNumber < v.Rooms[j].RoomNumber })
	return v
}

func (s *Store) roomFreeLocked(roomID int64, stay domain.Stay) bool {
	for _, b := range s.bookings {
		if b.RoomID == roomID && b.IsConfirmed() && b.Stay().Overlaps(stay) {
			return false
		}
	}
	return true
}

var (
	_ repository.BookingRepository = (*bookingRepo)(nil)
	_ repository.BookingTx         = (*tx)(nil)
	_ repository.RoomRepository    = (*roomRepo)(nil)
	_ repository.HotelRepository   = (*hotelRepo)(nil)
)
