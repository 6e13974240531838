package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGHotelRepository struct {
	db *pgxpool.Pool
}

func NewHotelRepository(db *pgxpool.Pool) HotelRepository {
	return &PGHotelRepository{db: db}
}

func (r *PGHotelRepository) List(ctx context.Context, filter HotelFilter) ([]domain.HotelView, error) {
	var (
		where []string
		args  []any
	)
	if filter.Country != "" {
		args = append(args, filter.Country)
		where = append(where, fmt.Sprintf("co.name=$%d", len(args)))
	}
	if filter.City != "" {
		args = append(args, filter.City)
		where = append(where, fmt.Sprintf("c.name=$%d", len(args)))
	}
	return r.list(ctx, where, args, filter.Stay)
}

func (r *PGHotelRepository) GetByID(ctx context.Context, id int64) (*domain.HotelView, error) {
	hotels, err := r.list(ctx, []string{"h.id=$1"}, []any{id}, nil)
	if err != nil {
		return nil, err
	}
	if len(hotels) == 0 {
		return nil, ErrNotFound
	}
	return &hotels[0], nil
}

func (r *PGHotelRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM hotels WHERE id=$1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PGHotelRepository) ListCountries(ctx context.Context) ([]domain.Country, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, code FROM countries ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	countries := make([]domain.Country, 0)
	for rows.Next() {
		var c domain.Country
		if err := rows.Scan(&c.ID, &c.Name, &c.Code); err != nil {
			return nil, err
		}
		countries = append(countries, c)
	}
	return countries, rows.Err()
}

func (r *PGHotelRepository) ListCities(ctx context.Context, countryID int64) ([]domain.City, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, country_id FROM cities WHERE country_id=$1 ORDER BY name`, countryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cities := make([]domain.City, 0)
	for rows.Next() {
		var c domain.City
		if err := rows.Scan(&c.ID, &c.Name, &c.CountryID); err != nil {
			return nil, err
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

// list joins hotels with their location and rooms in one pass. With a stay,
// rooms are restricted to enabled ones without an overlapping confirmed
// booking and hotels left without rooms are dropped.
func (r *PGHotelRepository) list(ctx context.Context, where []string, args []any, stay *domain.Stay) ([]domain.HotelView, error) {
	roomJoin := `LEFT JOIN rooms r ON r.hotel_id = h.id`
	if stay != nil {
		args = append(args, stay.CheckIn, stay.CheckOut, domain.BookingStatusConfirmed)
		n := len(args)
		roomJoin = fmt.Sprintf(`JOIN rooms r ON r.hotel_id = h.id AND r.enabled AND NOT EXISTS (
			SELECT 1 FROM bookings b
			WHERE b.room_id = r.id AND b.status = $%d AND b.check_in < $%d AND b.check_out > $%d)`, n, n-1, n-2)
	}

	query := `SELECT h.id, h.name, h.address, h.rating, h.city_id, c.name, co.name, co.code,
			r.id, r.hotel_id, r.room_number, r.type, r.price_per_night_cents, r.available, r.enabled, r.created_at, r.updated_at
		FROM hotels h
		JOIN cities c ON c.id = h.city_id
		JOIN countries co ON co.id = c.country_id
		` + roomJoin
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY h.name, h.id, r.room_number"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hotels := make([]domain.HotelView, 0)
	for rows.Next() {
		var (
			h    domain.HotelView
			room nullableRoom
		)
		if err := rows.Scan(&h.ID, &h.Name, &h.Address, &h.Rating, &h.CityID, &h.CityName, &h.CountryName, &h.CountryCode,
			&room.ID, &room.HotelID, &room.RoomNumber, &room.Type, &room.PricePerNightCents, &room.Available, &room.Enabled, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, err
		}
		if len(hotels) == 0 || hotels[len(hotels)-1].ID != h.ID {
			h.Rooms = make([]domain.Room, 0)
			hotels = append(hotels, h)
		}
		if room.ID == nil {
			continue
		}
		last := &hotels[len(hotels)-1]
		last.Rooms = append(last.Rooms, room.value())
	}
	return hotels, rows.Err()
}

// nullableRoom receives the room side of a LEFT JOIN.
type nullableRoom struct {
	ID                 *int64
	HotelID            *int64
	RoomNumber         *string
	Type               *string
	PricePerNightCents *int64
	Available          *bool
	Enabled            *bool
	CreatedAt          *time.Time
	UpdatedAt          *time.Time
}

func (n nullableRoom) value() domain.Room {
	return domain.Room{
		ID:                 *n.ID,
		HotelID:            *n.HotelID,
		RoomNumber:         *n.RoomNumber,
		Type:               *n.Type,
		PricePerNightCents: *n.PricePerNightCents,
		Available:          *n.Available,
		Enabled:            *n.Enabled,
		CreatedAt:          *n.CreatedAt,
		UpdatedAt:          *n.UpdatedAt,
	}
}

var _ HotelRepository = (*PGHotelRepository)(nil)
