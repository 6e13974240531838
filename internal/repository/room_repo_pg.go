package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const roomColumns = `id, hotel_id, room_number, type, price_per_night_cents, available, enabled, created_at, updated_at`

type PGRoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) RoomRepository {
	return &PGRoomRepository{db: db}
}

func (r *PGRoomRepository) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	room, err := scanRoom(r.db.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (r *PGRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	return r.db.QueryRow(ctx, `INSERT INTO rooms (hotel_id, room_number, type, price_per_night_cents, available, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		room.HotelID, room.RoomNumber, room.Type, room.PricePerNightCents, room.Available, room.Enabled).
		Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
}

// Update writes the administrative fields. The coarse flag is owned by the
// booking side and is left untouched.
func (r *PGRoomRepository) Update(ctx context.Context, room *domain.Room) error {
	err := r.db.QueryRow(ctx, `UPDATE rooms
		SET room_number=$1, type=$2, price_per_night_cents=$3, enabled=$4, updated_at=now()
		WHERE id=$5
		RETURNING available, updated_at`,
		room.RoomNumber, room.Type, room.PricePerNightCents, room.Enabled, room.ID).
		Scan(&room.Available, &room.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *PGRoomRepository) RecomputeAvailability(ctx context.Context, day time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE rooms r
		SET available = o.free, updated_at = now()
		FROM (
			SELECT rm.id, NOT EXISTS (
				SELECT 1 FROM bookings b
				WHERE b.room_id = rm.id AND b.status = $1 AND b.check_in <= $2 AND b.check_out > $2
			) AS free
			FROM rooms rm
		) o
		WHERE r.id = o.id AND r.available IS DISTINCT FROM o.free`,
		domain.BookingStatusConfirmed, domain.Day(day))
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var room domain.Room
	if err := row.Scan(&room.ID, &room.HotelID, &room.RoomNumber, &room.Type, &room.PricePerNightCents, &room.Available, &room.Enabled, &room.CreatedAt, &room.UpdatedAt); err != nil {
		return nil, err
	}
	return &room, nil
}

var _ RoomRepository = (*PGRoomRepository)(nil)
