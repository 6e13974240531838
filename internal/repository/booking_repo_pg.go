package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const bookingColumns = `id, room_id, guest_name, guest_email, check_in, check_out, total_price_cents, status, version, created_at, updated_at`

const bookingViewQuery = `SELECT b.id, b.room_id, b.guest_name, b.guest_email, b.check_in, b.check_out, b.total_price_cents, b.status, b.version, b.created_at, b.updated_at,
		r.room_number, r.type, r.price_per_night_cents,
		h.id, h.name, h.address, c.name, co.name, co.code
	FROM bookings b
	JOIN rooms r ON r.id = b.room_id
	JOIN hotels h ON h.id = r.hotel_id
	JOIN cities c ON c.id = h.city_id
	JOIN countries co ON co.id = c.country_id`

type PGBookingRepository struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

func NewBookingRepository(db *pgxpool.Pool, lockTimeout time.Duration) BookingRepository {
	return &PGBookingRepository{db: db, lockTimeout: lockTimeout}
}

// InTx runs fn in a READ COMMITTED transaction. Serialization per room comes
// from the row lock taken by LockRoom, bounded by lock_timeout.
func (r *PGBookingRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx BookingTx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if r.lockTimeout > 0 {
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, fmt.Sprintf("%dms", r.lockTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	if err := fn(ctx, &pgBookingTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return translatePgError(err)
	}
	return nil
}

func (r *PGBookingRepository) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return getBooking(ctx, r.db, id)
}

func (r *PGBookingRepository) BookingExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id=$1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PGBookingRepository) FindBookingsForRoom(ctx context.Context, roomID, excludeID int64) ([]domain.Booking, error) {
	return findBookingsForRoom(ctx, r.db, roomID, excludeID)
}

func (r *PGBookingRepository) GetBookingView(ctx context.Context, id int64) (*domain.BookingView, error) {
	row := r.db.QueryRow(ctx, bookingViewQuery+` WHERE b.id=$1`, id)
	v, err := scanBookingView(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *PGBookingRepository) ListBookingViews(ctx context.Context, filter BookingFilter) ([]domain.BookingView, error) {
	var (
		where []string
		args  []any
	)
	if filter.RoomID != 0 {
		args = append(args, filter.RoomID)
		where = append(where, fmt.Sprintf("b.room_id=$%d", len(args)))
	}
	if filter.GuestEmail != "" {
		args = append(args, filter.GuestEmail)
		where = append(where, fmt.Sprintf("lower(b.guest_email)=lower($%d)", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("b.status=$%d", len(args)))
	}

	query := bookingViewQuery
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY b.check_in DESC, b.id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]domain.BookingView, 0)
	for rows.Next() {
		v, err := scanBookingView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, rows.Err()
}

type pgBookingTx struct {
	tx pgx.Tx
}

func (t *pgBookingTx) LockRoom(ctx context.Context, roomID int64) (*domain.Room, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id=$1 FOR UPDATE`, roomID)
	room, err := scanRoom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, translatePgError(err)
	}
	return room, nil
}

func (t *pgBookingTx) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return getBooking(ctx, t.tx, id)
}

func (t *pgBookingTx) FindBookingsForRoom(ctx context.Context, roomID, excludeID int64) ([]domain.Booking, error) {
	return findBookingsForRoom(ctx, t.tx, roomID, excludeID)
}

func (t *pgBookingTx) InsertBooking(ctx context.Context, b *domain.Booking) error {
	b.Version = 1
	err := t.tx.QueryRow(ctx, `INSERT INTO bookings (room_id, guest_name, guest_email, check_in, check_out, total_price_cents, status, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		b.RoomID, b.GuestName, b.GuestEmail, b.CheckIn, b.CheckOut, b.TotalPriceCents, b.Status, b.Version).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return translatePgError(err)
	}
	return nil
}

func (t *pgBookingTx) UpdateBooking(ctx context.Context, b *domain.Booking, expectedVersion int64) error {
	err := t.tx.QueryRow(ctx, `UPDATE bookings
		SET guest_name=$1, guest_email=$2, check_in=$3, check_out=$4, total_price_cents=$5, status=$6, version=version+1, updated_at=now()
		WHERE id=$7 AND version=$8
		RETURNING version, updated_at`,
		b.GuestName, b.GuestEmail, b.CheckIn, b.CheckOut, b.TotalPriceCents, b.Status, b.ID, expectedVersion).
		Scan(&b.Version, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionMismatch
	}
	if err != nil {
		return translatePgError(err)
	}
	return nil
}

func (t *pgBookingTx) DeleteBooking(ctx context.Context, id int64) error {
	cmd, err := t.tx.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgBookingTx) SetRoomAvailable(ctx context.Context, roomID int64, available bool) error {
	_, err := t.tx.Exec(ctx, `UPDATE rooms SET available=$1, updated_at=now() WHERE id=$2 AND available IS DISTINCT FROM $1`, available, roomID)
	return translatePgError(err)
}

func getBooking(ctx context.Context, q querier, id int64) (*domain.Booking, error) {
	b, err := scanBooking(q.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func findBookingsForRoom(ctx context.Context, q querier, roomID, excludeID int64) ([]domain.Booking, error) {
	rows, err := q.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE room_id=$1 AND status=$2 AND ($3 = 0 OR id <> $3)
		ORDER BY check_in`, roomID, domain.BookingStatusConfirmed, excludeID)
	if err != nil {
		return nil, translatePgError(err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.RoomID, &b.GuestName, &b.GuestEmail, &b.CheckIn, &b.CheckOut, &b.TotalPriceCents, &b.Status, &b.Version, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBookingView(row pgx.Row) (*domain.BookingView, error) {
	var v domain.BookingView
	b := &v.Booking
	if err := row.Scan(&b.ID, &b.RoomID, &b.GuestName, &b.GuestEmail, &b.CheckIn, &b.CheckOut, &b.TotalPriceCents, &b.Status, &b.Version, &b.CreatedAt, &b.UpdatedAt,
		&v.RoomNumber, &v.RoomType, &v.PricePerNightCents,
		&v.HotelID, &v.HotelName, &v.HotelAddress, &v.CityName, &v.CountryName, &v.CountryCode); err != nil {
		return nil, err
	}
	return &v, nil
}

// translatePgError maps lock and serialization failures to gateway errors;
// everything else is returned as is.
func translatePgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return fmt.Errorf("%w: %s", ErrLockTimeout, pgErr.Message)
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", ErrTxAborted, pgErr.Message)
		case "23P01":
			return fmt.Errorf("%w: %s", ErrOverlap, pgErr.Message)
		}
	}
	return err
}

var _ BookingRepository = (*PGBookingRepository)(nil)
var _ BookingTx = (*pgBookingTx)(nil)
