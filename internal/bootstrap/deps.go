package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/Domenick1991/hotelbooking/config"
	"github.com/Domenick1991/hotelbooking/internal/amqp"
	"github.com/Domenick1991/hotelbooking/internal/kafka"
	"github.com/Domenick1991/hotelbooking/internal/migration"
	"github.com/Domenick1991/hotelbooking/internal/repository"
	"github.com/Domenick1991/hotelbooking/internal/repository/memory"
	"github.com/Domenick1991/hotelbooking/internal/service/booking"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Storage bundles the repositories of the configured driver.
type Storage struct {
	Bookings repository.BookingRepository
	Rooms    repository.RoomRepository
	Hotels   repository.HotelRepository
	close    func()
}

func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStorage connects to postgres (migrating it when configured) or builds
// the in-process store.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore(cfg.Booking.LockTimeout())
		if cfg.Storage.Seed {
			store.Seed()
		}
		log.Printf("Using in-memory storage (seed=%t)", cfg.Storage.Seed)
		return &Storage{Bookings: store.Bookings(), Rooms: store.Rooms(), Hotels: store.Hotels()}, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if cfg.Database.Migrate {
			n, err := migration.Up(ctx, pool)
			if err != nil {
				pool.Close()
				return nil, err
			}
			log.Printf("Database schema is up to date (%d migrations applied)", n)
		}
		return &Storage{
			Bookings: repository.NewBookingRepository(pool, cfg.Booking.LockTimeout()),
			Rooms:    repository.NewRoomRepository(pool),
			Hotels:   repository.NewHotelRepository(pool),
			close:    pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// OpenProducer returns the event publisher of the configured driver, or a
// nil producer for "none". The returned close func is never nil.
func OpenProducer(cfg *config.Config) (booking.Producer, func(), error) {
	switch cfg.Events.Driver {
	case "kafka":
		p := kafka.NewProducer(cfg.Kafka.Brokers)
		return p, func() { closeLogged("kafka producer", p.Close) }, nil
	case "rabbitmq":
		p, err := amqp.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return nil, func() {}, err
		}
		return p, func() { closeLogged("rabbitmq publisher", p.Close) }, nil
	case "none":
		return nil, func() {}, nil
	}
	return nil, func() {}, fmt.Errorf("unknown events driver %q", cfg.Events.Driver)
}

func closeLogged(what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Printf("WARNING: close %s: %v", what, err)
	}
}
