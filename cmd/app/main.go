package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/hotelbooking/api"
	"github.com/Domenick1991/hotelbooking/config"
	"github.com/Domenick1991/hotelbooking/internal/bootstrap"
	"github.com/Domenick1991/hotelbooking/internal/cache"
	"github.com/Domenick1991/hotelbooking/internal/service/booking"
	"github.com/Domenick1991/hotelbooking/internal/service/hotels"
	"github.com/Domenick1991/hotelbooking/internal/tracing"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: load .env: %v", err)
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Init("hotelbooking-api")
	defer func() { _ = shutdownTracing(context.Background()) }()

	storage, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer storage.Close()

	producer, closeProducer, err := bootstrap.OpenProducer(cfg)
	if err != nil {
		log.Fatalf("open event producer: %v", err)
	}
	defer closeProducer()

	var hotelCache hotels.HotelCache
	opts := []booking.BookingServiceOption{booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic)}
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.HotelsCacheDuration())
		defer redisCache.Close()
		hotelCache = redisCache
		if cfg.Booking.DistributedLock {
			opts = append(opts, booking.WithRoomLocker(redisCache, cfg.Booking.LockTTL(), cfg.Booking.LockTimeout()))
		}
	}

	bookingService := booking.NewBookingService(
		storage.Bookings,
		storage.Rooms,
		producer,
		cfg.Kafka.BookingEventsTopic,
		opts...,
	)
	hotelService := hotels.NewHotelService(storage.Hotels, storage.Rooms, hotelCache)

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(bookingService, hotelService)

	if err := bootstrap.Run(ctx, cfg, router, bookingService); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
