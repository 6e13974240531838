package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/hotelbooking/config"
	"github.com/Domenick1991/hotelbooking/internal/amqp"
	"github.com/Domenick1991/hotelbooking/internal/bootstrap"
	"github.com/Domenick1991/hotelbooking/internal/email"
	"github.com/Domenick1991/hotelbooking/internal/kafka"
	"github.com/Domenick1991/hotelbooking/internal/service/booking"
	"github.com/Domenick1991/hotelbooking/internal/tracing"
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

	shutdownTracing := tracing.Init("hotelbooking-worker")
	defer func() { _ = shutdownTracing(context.Background()) }()

	storage, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer storage.Close()

	// the sweep publishes nothing
	bookingService := booking.NewBookingService(storage.Bookings, storage.Rooms, nil, "")

	emailSender := email.NewSender()
	go consumeNotifications(ctx, cfg, emailSender)

	sweep := func() {
		changed, err := bookingService.RefreshRoomFlags(ctx, time.Now().UTC())
		if err != nil {
			log.Printf("refresh room flags error: %v", err)
			return
		}
		if changed > 0 {
			log.Printf("refreshed availability flag of %d rooms", changed)
		}
	}
	sweep()

	sweepTicker := time.NewTicker(time.Duration(cfg.Worker.FlagSweepMinutes) * time.Minute)
	defer sweepTicker.Stop()

	for {
		select {
		case <-sweepTicker.C:
			sweep()
		case <-ctx.Done():
			log.Printf("shutting down worker")
			return
		}
	}
}

func consumeNotifications(ctx context.Context, cfg *config.Config, sender *email.Sender) {
	switch cfg.Events.Driver {
	case "kafka":
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
		defer consumer.Close()
		if err := consumer.ConsumeBookingEvents(ctx, sender.Send); err != nil && ctx.Err() == nil {
			log.Printf("consumer stopped: %v", err)
		}
	case "rabbitmq":
		consumer, err := amqp.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Queue, cfg.Kafka.NotificationsTopic)
		if err != nil {
			log.Printf("rabbitmq consumer: %v", err)
			return
		}
		defer consumer.Close()
		err = consumer.Consume(ctx, func(ctx context.Context, body []byte) error {
			event, err := kafka.DecodeBookingEvent(body)
			if err != nil {
				log.Printf("decode event error: %v", err)
				return nil
			}
			return sender.Send(ctx, event)
		})
		if err != nil && ctx.Err() == nil {
			log.Printf("consumer stopped: %v", err)
		}
	default:
		log.Printf("events driver %q: notifications disabled", cfg.Events.Driver)
	}
}
