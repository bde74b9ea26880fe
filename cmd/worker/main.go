package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velmon/busline/config"
	"github.com/velmon/busline/internal/cache"
	"github.com/velmon/busline/internal/clock"
	"github.com/velmon/busline/internal/inventory"
	"github.com/velmon/busline/internal/kafka"
	"github.com/velmon/busline/internal/notify"
	"github.com/velmon/busline/internal/repository"
	"github.com/velmon/busline/internal/service/reservation"
	"github.com/velmon/busline/internal/service/ticketing"
	"github.com/velmon/busline/internal/worker"
)

func main() {
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

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Reservation.TripsCacheTTL)*time.Second)

	clk := clock.NewSystem()
	holdRepo := repository.NewHoldRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)
	guard := inventory.NewGuard(holdRepo, ticketRepo, clk)

	reservationService := reservation.NewReservationService(
		holdRepo,
		catalogRepo,
		guard,
		redisCache,
		producer,
		clk,
		cfg.Kafka.SeatEventsTopic,
		reservation.WithHoldDuration(time.Duration(cfg.Reservation.HoldDurationMinutes)*time.Minute),
		reservation.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	ticketingService := ticketing.NewTicketingService(
		ticketRepo,
		holdRepo,
		catalogRepo,
		guard,
		producer,
		clk,
		cfg.Kafka.SeatEventsTopic,
		ticketing.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	sender := notify.NewSender()
	go func() {
		if err := consumer.Consume(ctx, sender.Send); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	sweeper := worker.NewSweeper(
		func(ctx context.Context) (int, error) {
			expired, err := reservationService.SweepExpiredHolds(ctx)
			return len(expired), err
		},
		func(ctx context.Context) (int, error) {
			flipped, err := ticketingService.MarkNoShows(ctx)
			return len(flipped), err
		},
		worker.WithInterval(time.Duration(cfg.Worker.SweepIntervalSeconds)*time.Second),
		worker.WithInitialDelay(time.Duration(cfg.Worker.SweepInitialDelaySeconds)*time.Second),
	)

	sweeper.Run(ctx)
}
