// The expiry worker is housekeeping, not a correctness requirement:
// confirmation refuses a lapsed hold on its own. Flipping lapsed holds to
// expired keeps the holds table readable and releases advisory locks early.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/tablemeet/venue-scheduler/internal/adapters/postgres"
	"github.com/tablemeet/venue-scheduler/internal/adapters/rabbit"
	redisadapter "github.com/tablemeet/venue-scheduler/internal/adapters/redis"
	"github.com/tablemeet/venue-scheduler/internal/clock"
	"github.com/tablemeet/venue-scheduler/internal/config"
	"github.com/tablemeet/venue-scheduler/internal/domain"
	"github.com/tablemeet/venue-scheduler/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := postgres.NewRepository(pool, clock.NewSystem())

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	worker := NewExpiryWorker(repo, redisCache, rabbitPub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, time.Minute)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown expiry worker")
}

type holdStore interface {
	GetExpiredHolds(ctx context.Context, now time.Time) ([]domain.Hold, error)
	ExpireHold(ctx context.Context, holdID uuid.UUID) error
}

type lockReleaser interface {
	ReleaseHoldLock(ctx context.Context, venueID, slot string) error
}

type eventPublisher interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

type ExpiryWorker struct {
	repo      holdStore
	redis     lockReleaser
	rabbitPub eventPublisher
	logger    observability.Logger
}

func NewExpiryWorker(repo holdStore, redis lockReleaser, rabbitPub eventPublisher, logger observability.Logger) *ExpiryWorker {
	return &ExpiryWorker{repo: repo, redis: redis, rabbitPub: rabbitPub, logger: logger}
}

func (w *ExpiryWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			holds, err := w.repo.GetExpiredHolds(ctx, now)
			if err != nil {
				w.logger.Error("failed to get expired holds", err)
				continue
			}
			for _, hold := range holds {
				if err := w.expireWithRetry(ctx, hold); err != nil {
					w.logger.WithField("hold_id", hold.ID).Error("failed to expire hold after retries", err)
				}
			}
		}
	}
}

func (w *ExpiryWorker) expireWithRetry(ctx context.Context, hold domain.Hold) error {
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		err := w.repo.ExpireHold(ctx, hold.ID)
		if errors.Is(err, domain.ErrNotFound) {
			// The hold was confirmed or flipped by another replica between
			// listing and this update. Nothing expired here, so no event;
			// just drop the advisory lock.
			w.releaseLock(ctx, hold)
			return nil
		}
		if err != nil {
			backoff := time.Duration(1<<i) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}

		w.releaseLock(ctx, hold)

		payload, _ := json.Marshal(map[string]interface{}{"hold_id": hold.ID})
		msg := amqp.Publishing{
			MessageId:   uuid.New().String(),
			ContentType: "application/json",
			Body:        payload,
		}
		return w.rabbitPub.Publish(ctx, "hold.expired", msg)
	}
	return fmt.Errorf("failed after %d retries", maxRetries)
}

func (w *ExpiryWorker) releaseLock(ctx context.Context, hold domain.Hold) {
	slot := hold.Range.Start.UTC().Format(time.RFC3339)
	if err := w.redis.ReleaseHoldLock(ctx, hold.VenueID.String(), slot); err != nil {
		w.logger.WithField("hold_id", hold.ID).Warn("failed to release advisory lock", err)
	}
}
