package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/tablemeet/venue-scheduler/internal/adapters/calendar"
	mongoadapter "github.com/tablemeet/venue-scheduler/internal/adapters/mongo"
	"github.com/tablemeet/venue-scheduler/internal/adapters/postgres"
	redisadapter "github.com/tablemeet/venue-scheduler/internal/adapters/redis"
	smtpadapter "github.com/tablemeet/venue-scheduler/internal/adapters/smtp"
	"github.com/tablemeet/venue-scheduler/internal/availability"
	"github.com/tablemeet/venue-scheduler/internal/booking"
	"github.com/tablemeet/venue-scheduler/internal/clock"
	"github.com/tablemeet/venue-scheduler/internal/config"
	"github.com/tablemeet/venue-scheduler/internal/credit"
	httphandler "github.com/tablemeet/venue-scheduler/internal/http"
	"github.com/tablemeet/venue-scheduler/internal/idempotency"
	"github.com/tablemeet/venue-scheduler/internal/observability"
	"github.com/tablemeet/venue-scheduler/internal/rateLimit"
	"github.com/tablemeet/venue-scheduler/internal/swap"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()
	clk := clock.NewSystem()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := postgres.NewRepository(pool, clk)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database("vsched")
	catalog := mongoadapter.NewCatalogRepository(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, time.Hour)
	rl := rateLimit.NewRateLimiter(redisCache)

	calClient := calendar.NewClient(cfg.CalendarBaseURL)
	mailer := smtpadapter.NewMailer(cfg.SMTPAddr, cfg.SMTPFrom)

	resolver := availability.NewResolver(repo, calClient, catalog, logger,
		availability.WithBuffer(time.Duration(cfg.BufferMinutes)*time.Minute))
	bookings := booking.NewService(repo, redisCache, clk, booking.WithHoldTTL(cfg.HoldTTL))
	swaps := swap.NewCoordinator(repo, repo, logger, swap.WithFee(cfg.SwapFee))
	credits := credit.NewIssuer(repo, mailer, catalog, logger)

	handlers := httphandler.NewHandlers(cfg, resolver, bookings, swaps, credits, repo, catalog, idemp)
	r := httphandler.SetupRouter(handlers, logger, rl)

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
