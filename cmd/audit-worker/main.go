// The audit worker tails the event exchange and appends every domain event
// to the mongo audit trail. It is the only writer of that collection.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	mongoadapter "github.com/tablemeet/venue-scheduler/internal/adapters/mongo"
	"github.com/tablemeet/venue-scheduler/internal/adapters/rabbit"
	"github.com/tablemeet/venue-scheduler/internal/config"
	"github.com/tablemeet/venue-scheduler/internal/observability"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var auditedEvents = []string{"booking.confirmed", "swap.executed", "credit.issued", "hold.expired"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger()

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("vsched"), logger)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	consumer, err := rabbit.NewConsumer(conn, "audit", auditedEvents)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}

	go func() {
		for d := range deliveries {
			var data map[string]interface{}
			if err := json.Unmarshal(d.Body, &data); err != nil {
				logger.WithField("routing_key", d.RoutingKey).Error("unreadable event payload", err)
				d.Nack(false, false)
				continue
			}
			if err := audit.LogEvent(ctx, d.RoutingKey, data); err != nil {
				d.Nack(false, true)
				continue
			}
			d.Ack(false)
		}
	}()
	logger.Info("Audit worker started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown audit worker")
}
