package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shubhamkumar-dianapps/Ecommerce/internal/config"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/events"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/fulfillment"
	kafkax "github.com/shubhamkumar-dianapps/Ecommerce/internal/kafka"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/orders"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/postgres"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/redisx"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer utk event status.changed yang kita terbitkan balik
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(ctx)
	pub := &events.Publisher{Producer: prod, Service: cfg.ServiceName + "-fulfillment"}

	// Service
	svc := &fulfillment.Service{
		Orders:      &orders.Service{DB: db, Events: pub, Redis: rdb},
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-fulfillment",
	}

	// Consumer
	group := getenv("FULFILLMENT_GROUP", "fulfillment-svc")
	workers := mustAtoi(os.Getenv("FULFILLMENT_WORKERS"), "8")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.TopicFulfillment, workers)

	go func() {
		log.Printf("fulfillment consumer started: group=%s topic=%s workers=%d", group, events.TopicFulfillment, workers)
		if err := cons.Start(ctx, svc.HandleShipmentUpdate); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	prod.WaitClosed()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
