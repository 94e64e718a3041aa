package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kedaiku/resto-pos/internal/config"
	kafkax "github.com/kedaiku/resto-pos/internal/kafka"
	"github.com/kedaiku/resto-pos/internal/kitchen"
	"github.com/kedaiku/resto-pos/internal/orders"
	"github.com/kedaiku/resto-pos/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis (board storage + event dedup)
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &kitchen.Service{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-kitchen",
	}

	group := getenv("KITCHEN_GROUP", "kitchen-board")
	workers := mustAtoi(os.Getenv("KITCHEN_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderChanged, workers)

	go func() {
		log.Printf("kitchen consumer started: group=%s topic=%s workers=%d", group, orders.TopicOrderChanged, workers)
		if err := cons.Start(ctx, svc.HandleOrderChanged); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down consumer...")
	cancel()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

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
