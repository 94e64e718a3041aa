package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kedaiku/resto-pos/internal/cache"
	"github.com/kedaiku/resto-pos/internal/config"
	"github.com/kedaiku/resto-pos/internal/httpx"
	"github.com/kedaiku/resto-pos/internal/inventory"
	kafkax "github.com/kedaiku/resto-pos/internal/kafka"
	"github.com/kedaiku/resto-pos/internal/orders"
	"github.com/kedaiku/resto-pos/internal/pos"
	"github.com/kedaiku/resto-pos/internal/postgres"
	"github.com/kedaiku/resto-pos/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer (order change fan-out)
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderChanged, 1024)
	prod.Start(ctx)

	// Core wiring
	repo := &orders.Repo{DB: db}
	svc := &pos.Service{
		Orders:    repo,
		Planner:   &inventory.Planner{Recipes: &inventory.PgRecipes{DB: db}},
		Ledger:    &inventory.Ledger{DB: db, AllowOversell: cfg.AllowOversell},
		Cache:     &cache.Invalidator{Redis: rdb},
		Publisher: prod,
		Redis:     rdb,
		Name:      cfg.ServiceName,
	}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Svc:      svc,
		Repo:     repo,
		Redis:    rdb,
		Listings: &cache.Listings{Redis: rdb},
	}
	oh.Register(router)
	sh := &httpx.StocksHandler{Stocks: &inventory.StockRepo{DB: db}}
	sh.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // stop accepting, flush what is queued
	cancel()
	prod.WaitClosed()
}
