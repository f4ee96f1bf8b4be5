package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookshop-bot/config"
	"bookshop-bot/internal/api"
	"bookshop-bot/internal/bot"
	"bookshop-bot/internal/broker"
	"bookshop-bot/internal/card"
	"bookshop-bot/internal/catalog"
	"bookshop-bot/internal/order"
	"bookshop-bot/internal/session"
	"bookshop-bot/internal/store"
	"bookshop-bot/internal/util"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting bookshop bot")

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer("bookshop-bot", cfg.Observ.JaegerEndpoint)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				log.Printf("Error shutting down tracer: %v", err)
			}
		}()
	}

	backend, err := store.Open(cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	defer backend.Close()
	records := store.NewRecords(backend)
	log.Printf("Record store ready (%s backend)", cfg.Store.Backend)

	cat := catalog.NewManager(records)
	if err := cat.Seed(context.Background()); err != nil {
		log.Fatalf("Failed to seed catalog: %v", err)
	}
	cards := card.NewRegistry(records)

	var publisher broker.Publisher = broker.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		log.Println("Kafka producer initialized")
	}

	gateway, err := bot.NewTelegramGateway(cfg.Telegram.Token)
	if err != nil {
		log.Fatalf("Failed to connect to Telegram: %v", err)
	}

	workflow := order.NewWorkflow(records, publisher, bot.NewNotifier(gateway), cfg.Telegram.AdminIDs)

	sessions := session.NewManager(cfg.Session.IdleTTL)
	botCtx, botCancel := context.WithCancel(context.Background())
	defer botCancel()
	sessions.StartJanitor(botCtx, time.Minute)

	b := bot.New(gateway, records, cat, cards, sessions, workflow, cfg.IsOperator())
	go gateway.Run(botCtx, b.Dispatch)
	log.Println("Bot update loop started")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(workflow, sessions, records)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	botCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Bot exited")
}
