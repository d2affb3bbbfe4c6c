package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/railrepay/delaytracker/internal/application/services"
	"github.com/railrepay/delaytracker/internal/config"
	"github.com/railrepay/delaytracker/internal/infrastructure/database"
	"github.com/railrepay/delaytracker/internal/infrastructure/httpclient"
	"github.com/railrepay/delaytracker/internal/infrastructure/persistence"
	"github.com/railrepay/delaytracker/internal/interfaces/health"
	"github.com/railrepay/delaytracker/internal/interfaces/messaging"
)

func main() {
	cfg := config.Load()

	db, err := database.GetInstance(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	journeys := persistence.NewJourneyRepository(db)
	alerts := persistence.NewDelayAlertRepository(db)
	outboxRepo := persistence.NewOutboxRepository(db)

	matcherClient := httpclient.NewMatcherClient(cfg.MatcherBaseURL, cfg.HTTPClientTimeout)
	upstreamClient := httpclient.NewUpstreamDelaysClient(cfg.UpstreamDelaysBaseURL, cfg.HTTPClientTimeout)
	oracleClient := httpclient.NewOracleClient(cfg.OracleBaseURL, cfg.HTTPClientTimeout)

	broker := messaging.NewLogBroker()

	publisher := services.NewOutboxPublisher(db, outboxRepo, broker)
	monitor := services.NewJourneyMonitor(db, journeys, publisher, 0)
	detector, err := services.NewDelayDetector(cfg.DelayThresholdMinutes)
	if err != nil {
		log.Fatalf("Failed to construct delay detector: %v", err)
	}
	claims := services.NewClaimTrigger(oracleClient, cfg.DelayThresholdMinutes)

	orchestrator := services.NewDetectionOrchestrator(db, alerts, monitor, detector, claims, publisher, matcherClient, upstreamClient)

	var scheduler *services.TickScheduler
	if cfg.CronEnabled {
		scheduler = services.NewTickScheduler(orchestrator, cfg.CronExpression, 5*time.Minute)
		scheduler.Start()
		log.Println("⏰ Tick scheduler started")
	} else {
		log.Println("⏰ Tick scheduler disabled (cron.enabled=false)")
	}

	outboxTicker := time.NewTicker(1 * time.Minute)
	outboxStop := make(chan struct{})
	go func() {
		for {
			select {
			case <-outboxTicker.C:
				if n, err := publisher.ProcessOutbox(context.Background(), 100); err != nil {
					log.Printf("⚠️ Outbox relay pass failed: %v", err)
				} else if n > 0 {
					log.Printf("📤 Outbox relay published %d events", n)
				}
				if n, err := publisher.RetryFailedEvents(context.Background(), cfg.OutboxMaxRetries); err != nil {
					log.Printf("⚠️ Outbox retry pass failed: %v", err)
				} else if n > 0 {
					log.Printf("📤 Outbox retry republished %d events", n)
				}
			case <-outboxStop:
				return
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", health.Handler(db))
	if scheduler != nil {
		mux.HandleFunc("/metrics", health.MetricsHandler(scheduler))
	}

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start health server: %v", err)
		}
	}()

	log.Printf("💚 Health check: http://localhost:%s/health", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	outboxTicker.Stop()
	close(outboxStop)

	if scheduler != nil {
		scheduler.Stop()
		log.Println("🛑 Tick scheduler stopped")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Health server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}
