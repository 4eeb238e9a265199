package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"homeauto/internal/cache"
	"homeauto/internal/config"
	"homeauto/internal/dispatch"
	"homeauto/internal/engine"
	"homeauto/internal/ingest"
	"homeauto/internal/scheduler"
	"homeauto/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	ruleStore, err := store.NewPostgresStore(ctx, cfg.DBURL)
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	defer ruleStore.Close()

	ruleCache := cache.NewRedisCache(cfg.RedisAddr)
	if err := ruleCache.Ping(ctx); err != nil {
		log.Fatalf("Failed to connect to cache: %v", err)
	}

	mqttClient, err := dispatch.NewMQTTClient(cfg.MQTTBroker, cfg.MQTTClientID)
	if err != nil {
		log.Fatalf("Failed to connect to MQTT: %v", err)
	}

	eng := engine.NewEngine(ruleCache, ruleStore, dispatch.NewMQTTDispatcher(mqttClient), cfg)
	if err := eng.Init(ctx); err != nil {
		// stale or empty projections until the next rebuild; keep serving
		log.Printf("Initial rebuild incomplete: %v", err)
	}

	ingestor := ingest.NewIngestor(mqttClient, ruleCache, eng)
	if err := ingestor.Start(); err != nil {
		log.Fatalf("Failed to start ingestion: %v", err)
	}

	poller := scheduler.NewPoller(cfg.PollInterval(), eng.OnScheduleTick)
	if err := poller.Start(); err != nil {
		log.Fatalf("Failed to start poller: %v", err)
	}

	log.Println("Engine running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	poller.Stop()
	ingestor.Stop()
	mqttClient.Disconnect(250)
	log.Println("Shutdown complete")
}
