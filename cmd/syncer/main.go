package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/feedsync/syncer/config"
	"github.com/feedsync/syncer/internal/infrastructure/feed"
	"github.com/feedsync/syncer/internal/infrastructure/openai"
	"github.com/feedsync/syncer/internal/infrastructure/shopware"
	"github.com/feedsync/syncer/internal/usecase"
)

func main() {
	// A .env file is a convenience for local runs, not a requirement
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if len(cfg.Feeds) == 0 {
		log.Fatalf("No feeds configured. Set FEED_URL_1 (and optionally FEED_ID_1, FEED_MAPPING_1).")
	}

	log.Printf("Starting FeedSync v1.0.0")
	log.Printf("Shopware API: %s", cfg.Shopware.APIURL)
	log.Printf("Enrichment model: %s", cfg.OpenAI.Model)
	log.Printf("Feeds configured: %d", len(cfg.Feeds))

	// Initialize infrastructure dependencies
	reader := feed.NewReader(cfg.Shopware.Timeout, cfg.Sync.UserAgent)

	enricher := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)

	catalog := shopware.NewClient(shopware.Config{
		APIURL:              cfg.Shopware.APIURL,
		ClientID:            cfg.Shopware.ClientID,
		ClientSecret:        cfg.Shopware.ClientSecret,
		SalesChannel:        cfg.Shopware.SalesChannel,
		DefaultManufacturer: cfg.Sync.DefaultManufacturer,
		Timeout:             cfg.Shopware.Timeout,
	})

	// Initialize usecase layer
	service := usecase.NewSyncService(
		reader,
		enricher,
		catalog,
		cfg.Feeds,
		usecase.SyncServiceConfig{
			VATDivisor:          cfg.Sync.VATDivisor,
			CurrencyID:          cfg.Shopware.CurrencyID,
			DeeplinkField:       cfg.Sync.DeeplinkField,
			ShippingField:       cfg.Sync.ShippingField,
			DefaultManufacturer: cfg.Sync.DefaultManufacturer,
			Stock:               cfg.Sync.Stock,
		},
	)

	if err := service.Run(context.Background()); err != nil {
		log.Fatalf("Sync run failed: %v", err)
	}

	log.Printf("Sync run finished")
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
