package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/feedsync/syncer/internal/domain"
)

// Config holds all configuration for the sync job
type Config struct {
	Shopware ShopwareConfig
	OpenAI   OpenAIConfig
	Sync     SyncConfig
	Feeds    []domain.FeedDefinition
}

// ShopwareConfig holds the commerce platform API configuration
type ShopwareConfig struct {
	APIURL       string        `mapstructure:"api_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	SalesChannel string        `mapstructure:"sales_channel"`
	CurrencyID   string        `mapstructure:"currency_id"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// OpenAIConfig holds the enrichment API configuration
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// SyncConfig holds orchestration-level settings
type SyncConfig struct {
	VATDivisor          float64 `mapstructure:"vat_divisor"`
	DeeplinkField       string  `mapstructure:"deeplink_field"`
	ShippingField       string  `mapstructure:"shipping_field"`
	DefaultManufacturer string  `mapstructure:"default_manufacturer"`
	Stock               int     `mapstructure:"stock"`
	UserAgent           string  `mapstructure:"user_agent"`
}

// Load loads configuration from environment variables and config files.
// Feed definitions use the indexed FEED_URL_<n> / FEED_ID_<n> /
// FEED_MAPPING_<n> convention and are read without the env prefix.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/feedsync/")

	v.SetEnvPrefix("FEEDSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without a default are unknown to viper until bound, so
	// AutomaticEnv alone never surfaces them during Unmarshal
	for _, key := range []string{
		"shopware.api_url",
		"shopware.client_id",
		"shopware.client_secret",
		"openai.api_key",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	setDefaults(v)

	// Config file is optional; env vars and defaults cover everything
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	config.Feeds = loadFeeds()

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("shopware.sales_channel", "Storefront")
	// Default EUR currency id on a stock Shopware install
	v.SetDefault("shopware.currency_id", "b7d2554b0ce847cd82f3ac9bd1c0dfca")
	v.SetDefault("shopware.timeout", "30s")

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "https://api.openai.com")

	v.SetDefault("sync.vat_divisor", 1.19)
	v.SetDefault("sync.deeplink_field", "real_productlink")
	v.SetDefault("sync.shipping_field", "shipping_general")
	v.SetDefault("sync.default_manufacturer", "Default Hersteller")
	v.SetDefault("sync.stock", 9999)
	v.SetDefault("sync.user_agent", "FeedSync/1.0")
}

// loadFeeds scans the indexed feed definition variables. Indexes start
// at 1 and stop at the first missing FEED_URL_<n>.
func loadFeeds() []domain.FeedDefinition {
	var feeds []domain.FeedDefinition

	for n := 1; ; n++ {
		url, ok := os.LookupEnv(fmt.Sprintf("FEED_URL_%d", n))
		if !ok || url == "" {
			break
		}

		id := os.Getenv(fmt.Sprintf("FEED_ID_%d", n))
		if id == "" {
			id = fmt.Sprintf("FEED%d", n)
		}

		feeds = append(feeds, domain.FeedDefinition{
			URL:                 url,
			ID:                  id,
			Mapping:             ParseMappingRules(os.Getenv(fmt.Sprintf("FEED_MAPPING_%d", n))),
			DefaultManufacturer: os.Getenv(fmt.Sprintf("FEED_DEFAULT_MANUFACTURER_%d", n)),
		})
	}

	return feeds
}

// ParseMappingRules parses the "source=target|source2=target2" syntax.
// Pairs without an "=" are ignored.
func ParseMappingRules(raw string) []domain.MappingRule {
	var rules []domain.MappingRule

	for _, pair := range strings.Split(raw, "|") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		source, target, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		rules = append(rules, domain.MappingRule{
			Source: strings.TrimSpace(source),
			Target: strings.TrimSpace(target),
		})
	}

	return rules
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Shopware.APIURL == "" {
		return fmt.Errorf("Shopware API URL is required (set FEEDSYNC_SHOPWARE_API_URL)")
	}
	if config.Shopware.ClientID == "" || config.Shopware.ClientSecret == "" {
		return fmt.Errorf("Shopware API credentials are required (set FEEDSYNC_SHOPWARE_CLIENT_ID and FEEDSYNC_SHOPWARE_CLIENT_SECRET)")
	}
	if config.OpenAI.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required (set FEEDSYNC_OPENAI_API_KEY)")
	}
	if config.Sync.VATDivisor <= 0 {
		return fmt.Errorf("VAT divisor must be positive, got: %v", config.Sync.VATDivisor)
	}
	return nil
}
