package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	LLM           LLMConfig
	Stores        StoresConfig
	ObjectStore   ObjectStoreConfig
	Seed          SeedConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

type LLMConfig struct {
	BaseURL       string
	APIKey        string
	PrimaryModel  string
	FallbackModel string
	Temperature   float64
	Timeout       time.Duration
}

type StoresConfig struct {
	DataDir      string
	RegistryFile string
	QueryTimeout time.Duration
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type SeedConfig struct {
	Seed       int64
	Users      int
	Products   int
	Orders     int
	Warehouses int
	Tickets    int
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("OMNIDESK_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid OMNIDESK_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "OMNIDESK_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "OMNIDESK_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "OMNIDESK_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "OMNIDESK_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "OMNIDESK_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "OMNIDESK_REQUEST_TIMEOUT", &cfg.HTTP.RequestTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "OMNIDESK_LLM_API_KEY", &cfg.LLM.APIKey); err != nil {
		return Config{}, err
	}
	// GROQ_API_KEY is the variable the hosted deployments already export.
	if cfg.LLM.APIKey == "" {
		if err := applyString(lookup, "GROQ_API_KEY", &cfg.LLM.APIKey); err != nil {
			return Config{}, err
		}
	}
	if err := applyString(lookup, "OMNIDESK_LLM_BASE_URL", &cfg.LLM.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "OMNIDESK_LLM_PRIMARY_MODEL", &cfg.LLM.PrimaryModel); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "OMNIDESK_LLM_FALLBACK_MODEL", &cfg.LLM.FallbackModel); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "OMNIDESK_LLM_TEMPERATURE", &cfg.LLM.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "OMNIDESK_LLM_TIMEOUT", &cfg.LLM.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "OMNIDESK_STORES_DATA_DIR", &cfg.Stores.DataDir); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "OMNIDESK_STORES_FILE", &cfg.Stores.RegistryFile); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "OMNIDESK_STORE_QUERY_TIMEOUT", &cfg.Stores.QueryTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "OMNIDESK_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "OMNIDESK_OBJECTSTORE_REGION", &cfg.ObjectStore.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "OMNIDESK_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "OMNIDESK_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "OMNIDESK_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "OMNIDESK_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "OMNIDESK_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "OMNIDESK_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "OMNIDESK_SEED", &cfg.Seed.Seed); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "OMNIDESK_SEED_USERS", &cfg.Seed.Users); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "OMNIDESK_SEED_PRODUCTS", &cfg.Seed.Products); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "OMNIDESK_SEED_ORDERS", &cfg.Seed.Orders); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "OMNIDESK_SEED_WAREHOUSES", &cfg.Seed.Warehouses); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "OMNIDESK_SEED_TICKETS", &cfg.Seed.Tickets); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "OMNIDESK_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "OMNIDESK_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.HTTP.RequestTimeout < 0 {
		return Config{}, fmt.Errorf("OMNIDESK_REQUEST_TIMEOUT must be >= 0")
	}
	if cfg.LLM.PrimaryModel == "" {
		return Config{}, fmt.Errorf("primary model is required")
	}
	if cfg.Stores.QueryTimeout <= 0 {
		return Config{}, fmt.Errorf("OMNIDESK_STORE_QUERY_TIMEOUT must be > 0")
	}
	if cfg.Seed.Users <= 0 || cfg.Seed.Products <= 0 || cfg.Seed.Warehouses <= 0 {
		return Config{}, fmt.Errorf("seed users, products and warehouses must be > 0")
	}
	if cfg.Seed.Orders < 0 || cfg.Seed.Tickets < 0 {
		return Config{}, fmt.Errorf("seed orders and tickets must be >= 0")
	}
	return cfg, nil
}

// RequireAPIKey is the single missing-key policy shared by every binary that
// talks to the language model.
func (c LLMConfig) RequireAPIKey() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("llm api key is required (set OMNIDESK_LLM_API_KEY or GROQ_API_KEY)")
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "omnidesk-api"},
		HTTP: HTTPConfig{
			Address:        ":8000",
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   120 * time.Second,
			IdleTimeout:    60 * time.Second,
			RequestTimeout: 90 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL:       "https://api.groq.com/openai",
			PrimaryModel:  "llama-3.3-70b-versatile",
			FallbackModel: "llama-3.1-8b-instant",
			Temperature:   0,
			Timeout:       30 * time.Second,
		},
		Stores: StoresConfig{
			DataDir:      "data",
			QueryTimeout: 10 * time.Second,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "omnidesk",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		Seed: SeedConfig{
			Seed:       42,
			Users:      500,
			Products:   100,
			Orders:     2000,
			Warehouses: 20,
			Tickets:    500,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18000"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Seed.Users = 20
		cfg.Seed.Products = 10
		cfg.Seed.Orders = 40
		cfg.Seed.Warehouses = 3
		cfg.Seed.Tickets = 10
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
