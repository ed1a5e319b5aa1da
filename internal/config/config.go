package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	ListenAddr string

	RemoteBaseURL  string
	RemoteTimeout  time.Duration
	RemotePageSize int

	OTLPEndpoint string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:        getenv("APP_SERVICE", "orgmesh"),
		AppVersion:     getenv("APP_VERSION", "0.1.0"),
		Environment:    getenv("ENVIRONMENT", "development"),
		ListenAddr:     getenv("LISTEN_ADDR", ":8080"),
		RemoteBaseURL:  strings.TrimRight(getenv("RELATIONSHIP_SERVICE_URL", "http://localhost:9090"), "/"),
		RemoteTimeout:  time.Duration(getenvInt("RELATIONSHIP_SERVICE_TIMEOUT_SECONDS", 12)) * time.Second,
		RemotePageSize: getenvInt("RELATIONSHIP_SERVICE_PAGE_SIZE", 50),
		OTLPEndpoint:   getenv("OTLP_ENDPOINT", "localhost:4317"),
	}
}

// Module wires configuration loading and the hot-reloaded catalog.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewCatalogHolder),
)

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
