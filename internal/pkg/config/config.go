package config

import (
	"os"
)

type Config struct {
	Server ServerConfig
	Shop   ShopConfig
	Redis  RedisConfig
	Audit  AuditConfig
	OTLP   OTLPConfig
}

type ServerConfig struct {
	Addr string
}

// ShopConfig points at the remote catalog/order service and the CDN used
// to resolve relative product image paths.
type ShopConfig struct {
	BaseURL string
	CDNURL  string
}

// RedisConfig is optional: an empty Addr selects the in-memory cache.
type RedisConfig struct {
	Addr string
}

// AuditConfig is optional: an empty Path disables the SQLite checkout
// transition log.
type AuditConfig struct {
	Path string
}

type OTLPConfig struct {
	Endpoint    string
	ServiceName string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Shop: ShopConfig{
			BaseURL: getEnv("SHOP_API_URL", ""),
			CDNURL:  getEnv("SHOP_CDN_URL", ""),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
		},
		Audit: AuditConfig{
			Path: getEnv("CHECKOUT_LOG_PATH", ""),
		},
		OTLP: OTLPConfig{
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "storefront"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
