// Package config reads service configuration from the environment. A .env
// file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Logical service names used for discovery.
const (
	ServiceIdentity  = "identity"
	ServiceCatalogue = "catalogue"
	ServiceCart      = "cart"
	ServiceOrder     = "order"
)

type Database struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Schema   string
}

// DSN returns a pgx connection string with the credentials escaped.
func (d Database) DSN() string {
	q := url.Values{}
	q.Set("sslmode", "disable")
	q.Set("search_path", d.Schema)
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

type Config struct {
	Service string

	Host string
	Port int

	DB Database

	TokenSecret string
	TokenTTL    time.Duration

	// RegistryBackend is "static" or "redis".
	RegistryBackend   string
	RedisAddr         string
	StaticInstances   map[string][]string
	AdvertiseAddr     string
	HeartbeatInterval time.Duration
	InstanceTTL       time.Duration

	AMQPURL     string
	CORSOrigins []string

	AdminUsername string
	AdminPassword string

	// SeedData fills an empty catalogue with sample products on start.
	SeedData bool
}

// Load builds the configuration for the named service.
func Load(service string) (Config, error) {
	port, err := strconv.Atoi(getEnv("HTTP_PORT", defaultPort(service)))
	if err != nil {
		return Config{}, fmt.Errorf("HTTP_PORT: %w", err)
	}
	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("TOKEN_TTL: %w", err)
	}
	heartbeat, err := time.ParseDuration(getEnv("HEARTBEAT_INTERVAL", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("HEARTBEAT_INTERVAL: %w", err)
	}
	instanceTTL, err := time.ParseDuration(getEnv("INSTANCE_TTL", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("INSTANCE_TTL: %w", err)
	}
	seed, err := strconv.ParseBool(getEnv("SEED_DATA", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("SEED_DATA: %w", err)
	}
	static, err := ParseInstances(os.Getenv("REGISTRY_STATIC"))
	if err != nil {
		return Config{}, fmt.Errorf("REGISTRY_STATIC: %w", err)
	}

	cfg := Config{
		Service: service,
		Host:    getEnv("HTTP_HOST", ""),
		Port:    port,
		DB: Database{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Username: getEnv("DB_USERNAME", "shop"),
			Password: getEnv("DB_PASSWORD", "shop"),
			Database: getEnv("DB_DATABASE", service),
			Schema:   getEnv("DB_SCHEMA", "public"),
		},
		TokenSecret:       os.Getenv("TOKEN_SECRET"),
		TokenTTL:          ttl,
		RegistryBackend:   getEnv("REGISTRY_BACKEND", "static"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		StaticInstances:   static,
		AdvertiseAddr:     getEnv("ADVERTISE_ADDR", fmt.Sprintf("http://localhost:%d", port)),
		HeartbeatInterval: heartbeat,
		InstanceTTL:       instanceTTL,
		AMQPURL:           os.Getenv("AMQP_URL"),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "*")),
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		SeedData:          seed,
	}
	if cfg.RegistryBackend != "static" && cfg.RegistryBackend != "redis" {
		return Config{}, fmt.Errorf("REGISTRY_BACKEND: unknown backend %q", cfg.RegistryBackend)
	}
	return cfg, nil
}

// ParseInstances parses "name=addr[,addr];name=addr" into a lookup table.
func ParseInstances(raw string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, addrs, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("malformed entry %q", entry)
		}
		out[strings.TrimSpace(name)] = append(out[strings.TrimSpace(name)], splitList(addrs)...)
	}
	return out, nil
}

func defaultPort(service string) string {
	switch service {
	case ServiceIdentity:
		return "8081"
	case ServiceCatalogue:
		return "8082"
	case ServiceCart:
		return "8083"
	case ServiceOrder:
		return "8084"
	}
	return "8080"
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
