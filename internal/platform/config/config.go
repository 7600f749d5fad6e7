package config

import (
	"os"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	DatabaseURL     string
	ShutdownTimeout time.Duration
	MigrateLimit    int
	SeedDemo        bool
}

// DefaultShutdownTimeout bounds graceful shutdown on SIGINT.
var DefaultShutdownTimeout = 10 * time.Second

// DefaultMigrateLimit bounds how many records a bulk migration pass
// upgrades concurrently.
var DefaultMigrateLimit = 8

// FromEnv builds a Server config from environment variables so main stays lean.
// An empty NOMEN_DATABASE_URL selects the in-memory store.
func FromEnv() Server {
	addr := os.Getenv("NOMEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	shutdownTimeout := DefaultShutdownTimeout
	if raw := os.Getenv("NOMEN_SHUTDOWN_TIMEOUT"); raw != "" {
		if duration, err := time.ParseDuration(raw); err == nil {
			shutdownTimeout = duration
		}
	}

	return Server{
		Addr:            addr,
		DatabaseURL:     os.Getenv("NOMEN_DATABASE_URL"),
		ShutdownTimeout: shutdownTimeout,
		MigrateLimit:    DefaultMigrateLimit,
		SeedDemo:        os.Getenv("NOMEN_SEED_DEMO") == "true",
	}
}
