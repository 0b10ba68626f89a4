// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Solver modes.
const (
	SolverLocal  = "local"
	SolverRemote = "remote"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds every runtime setting of the service.
type Config struct {
	HTTPAddr string
	GRPCAddr string

	SolverMode     string
	SolverAddr     string
	SolverMaxDepth int
	SolverTimeout  time.Duration

	ClassifierStrategy string
	CanonicalSize      int
	LowConfidence      float64

	StoreBackend     string
	RedisAddr        string
	SessionTTL       time.Duration
	SolutionCacheTTL time.Duration

	DatabaseDSN string
	JWTSecret   string

	MaxBodyBytes    int64
	MaxImagePixels  int64
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, applying defaults for
// empty values.
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}
	cfg := &Config{
		HTTPAddr:           p.getString("HTTP_ADDR", ":8080"),
		GRPCAddr:           p.getString("GRPC_ADDR", ":50051"),
		SolverMode:         strings.ToLower(p.getString("SOLVER_MODE", SolverLocal)),
		SolverAddr:         p.getString("SOLVER_ADDR", "localhost:50051"),
		SolverMaxDepth:     p.getInt("SOLVER_MAX_DEPTH", 24),
		SolverTimeout:      p.getDuration("SOLVER_TIMEOUT", 10*time.Second),
		ClassifierStrategy: strings.ToLower(p.getString("CLASSIFIER_STRATEGY", "lab")),
		CanonicalSize:      p.getInt("CANONICAL_SIZE", 600),
		LowConfidence:      p.getFloat("LOW_CONFIDENCE", 0.15),
		StoreBackend:       strings.ToLower(p.getString("STORE_BACKEND", StoreMemory)),
		RedisAddr:          p.getString("REDIS_ADDR", "localhost:6379"),
		SessionTTL:         p.getDuration("SESSION_TTL", 2*time.Hour),
		SolutionCacheTTL:   p.getDuration("SOLUTION_CACHE_TTL", 24*time.Hour),
		DatabaseDSN:        p.getString("DATABASE_DSN", ""),
		JWTSecret:          p.getString("JWT_SECRET", ""),
		MaxBodyBytes:       int64(p.getInt("MAX_BODY_BYTES", 10<<20)),
		MaxImagePixels:     int64(p.getInt("MAX_IMAGE_PIXELS", 40_000_000)),
		ShutdownTimeout:    p.getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		LogLevel:           p.getString("LOG_LEVEL", "info"),
		LogFormat:          p.getString("LOG_FORMAT", "json"),
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that parse but make no sense.
func (c *Config) Validate() error {
	var errs []error
	switch c.SolverMode {
	case SolverLocal, SolverRemote:
	default:
		errs = append(errs, fmt.Errorf("SOLVER_MODE must be %q or %q, got %q", SolverLocal, SolverRemote, c.SolverMode))
	}
	if c.SolverMode == SolverRemote && c.SolverAddr == "" {
		errs = append(errs, errors.New("SOLVER_ADDR is required in remote mode"))
	}
	if c.SolverMaxDepth < 1 || c.SolverMaxDepth > 29 {
		errs = append(errs, fmt.Errorf("SOLVER_MAX_DEPTH must be in [1, 29], got %d", c.SolverMaxDepth))
	}
	switch c.ClassifierStrategy {
	case "lab", "hsv":
	default:
		errs = append(errs, fmt.Errorf("CLASSIFIER_STRATEGY must be lab or hsv, got %q", c.ClassifierStrategy))
	}
	if c.CanonicalSize < 3 {
		errs = append(errs, fmt.Errorf("CANONICAL_SIZE must be at least 3, got %d", c.CanonicalSize))
	}
	if c.LowConfidence < 0 || c.LowConfidence > 1 {
		errs = append(errs, fmt.Errorf("LOW_CONFIDENCE must be in [0, 1], got %v", c.LowConfidence))
	}
	switch c.StoreBackend {
	case StoreMemory, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreMemory, StoreRedis, c.StoreBackend))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes))
	}
	if c.MaxImagePixels <= 0 {
		errs = append(errs, fmt.Errorf("MAX_IMAGE_PIXELS must be positive, got %d", c.MaxImagePixels))
	}
	return errors.Join(errs...)
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) getString(key, fallback string) string {
	if value := strings.TrimSpace(p.getenv(key)); value != "" {
		return value
	}
	return fallback
}

func (p *parser) getInt(key string, fallback int) int {
	raw := p.getString(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func (p *parser) getFloat(key string, fallback float64) float64 {
	raw := p.getString(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func (p *parser) getDuration(key string, fallback time.Duration) time.Duration {
	raw := p.getString(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}
