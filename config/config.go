// Package config reads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"todo-api/storage"
)

// Config holds everything main needs to assemble the service.
type Config struct {
	ListenAddr      string
	LogLevel        log.Level
	LogFormat       string
	CORSOrigins     []string
	Store           storage.Options
	RedisConn       string
	DeduperTTL      time.Duration
	StrictReorder   bool
	MetricsEnabled  bool
	TraceRatio      float64
	ShutdownTimeout time.Duration
}

// Load reads a .env file when present and then the process environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		ListenAddr:      ":8080",
		LogLevel:        log.InfoLevel,
		LogFormat:       "json",
		CORSOrigins:     []string{"*"},
		DeduperTTL:      24 * time.Hour,
		TraceRatio:      1,
		ShutdownTimeout: 10 * time.Second,
	}

	if v, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok && v != "" {
		cfg.ListenAddr = ":" + v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.ListenAddr = ":" + v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		lvl, err := log.ParseLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = lvl
	} else if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		cfg.LogLevel = log.DebugLevel
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch strings.ToLower(v) {
		case "json", "text":
			cfg.LogFormat = strings.ToLower(v)
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT %q: want json or text", v)
		}
	}

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
		if len(cfg.CORSOrigins) == 0 {
			cfg.CORSOrigins = []string{"*"}
		}
	}

	store, err := storeOptions()
	if err != nil {
		return Config{}, err
	}
	cfg.Store = store

	cfg.RedisConn = os.Getenv("REDIS_CONNECTION_STRING")
	if cfg.DeduperTTL, err = durationEnv("DEDUPER_TTL", cfg.DeduperTTL); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}
	if cfg.StrictReorder, err = boolEnv("REORDER_STRICT"); err != nil {
		return Config{}, err
	}
	if cfg.MetricsEnabled, err = boolEnv("METRICS_ENABLED"); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("TRACE_SAMPLE_RATIO"); v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil || ratio < 0 || ratio > 1 {
			return Config{}, fmt.Errorf("invalid TRACE_SAMPLE_RATIO %q: want a number in [0,1]", v)
		}
		cfg.TraceRatio = ratio
	}
	return cfg, nil
}

func storeOptions() (storage.Options, error) {
	opts := storage.Options{
		Backend:                strings.ToLower(os.Getenv("STORE_BACKEND")),
		MongoURL:               os.Getenv("MONGO_URL"),
		MongoDatabase:          envOr("DB_NAME", "todo"),
		MongoCollection:        envOr("MONGO_COLLECTION", "tasks"),
		TablesConnectionString: os.Getenv("STORAGE_CONNECTION_STRING"),
		TasksTable:             envOr("TASKS_TABLE", "tasks"),
	}
	if opts.Backend == "" {
		switch {
		case opts.MongoURL != "":
			opts.Backend = storage.BackendMongo
		case opts.TablesConnectionString != "":
			opts.Backend = storage.BackendTables
		default:
			opts.Backend = storage.BackendMemory
		}
	}
	switch opts.Backend {
	case storage.BackendMongo:
		if opts.MongoURL == "" {
			return opts, errors.New("missing MONGO_URL for mongo backend")
		}
	case storage.BackendTables:
		if opts.TablesConnectionString == "" {
			return opts, errors.New("missing STORAGE_CONNECTION_STRING for aztables backend")
		}
	case storage.BackendMemory:
	default:
		return opts, fmt.Errorf("invalid STORE_BACKEND %q", opts.Backend)
	}
	return opts, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: want a positive duration", key, v)
	}
	return d, nil
}

func boolEnv(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
