package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	App       App
	Log       Log
	HTTP      HTTP
	Postgres  Postgres
	Redis     Redis
	Bidding   Bidding
	Settings  Settings
	Scheduler Scheduler
	Asynq     Asynq
}

type App struct {
	Name          string `env:"APP_NAME" envDefault:"auction-engine"`
	Version       string `env:"APP_VERSION" envDefault:"dev"`
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	// SeedFile is a JSON fixture loaded into the memory driver at startup.
	SeedFile string `env:"MEMSTORE_SEED_FILE"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

type HTTP struct {
	ListenAddress        string        `env:"HTTP_LISTEN_ADDRESS" envDefault:":8080"`
	ShutdownTimeout      time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ProbeListenAddress   string        `env:"PROBE_LISTEN_ADDRESS" envDefault:":8081"`
	MetricsListenAddress string        `env:"METRICS_LISTEN_ADDRESS" envDefault:":9090"`
}

type Redis struct {
	Address            string `env:"REDIS_ADDRESS" envDefault:"localhost:6379"`
	Username           string `env:"REDIS_USERNAME"`
	Password           string `env:"REDIS_PASSWORD" json:"-"`
	DB                 int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize           int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConnections int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"1"`
	MaxIdleConnections int    `env:"REDIS_MAX_IDLE_CONNS" envDefault:"5"`
	EventsChannel      string `env:"REDIS_EVENTS_CHANNEL" envDefault:"auction_events"`
}

type Bidding struct {
	LockTimeout    time.Duration `env:"BID_LOCK_TIMEOUT" envDefault:"5s"`
	EventQueueSize int           `env:"EVENT_QUEUE_SIZE" envDefault:"1024"`
}

type Settings struct {
	CacheTTL time.Duration `env:"SETTINGS_CACHE_TTL" envDefault:"60s"`
}

type Scheduler struct {
	SweepInterval time.Duration `env:"EXPIRY_SWEEP_INTERVAL" envDefault:"1m"`
	SweepTimeout  time.Duration `env:"EXPIRY_SWEEP_TIMEOUT" envDefault:"30s"`
	LockTTL       time.Duration `env:"EXPIRY_LOCK_TTL" envDefault:"2m"`
	BatchSize     int           `env:"EXPIRY_BATCH_SIZE" envDefault:"500"`
}

type Asynq struct {
	Concurrency int `env:"ASYNQ_CONCURRENCY" envDefault:"10"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var config Config

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	if err := config.validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c Config) validate() error {
	switch c.App.StorageDriver {
	case StorageDriverPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: PG_DSN is required for storage driver %q", c.App.StorageDriver)
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.App.StorageDriver)
	}

	if c.App.SeedFile != "" && c.App.StorageDriver != StorageDriverMemory {
		return fmt.Errorf("config: MEMSTORE_SEED_FILE requires STORAGE_DRIVER=%s", StorageDriverMemory)
	}

	if c.Bidding.LockTimeout <= 0 {
		return fmt.Errorf("config: BID_LOCK_TIMEOUT must be positive")
	}

	if c.Scheduler.SweepInterval <= 0 || c.Scheduler.SweepTimeout <= 0 {
		return fmt.Errorf("config: expiry sweep interval and timeout must be positive")
	}

	return nil
}
