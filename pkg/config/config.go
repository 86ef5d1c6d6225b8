package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

const (
	StoragePostgres  = "postgres"
	StorageFirestore = "firestore"
	StorageMemory    = "memory"
)

type Config struct {
	LogLevel   string `envconfig:"LOG_LEVEL" default:"DEBUG"`
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8000"`

	Storage string `envconfig:"STORAGE" default:"postgres"` // one of postgres, firestore, memory

	PostgresAddr     string `envconfig:"POSTGRES_ADDR" default:"127.0.0.1:5432"` // Postgres address in host[:port] format
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"vinylstore"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"develop"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"develop"`
	MigrateOnStart   bool   `envconfig:"MIGRATE_ON_START" default:"false"`

	FirestoreProject string `envconfig:"FIRESTORE_PROJECT"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"` // Redis address in host[:port] format
	RedisUser     string `envconfig:"REDIS_USER"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	JWTSecret string `envconfig:"JWT_SECRET" default:"develop"`

	LimiterFailOpen bool          `envconfig:"LIMITER_FAIL_OPEN" default:"false"`
	KeepsLimit      int           `envconfig:"KEEPS_LIMIT" default:"10"` // keeps per user per hour, 0 disables limiting
	CacheCatalog    bool          `envconfig:"CACHE_CATALOG" default:"false"`
	CatalogCacheTTL time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"30s"`
	KeepPeriod      time.Duration `envconfig:"KEEP_PERIOD"`

	KeepAttemptsBatchSize     int           `envconfig:"KEEP_ATTEMPTS_BATCH_SIZE" default:"500"`
	KeepAttemptsFlushInterval time.Duration `envconfig:"KEEP_ATTEMPTS_FLUSH_INTERVAL" default:"10s"`
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	c := &Config{}

	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("can't process env: %w", err)
	}

	if c.KeepPeriod <= 0 {
		c.KeepPeriod = model.DefaultKeepPeriod
	}

	return c, nil
}

// New loads configuration from environment and lets command line flags override it.
func New() (*Config, error) {
	c, err := Load()
	if err != nil {
		return nil, err
	}

	c.RegisterFlags(flag.CommandLine)
	flag.Parse()

	return c, c.Validate()
}

// RegisterFlags binds flags to c. Current values of c are used as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.LogLevel, "logLevel", c.LogLevel, "Set log level: DEBUG, INFO, WARNING, ERROR.")
	fs.StringVar(&c.ListenAddr, "listenAddr", c.ListenAddr, `Address in form of "[host]:port" that HTTP server should be listening on.`)

	fs.StringVar(&c.Storage, "storage", c.Storage, "Storage backend: postgres, firestore or memory.")

	fs.StringVar(&c.PostgresAddr, "postgresAddr", c.PostgresAddr, "Set PostgreSQL address as host:port, where port is optional (without TLS).")
	fs.StringVar(&c.PostgresDB, "postgresDB", c.PostgresDB, "Set PostgreSQL DB.")
	fs.StringVar(&c.PostgresUser, "postgresUser", c.PostgresUser, "Set PostgreSQL user.")
	fs.StringVar(&c.PostgresPassword, "postgresPassword", c.PostgresPassword, "Set PostgreSQL password.")
	fs.BoolVar(&c.MigrateOnStart, "migrateOnStart", c.MigrateOnStart, "Apply PostgreSQL migrations before serving.")

	fs.StringVar(&c.FirestoreProject, "firestoreProject", c.FirestoreProject, "Google Cloud project with Firestore database.")

	fs.StringVar(&c.RedisAddr, "redisAddr", c.RedisAddr, "Redis address in host[:port] format.")
	fs.StringVar(&c.RedisUser, "redisUser", c.RedisUser, "Redis user.")
	fs.StringVar(&c.RedisPassword, "redisPassword", c.RedisPassword, "Redis password.")

	fs.StringVar(&c.JWTSecret, "jwtSecret", c.JWTSecret, "Secret used to verify HS256 bearer tokens.")

	fs.BoolVar(&c.LimiterFailOpen, "limiterFailOpen", c.LimiterFailOpen, "Set to make limiter allow request if failed to check limits.")
	fs.IntVar(&c.KeepsLimit, "keepsLimit", c.KeepsLimit, "Number of keeps that single user can make within one hour. 0 disables the limit.")
	fs.BoolVar(&c.CacheCatalog, "cacheCatalog", c.CacheCatalog, "Set to cache vinyl details in redis.")
	fs.DurationVar(&c.CatalogCacheTTL, "catalogCacheTTL", c.CatalogCacheTTL, "How long vinyl details stay in cache.")
	fs.DurationVar(&c.KeepPeriod, "keepPeriod", c.KeepPeriod, "How long vinyl is held for the user in format that can be parsed by go's time.ParseDuration.")

	fs.IntVar(&c.KeepAttemptsBatchSize, "keepAttemptsBatchSize", c.KeepAttemptsBatchSize, "Number of keep attempts to be stored in buffer before being flushed.")
	fs.DurationVar(&c.KeepAttemptsFlushInterval, "keepAttemptsFlushInterval", c.KeepAttemptsFlushInterval, "How often keep attempts buffer should be flushed.")
}

func (c *Config) Validate() error {
	switch c.Storage {
	case StoragePostgres, StorageMemory:
	case StorageFirestore:
		if c.FirestoreProject == "" {
			return fmt.Errorf("firestore storage requires FIRESTORE_PROJECT")
		}
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}

	if c.KeepAttemptsBatchSize < 1 {
		return fmt.Errorf("keep attempts batch size must be positive")
	}

	return nil
}
