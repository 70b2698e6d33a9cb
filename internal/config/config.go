package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rl1809/shop/internal/platform/observability"
)

const (
	defaultHTTPAddr  = ":8080"
	defaultGRPCAddr  = ":50051"
	defaultMySQLDSN  = "root:root@tcp(localhost:3306)/shop?parseTime=true"
	defaultRedisAddr = "localhost:6379"
	defaultBatchSize = 100
	maxBatchSize     = 1000
)

type Config struct {
	HTTPAddr string                      `yaml:"http_addr"`
	GRPCAddr string                      `yaml:"grpc_addr"`
	Database DatabaseConfig              `yaml:"database"`
	Redis    RedisConfig                 `yaml:"redis"`
	Query    QueryConfig                 `yaml:"query"`
	Orders   OrdersConfig                `yaml:"orders"`
	Log      LogConfig                   `yaml:"log"`
	Tracing  observability.TracingConfig `yaml:"tracing"`
}

type DatabaseConfig struct {
	// Driver is one of mysql, postgres, sqlite.
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	SlowThreshold   time.Duration `yaml:"slow_threshold"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
	Seed            bool          `yaml:"seed"`
}

type RedisConfig struct {
	// Addr empty disables idempotency keys.
	Addr     string `yaml:"addr"`
	PoolSize int    `yaml:"pool_size"`
}

type QueryConfig struct {
	BatchSize int `yaml:"batch_size"`
}

type OrdersConfig struct {
	// RatePerSecond throttles order placement; 0 disables it.
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

type LogConfig struct {
	Mode string `yaml:"mode"`
}

func Default() Config {
	return Config{
		HTTPAddr: defaultHTTPAddr,
		GRPCAddr: defaultGRPCAddr,
		Database: DatabaseConfig{
			Driver:          "mysql",
			DSN:             defaultMySQLDSN,
			MaxOpenConns:    50,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
			SlowThreshold:   200 * time.Millisecond,
			AutoMigrate:     true,
		},
		Redis: RedisConfig{
			Addr:     defaultRedisAddr,
			PoolSize: 100,
		},
		Query: QueryConfig{BatchSize: defaultBatchSize},
		Orders: OrdersConfig{
			RatePerSecond: 200,
			Burst:         50,
		},
		Log: LogConfig{Mode: "dev"},
		Tracing: observability.TracingConfig{
			Exporter:    "stdout",
			SampleRatio: 0.1,
		},
	}
}

// Load starts from Default, overlays the YAML file at path (if any), then
// SHOP_* environment variables, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str(&c.HTTPAddr, "SHOP_HTTP_ADDR")
	str(&c.GRPCAddr, "SHOP_GRPC_ADDR")
	str(&c.Database.Driver, "SHOP_DB_DRIVER")
	str(&c.Database.DSN, "SHOP_DB_DSN")
	str(&c.Redis.Addr, "SHOP_REDIS_ADDR")
	str(&c.Log.Mode, "SHOP_LOG_MODE")
	str(&c.Tracing.Exporter, "SHOP_TRACING_EXPORTER")
	str(&c.Tracing.Endpoint, "SHOP_TRACING_ENDPOINT")

	var errs []error
	errs = append(errs,
		integer(&c.Database.MaxOpenConns, "SHOP_DB_MAX_OPEN_CONNS"),
		integer(&c.Query.BatchSize, "SHOP_QUERY_BATCH_SIZE"),
		boolean(&c.Database.AutoMigrate, "SHOP_DB_AUTO_MIGRATE"),
		boolean(&c.Database.Seed, "SHOP_DB_SEED"),
		boolean(&c.Tracing.Enabled, "SHOP_TRACING_ENABLED"),
	)
	return errors.Join(errs...)
}

func (c Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of mysql, postgres, sqlite", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Query.BatchSize < 1 || c.Query.BatchSize > maxBatchSize {
		errs = append(errs, fmt.Errorf("query.batch_size must be within 1..%d, got %d", maxBatchSize, c.Query.BatchSize))
	}
	if c.Orders.RatePerSecond < 0 {
		errs = append(errs, errors.New("orders.rate_per_second must not be negative"))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	return errors.Join(errs...)
}

func str(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok {
		*dst = strings.TrimSpace(v)
	}
}

func integer(dst *int, name string) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = i
	return nil
}

func boolean(dst *bool, name string) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = b
	return nil
}
