package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Lock        LockConfig
	Settlement  SettlementConfig
	RewardPoint RewardPointConfig
	Idempotency IdempotencyConfig
	Telemetry   TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	// LockTimeout bounds how long a statement waits for a row lock
	LockTimeout time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	TrustedProxies   []string
	RateLimit        int           // requests per window and client, 0 disables
	RateWindow       time.Duration
}

// LockConfig selects the document locker
type LockConfig struct {
	Backend string        // local, redis
	Wait    time.Duration // how long Acquire waits before LOCK_TIMEOUT
	TTL     time.Duration // redis lock expiry
}

// SettlementConfig holds the store settings the engine runs with
type SettlementConfig struct {
	Decimals            int32
	QuantityPrecision   int32
	WithoutStock        bool
	PaymentEpsilon      string
	BatchStrategy       string
	StackingMode        string
	StackingCapPercent  string
	RequireOpenRegister bool
	MaxRetries          int
	RetryInterval       time.Duration
}

// RewardPointConfig configures reward points
type RewardPointConfig struct {
	Enabled        bool
	PerPointAmount string
	MinimumAmount  string
	RedeemValue    string
	Expiry         time.Duration
}

// IdempotencyConfig configures Idempotency-Key handling
type IdempotencyConfig struct {
	Backend string // memory, redis
	TTL     time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	DBTraceEnabled    bool    // Enable database query tracing (otelgorm)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ERP_ prefix (e.g., ERP_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ERP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			LockTimeout:     v.GetDuration("database.lock_timeout"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			RateLimit:        v.GetInt("http.rate_limit"),
			RateWindow:       v.GetDuration("http.rate_window"),
		},
		Lock: LockConfig{
			Backend: v.GetString("lock.backend"),
			Wait:    v.GetDuration("lock.wait"),
			TTL:     v.GetDuration("lock.ttl"),
		},
		Settlement: SettlementConfig{
			Decimals:            v.GetInt32("settlement.decimals"),
			QuantityPrecision:   v.GetInt32("settlement.quantity_precision"),
			WithoutStock:        v.GetBool("settlement.without_stock"),
			PaymentEpsilon:      v.GetString("settlement.payment_epsilon"),
			BatchStrategy:       v.GetString("settlement.batch_strategy"),
			StackingMode:        v.GetString("settlement.stacking_mode"),
			StackingCapPercent:  v.GetString("settlement.stacking_cap_percent"),
			RequireOpenRegister: v.GetBool("settlement.require_open_register"),
			MaxRetries:          v.GetInt("settlement.max_retries"),
			RetryInterval:       v.GetDuration("settlement.retry_interval"),
		},
		RewardPoint: RewardPointConfig{
			Enabled:        v.GetBool("reward_point.enabled"),
			PerPointAmount: v.GetString("reward_point.per_point_amount"),
			MinimumAmount:  v.GetString("reward_point.minimum_amount"),
			RedeemValue:    v.GetString("reward_point.redeem_value"),
			Expiry:         v.GetDuration("reward_point.expiry"),
		},
		Idempotency: IdempotencyConfig{
			Backend: v.GetString("idempotency.backend"),
			TTL:     v.GetDuration("idempotency.ttl"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "erp-backoffice"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "erp"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "backoffice.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LockTimeout == 0 {
		cfg.Database.LockTimeout = 5 * time.Second
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.HTTP.RateWindow == 0 {
		cfg.HTTP.RateWindow = time.Minute
	}
	if cfg.Lock.Backend == "" {
		cfg.Lock.Backend = "local"
	}
	if cfg.Lock.Wait == 0 {
		cfg.Lock.Wait = 5 * time.Second
	}
	if cfg.Lock.TTL == 0 {
		cfg.Lock.TTL = 30 * time.Second
	}
	if cfg.Settlement.Decimals == 0 {
		cfg.Settlement.Decimals = 2
	}
	if cfg.Settlement.QuantityPrecision == 0 {
		cfg.Settlement.QuantityPrecision = 6
	}
	if cfg.Settlement.PaymentEpsilon == "" {
		cfg.Settlement.PaymentEpsilon = "0.005"
	}
	if cfg.Settlement.BatchStrategy == "" {
		cfg.Settlement.BatchStrategy = string(setting.BatchStrategyFEFO)
	}
	if cfg.Settlement.StackingMode == "" {
		cfg.Settlement.StackingMode = string(setting.StackingAdditive)
	}
	if cfg.Settlement.StackingCapPercent == "" {
		cfg.Settlement.StackingCapPercent = "0"
	}
	if cfg.Settlement.MaxRetries == 0 {
		cfg.Settlement.MaxRetries = 3
	}
	if cfg.Settlement.RetryInterval == 0 {
		cfg.Settlement.RetryInterval = 20 * time.Millisecond
	}
	if cfg.RewardPoint.PerPointAmount == "" {
		cfg.RewardPoint.PerPointAmount = "100"
	}
	if cfg.RewardPoint.MinimumAmount == "" {
		cfg.RewardPoint.MinimumAmount = "0"
	}
	if cfg.RewardPoint.RedeemValue == "" {
		cfg.RewardPoint.RedeemValue = "1"
	}
	if cfg.Idempotency.Backend == "" {
		cfg.Idempotency.Backend = "memory"
	}
	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = 24 * time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "erp-backoffice"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Lock.Backend {
	case "local", "redis":
	default:
		return fmt.Errorf("lock.backend must be local or redis, got %q", c.Lock.Backend)
	}
	switch c.Idempotency.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("idempotency.backend must be memory or redis, got %q", c.Idempotency.Backend)
	}

	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit cannot be negative")
	}

	if c.Settlement.Decimals < 0 || c.Settlement.QuantityPrecision < 0 {
		return fmt.Errorf("settlement.decimals and settlement.quantity_precision cannot be negative")
	}
	if c.Settlement.MaxRetries < 0 {
		return fmt.Errorf("settlement.max_retries cannot be negative")
	}
	if !setting.BatchStrategy(c.Settlement.BatchStrategy).IsValid() {
		return fmt.Errorf("settlement.batch_strategy must be FEFO or FIFO, got %q", c.Settlement.BatchStrategy)
	}
	if !setting.StackingMode(c.Settlement.StackingMode).IsValid() {
		return fmt.Errorf("settlement.stacking_mode must be additive or best_of, got %q", c.Settlement.StackingMode)
	}
	for key, value := range map[string]string{
		"settlement.payment_epsilon":      c.Settlement.PaymentEpsilon,
		"settlement.stacking_cap_percent": c.Settlement.StackingCapPercent,
		"reward_point.per_point_amount":   c.RewardPoint.PerPointAmount,
		"reward_point.minimum_amount":     c.RewardPoint.MinimumAmount,
		"reward_point.redeem_value":       c.RewardPoint.RedeemValue,
	} {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("%s must be a decimal, got %q", key, value)
		}
		if d.IsNegative() {
			return fmt.Errorf("%s cannot be negative", key)
		}
	}
	if c.RewardPoint.Enabled && !decimal.RequireFromString(c.RewardPoint.PerPointAmount).IsPositive() {
		return fmt.Errorf("reward_point.per_point_amount must be positive when reward points are enabled")
	}

	if c.App.Env == "production" {
		if c.Database.Driver == "postgres" && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.Driver == "postgres" && c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// Settings projects the engine settings. Load has already validated every
// decimal, so parsing cannot fail here.
func (c *Config) Settings() setting.Settings {
	s := c.Settlement
	r := c.RewardPoint
	return setting.Settings{
		General: setting.GeneralSetting{
			Decimals:          s.Decimals,
			QuantityPrecision: s.QuantityPrecision,
			WithoutStock:      s.WithoutStock,
			PaymentEpsilon:    decimal.RequireFromString(s.PaymentEpsilon),
			BatchStrategy:     setting.BatchStrategy(s.BatchStrategy),
		},
		Stacking: setting.StackingPolicy{
			Mode:       setting.StackingMode(s.StackingMode),
			CapPercent: decimal.RequireFromString(s.StackingCapPercent),
		},
		Pos: setting.PosSetting{
			RequireOpenRegister: s.RequireOpenRegister,
		},
		RewardPoint: setting.RewardPointSetting{
			IsActive:       r.Enabled,
			PerPointAmount: decimal.RequireFromString(r.PerPointAmount),
			MinimumAmount:  decimal.RequireFromString(r.MinimumAmount),
			RedeemValue:    decimal.RequireFromString(r.RedeemValue),
			Expiry:         r.Expiry,
		},
	}
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return SQLiteDSN(d.SQLitePath)
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// SQLiteDSN opens path with immediate write transactions, so concurrent
// writers queue on the busy timeout instead of failing on lock upgrade.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate&_foreign_keys=on", path)
}
