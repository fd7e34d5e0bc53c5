package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/junii03/banking-ledger/internal/models"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP          HTTPConfig
	Database      DatabaseConfig
	Store         StoreConfig
	Logging       LoggingConfig
	Ledger        LedgerConfig
	Notifications NotificationConfig
	Graph         GraphConfig
}

type HTTPConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns host:port for http.Server.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LockTimeout     time.Duration
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type StoreConfig struct {
	Driver string // postgres|memory
}

type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

// ProductDefaults are the limits and rates applied to a new account of a given type.
type ProductDefaults struct {
	DailyLimit     decimal.Decimal
	MonthlyLimit   decimal.Decimal
	MinimumBalance decimal.Decimal
	InterestRate   decimal.Decimal
}

type LedgerConfig struct {
	CountryCode              string
	BankCode                 string
	Currency                 string
	MaxAccountNumberAttempts int
	LockTimeout              time.Duration
	ConflictRetries          int
	Timezone                 string
	RecordFailedTransfers    bool
	EnforceMonthlyLimit      bool
	PublishTimeout           time.Duration
	Products                 map[models.AccountType]ProductDefaults
}

// Location resolves Timezone, falling back to UTC.
func (c LedgerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type NotificationConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// GraphConfig describes connectivity to Neo4j. An empty URI disables projection.
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

const (
	defaultHost                = "0.0.0.0"
	defaultPort                = 8080
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 15 * time.Second
	defaultIdleTimeout         = 60 * time.Second
	defaultShutdownTimeout     = 30 * time.Second
	defaultLoggingLevel        = "info"
	defaultLoggingFormat       = "json"
	defaultMaxAttempts         = 20
	defaultLockTimeout         = 5 * time.Second
	defaultConflictRetries     = 3
	defaultPublishTimeout      = 5 * time.Second
	defaultNotificationTimeout = 5 * time.Second
	defaultGraphMaxSessions    = 10
)

// DefaultProducts is the product table used when no overrides are configured.
func DefaultProducts() map[models.AccountType]ProductDefaults {
	return map[models.AccountType]ProductDefaults{
		models.AccountTypeSavings: {
			DailyLimit:     decimal.NewFromInt(500000),
			MonthlyLimit:   decimal.NewFromInt(5000000),
			MinimumBalance: decimal.NewFromInt(1000),
			InterestRate:   decimal.RequireFromString("5.50"),
		},
		models.AccountTypeCurrent: {
			DailyLimit:     decimal.NewFromInt(1000000),
			MonthlyLimit:   decimal.NewFromInt(10000000),
			MinimumBalance: decimal.Zero,
			InterestRate:   decimal.Zero,
		},
		models.AccountTypeFixedDeposit: {
			DailyLimit:     decimal.NewFromInt(100000),
			MonthlyLimit:   decimal.NewFromInt(1000000),
			MinimumBalance: decimal.NewFromInt(10000),
			InterestRate:   decimal.RequireFromString("12.00"),
		},
		models.AccountTypeIslamicSavings: {
			DailyLimit:     decimal.NewFromInt(500000),
			MonthlyLimit:   decimal.NewFromInt(5000000),
			MinimumBalance: decimal.NewFromInt(1000),
			InterestRate:   decimal.Zero,
		},
		models.AccountTypeSalary: {
			DailyLimit:     decimal.NewFromInt(300000),
			MonthlyLimit:   decimal.NewFromInt(3000000),
			MinimumBalance: decimal.Zero,
			InterestRate:   decimal.RequireFromString("3.00"),
		},
	}
}

// Load reads an optional .env file and then the environment, applying defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}

	cfg := Config{
		HTTP: HTTPConfig{
			Host:            valueOrDefault("SERVER_HOST", defaultHost),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Database: DatabaseConfig{
			Host:            valueOrDefault("DB_HOST", "localhost"),
			Port:            valueOrDefault("DB_PORT", "5432"),
			User:            valueOrDefault("DB_USER", "postgres"),
			Password:        valueOrDefault("DB_PASSWORD", "postgres"),
			Name:            valueOrDefault("DB_NAME", "ledger"),
			SSLMode:         valueOrDefault("DB_SSLMODE", "disable"),
			MaxOpenConns:    parseIntWithDefault("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseIntWithDefault("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: 10 * time.Minute,
			LockTimeout:     defaultLockTimeout,
		},
		Store: StoreConfig{
			Driver: strings.ToLower(valueOrDefault("STORE_DRIVER", StoreDriverPostgres)),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Ledger: LedgerConfig{
			CountryCode:              valueOrDefault("LEDGER_COUNTRY_CODE", "PK"),
			BankCode:                 valueOrDefault("LEDGER_BANK_CODE", "HBBL"),
			Currency:                 valueOrDefault("LEDGER_CURRENCY", "PKR"),
			MaxAccountNumberAttempts: parseIntWithDefault("LEDGER_MAX_ACCOUNT_NUMBER_ATTEMPTS", defaultMaxAttempts),
			LockTimeout:              defaultLockTimeout,
			ConflictRetries:          parseIntWithDefault("LEDGER_CONFLICT_RETRIES", defaultConflictRetries),
			Timezone:                 valueOrDefault("LEDGER_TIMEZONE", "Asia/Karachi"),
			RecordFailedTransfers:    parseBoolWithDefault("LEDGER_RECORD_FAILED_TRANSFERS", true),
			EnforceMonthlyLimit:      parseBoolWithDefault("LEDGER_ENFORCE_MONTHLY_LIMIT", false),
			PublishTimeout:           defaultPublishTimeout,
			Products:                 DefaultProducts(),
		},
		Notifications: NotificationConfig{
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
			Timeout:    defaultNotificationTimeout,
		},
		Graph: GraphConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       os.Getenv("GRAPH_DATABASE"),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphMaxSessions),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
		{"DB_LOCK_TIMEOUT", &cfg.Database.LockTimeout},
		{"LEDGER_LOCK_TIMEOUT", &cfg.Ledger.LockTimeout},
		{"LEDGER_PUBLISH_TIMEOUT", &cfg.Ledger.PublishTimeout},
		{"NOTIFY_TIMEOUT", &cfg.Notifications.Timeout},
	}
	for _, d := range durations {
		if err := parseDuration(d.key, d.target); err != nil {
			return Config{}, err
		}
	}

	if err := applyProductOverrides(cfg.Ledger.Products); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Ledger.MaxAccountNumberAttempts <= 0 {
		return fmt.Errorf("LEDGER_MAX_ACCOUNT_NUMBER_ATTEMPTS must be positive, got %d", c.Ledger.MaxAccountNumberAttempts)
	}
	if c.Ledger.ConflictRetries < 0 {
		return fmt.Errorf("LEDGER_CONFLICT_RETRIES must not be negative, got %d", c.Ledger.ConflictRetries)
	}
	if c.Ledger.LockTimeout <= 0 {
		return fmt.Errorf("LEDGER_LOCK_TIMEOUT must be positive")
	}
	if _, err := time.LoadLocation(c.Ledger.Timezone); err != nil {
		return fmt.Errorf("invalid LEDGER_TIMEZONE %q: %w", c.Ledger.Timezone, err)
	}
	return nil
}

// applyProductOverrides reads LEDGER_<TYPE>_DAILY_LIMIT, _MONTHLY_LIMIT,
// _MINIMUM_BALANCE and _INTEREST_RATE, e.g. LEDGER_SAVINGS_DAILY_LIMIT.
func applyProductOverrides(products map[models.AccountType]ProductDefaults) error {
	for accountType, product := range products {
		prefix := "LEDGER_" + strings.ToUpper(string(accountType)) + "_"
		fields := []struct {
			key    string
			target *decimal.Decimal
		}{
			{prefix + "DAILY_LIMIT", &product.DailyLimit},
			{prefix + "MONTHLY_LIMIT", &product.MonthlyLimit},
			{prefix + "MINIMUM_BALANCE", &product.MinimumBalance},
			{prefix + "INTEREST_RATE", &product.InterestRate},
		}
		for _, f := range fields {
			v := os.Getenv(f.key)
			if v == "" {
				continue
			}
			d, err := decimal.NewFromString(v)
			if err != nil {
				return fmt.Errorf("invalid %s value %q: %w", f.key, v, err)
			}
			if d.IsNegative() {
				return fmt.Errorf("%s must not be negative", f.key)
			}
			*f.target = d
		}
		products[accountType] = product
	}
	return nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseDuration(key string, target *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = d
	return nil
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
