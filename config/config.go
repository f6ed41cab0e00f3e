package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"custodial-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Fees       FeeConfig        `mapstructure:"fees"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	Mode        string   `mapstructure:"mode"` // debug, release, test
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type LedgerConfig struct {
	Currency       string        `mapstructure:"currency"`
	SeedBalance    string        `mapstructure:"seed_balance"` // credited to every new wallet; 0 in production
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// Seed parses the configured seed balance.
func (l LedgerConfig) Seed() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(l.SeedBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger.seed_balance: %w", err)
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("ledger.seed_balance must not be negative")
	}
	return d, nil
}

type FeeConfig struct {
	MintBurnRate      string            `mapstructure:"mint_burn_rate"`
	DefaultNetworkFee string            `mapstructure:"default_network_fee"`
	NetworkFees       map[string]string `mapstructure:"network_fees"` // chain -> flat fee
}

// Schedule converts the configured strings into a fee schedule.
func (f FeeConfig) Schedule() (domain.FeeSchedule, error) {
	rate, err := decimal.NewFromString(f.MintBurnRate)
	if err != nil {
		return domain.FeeSchedule{}, fmt.Errorf("fees.mint_burn_rate: %w", err)
	}
	def, err := decimal.NewFromString(f.DefaultNetworkFee)
	if err != nil {
		return domain.FeeSchedule{}, fmt.Errorf("fees.default_network_fee: %w", err)
	}

	network := make(map[string]decimal.Decimal, len(f.NetworkFees))
	for chain, raw := range f.NetworkFees {
		fee, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.FeeSchedule{}, fmt.Errorf("fees.network_fees.%s: %w", chain, err)
		}
		network[strings.ToUpper(chain)] = fee
	}

	return domain.FeeSchedule{
		MintBurnRate:      rate,
		NetworkFees:       network,
		DefaultNetworkFee: def,
	}, nil
}

type SettlementConfig struct {
	Mode          string        `mapstructure:"mode"` // mock, real
	WebhookSecret string        `mapstructure:"webhook_secret"`
	ProviderURL   string        `mapstructure:"provider_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"` // empty disables bearer auth
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CLG_ (Custodial LedGer).
// Nested keys use underscore: CLG_DATABASE_HOST, CLG_SETTLEMENT_MODE, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "custodial_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("ledger.currency", domain.CurrencyUSDC)
	v.SetDefault("ledger.seed_balance", "1000")
	v.SetDefault("ledger.idempotency_ttl", "24h")
	v.SetDefault("fees.mint_burn_rate", "0.001")
	v.SetDefault("fees.default_network_fee", "2.00")
	v.SetDefault("fees.network_fees", map[string]string{
		"eth":   "5.00",
		"sol":   "1.00",
		"matic": "0.50",
	})
	v.SetDefault("settlement.mode", "mock")
	v.SetDefault("settlement.webhook_secret", "")
	v.SetDefault("settlement.provider_url", "")
	v.SetDefault("settlement.timeout", "10s")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "custodial-ledger")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// CLG_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CLG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects combinations that must never reach a running server.
func (c *Config) Validate() error {
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode %q: want debug, release or test", c.Server.Mode)
	}

	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("storage.driver %q: want postgres or memory", c.Storage.Driver)
	}

	switch c.Settlement.Mode {
	case "mock":
		if c.Server.Mode == "release" {
			return errors.New("settlement.mode=mock is not allowed when server.mode=release")
		}
	case "real":
		if c.Settlement.WebhookSecret == "" {
			return errors.New("settlement.webhook_secret is required in real mode")
		}
	default:
		return fmt.Errorf("settlement.mode %q: want mock or real", c.Settlement.Mode)
	}

	if _, err := c.Ledger.Seed(); err != nil {
		return err
	}
	if _, err := c.Fees.Schedule(); err != nil {
		return err
	}
	return nil
}
