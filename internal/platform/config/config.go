// Package config assembles process configuration from defaults, an optional
// YAML file and KITTYCORE_* environment variables, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"kittycore/internal/blob"
	"kittycore/internal/core"
	"kittycore/internal/platform/units"
	"kittycore/pkg/domain"
)

// FileEnv names the variable holding the optional YAML overlay path.
const FileEnv = "KITTYCORE_CONFIG_FILE"

// Config is the full process configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Export  ExportConfig  `yaml:"export"`
	Engine  EngineConfig  `yaml:"engine"`
	Roles   RolesConfig   `yaml:"roles"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr" env:"KITTYCORE_HTTP_ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"KITTYCORE_HTTP_SHUTDOWN_TIMEOUT"`
	MetricsPath     string        `yaml:"metrics_path" env:"KITTYCORE_METRICS_PATH"`
}

type LogConfig struct {
	Level       string `yaml:"level" env:"KITTYCORE_LOG_LEVEL"`
	Development bool   `yaml:"development" env:"KITTYCORE_LOG_DEVELOPMENT"`
}

type StorageConfig struct {
	Driver         string `yaml:"driver" env:"KITTYCORE_STORAGE_DRIVER"`
	SQLitePath     string `yaml:"sqlite_path" env:"KITTYCORE_SQLITE_PATH"`
	PostgresDSN    string `yaml:"postgres_dsn" env:"KITTYCORE_POSTGRES_DSN"`
	EventRetention int    `yaml:"event_retention" env:"KITTYCORE_EVENT_RETENTION"`
}

// ExportConfig selects where ledger snapshots are archived.
type ExportConfig struct {
	Driver   string        `yaml:"driver" env:"KITTYCORE_EXPORT_DRIVER"`
	Prefix   string        `yaml:"prefix" env:"KITTYCORE_EXPORT_PREFIX"`
	FSRoot   string        `yaml:"fs_root" env:"KITTYCORE_EXPORT_FS_ROOT"`
	Interval time.Duration `yaml:"interval" env:"KITTYCORE_EXPORT_INTERVAL"`
	S3       S3Config      `yaml:"s3"`
}

type S3Config struct {
	Region          string `yaml:"region" env:"KITTYCORE_S3_REGION"`
	Bucket          string `yaml:"bucket" env:"KITTYCORE_S3_BUCKET"`
	Endpoint        string `yaml:"endpoint" env:"KITTYCORE_S3_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" env:"KITTYCORE_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"KITTYCORE_S3_SECRET_ACCESS_KEY"`
	SessionToken    string `yaml:"session_token" env:"KITTYCORE_S3_SESSION_TOKEN"`
	PathStyle       bool   `yaml:"path_style" env:"KITTYCORE_S3_PATH_STYLE"`
}

// EngineConfig mirrors core.Config with human-friendly amounts.
type EngineConfig struct {
	Cooldowns           []time.Duration `yaml:"cooldowns" env:"KITTYCORE_COOLDOWNS"`
	SaleCutBps          uint64          `yaml:"sale_cut_bps" env:"KITTYCORE_SALE_CUT_BPS"`
	SiringCutBps        uint64          `yaml:"siring_cut_bps" env:"KITTYCORE_SIRING_CUT_BPS"`
	AutoBirthFee        Amount          `yaml:"auto_birth_fee" env:"KITTYCORE_AUTO_BIRTH_FEE"`
	Gen0StartingPrice   Amount          `yaml:"gen0_starting_price" env:"KITTYCORE_GEN0_STARTING_PRICE"`
	Gen0AuctionDuration time.Duration   `yaml:"gen0_auction_duration" env:"KITTYCORE_GEN0_AUCTION_DURATION"`
	Gen0CreationLimit   uint64          `yaml:"gen0_creation_limit" env:"KITTYCORE_GEN0_CREATION_LIMIT"`
	PromoCreationLimit  uint64          `yaml:"promo_creation_limit" env:"KITTYCORE_PROMO_CREATION_LIMIT"`
}

// RolesConfig seeds the operator roles on a fresh ledger.
type RolesConfig struct {
	CEO string `yaml:"ceo" env:"KITTYCORE_CEO"`
	CFO string `yaml:"cfo" env:"KITTYCORE_CFO"`
	COO string `yaml:"coo" env:"KITTYCORE_COO"`
}

// Amount accepts denominated values such as "2finney" from text sources.
type Amount domain.Amount

func (a *Amount) UnmarshalText(text []byte) error {
	v, err := units.ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = Amount(v)
	return nil
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(units.Ether(domain.Amount(a)) + "ether"), nil
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	engine := core.DefaultConfig()
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			MetricsPath:     "/metrics",
		},
		Log: LogConfig{Level: "info"},
		Storage: StorageConfig{
			Driver:     string(core.StorageSQLite),
			SQLitePath: "kittycore.db",
		},
		Export: ExportConfig{
			Driver: "fs",
			Prefix: "exports",
			FSRoot: "kittycore-exports",
		},
		Engine: EngineConfig{
			Cooldowns:           append([]time.Duration(nil), engine.Cooldowns...),
			SaleCutBps:          engine.SaleCutBps,
			SiringCutBps:        engine.SiringCutBps,
			AutoBirthFee:        Amount(core.DefaultAutoBirthFee),
			Gen0StartingPrice:   Amount(engine.Gen0StartingPrice),
			Gen0AuctionDuration: engine.Gen0AuctionDuration,
			Gen0CreationLimit:   engine.Gen0CreationLimit,
			PromoCreationLimit:  engine.PromoCreationLimit,
		},
	}
}

// Load builds the configuration from defaults, the file named by
// KITTYCORE_CONFIG_FILE when set, and the environment.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML document at path onto cfg. Keys absent from the
// document keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations the process cannot start with.
func (c Config) Validate() error {
	var errs []error
	if err := c.Core().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	switch core.StorageDriver(c.Storage.Driver) {
	case core.StorageMemory:
	case core.StorageSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage: sqlite_path is required"))
		}
	case core.StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage: postgres_dsn is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage: unknown driver %q", c.Storage.Driver))
	}
	if c.Storage.EventRetention < 0 {
		errs = append(errs, errors.New("storage: event_retention must not be negative"))
	}
	switch c.Export.Driver {
	case "fs", "memory":
	case "s3":
		if c.Export.S3.Bucket == "" {
			errs = append(errs, errors.New("export: s3 bucket is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("export: unknown driver %q", c.Export.Driver))
	}
	if c.Export.Interval < 0 {
		errs = append(errs, errors.New("export: interval must not be negative"))
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http: addr is required"))
	}
	return errors.Join(errs...)
}

// Core returns the engine parameters.
func (c Config) Core() core.Config {
	return core.Config{
		Cooldowns:           core.CooldownTable(append([]time.Duration(nil), c.Engine.Cooldowns...)),
		SaleCutBps:          c.Engine.SaleCutBps,
		SiringCutBps:        c.Engine.SiringCutBps,
		Gen0StartingPrice:   domain.Amount(c.Engine.Gen0StartingPrice),
		Gen0AuctionDuration: c.Engine.Gen0AuctionDuration,
		Gen0CreationLimit:   c.Engine.Gen0CreationLimit,
		PromoCreationLimit:  c.Engine.PromoCreationLimit,
	}
}

// StorageSettings returns the ledger backend selection.
func (c Config) StorageSettings() core.StorageConfig {
	return core.StorageConfig{
		Driver:         core.StorageDriver(c.Storage.Driver),
		SQLitePath:     c.Storage.SQLitePath,
		PostgresDSN:    c.Storage.PostgresDSN,
		EventRetention: c.Storage.EventRetention,
	}
}

// BlobSettings returns the archive store selection.
func (c Config) BlobSettings() blob.Config {
	s3 := c.Export.S3
	return blob.Config{
		Driver: blob.Driver(c.Export.Driver),
		FSRoot: c.Export.FSRoot,
		S3: blob.S3Config{
			Region:          s3.Region,
			Bucket:          s3.Bucket,
			Endpoint:        s3.Endpoint,
			AccessKeyID:     s3.AccessKeyID,
			SecretAccessKey: s3.SecretAccessKey,
			SessionToken:    s3.SessionToken,
			PathStyle:       s3.PathStyle,
		},
	}
}

// BootstrapRoles returns the configured operator roles.
func (c Config) BootstrapRoles() domain.Roles {
	return domain.Roles{
		CEO: domain.Address(c.Roles.CEO),
		CFO: domain.Address(c.Roles.CFO),
		COO: domain.Address(c.Roles.COO),
	}
}

// AutoBirthFee returns the fee applied when the ledger is bootstrapped.
func (c Config) AutoBirthFee() domain.Amount { return domain.Amount(c.Engine.AutoBirthFee) }
