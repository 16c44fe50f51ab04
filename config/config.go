/*
config.go - Server configuration

PURPOSE:
  Loads settings from an optional config.yaml, environment variables and
  defaults, in that order of precedence (env wins over file).

SOURCES:
  File:  ./config/config.yaml or ./config.yaml, or the path given to Load
  Env:   RIDING_ prefix, dots become underscores
         (RIDING_DATABASE_PATH, RIDING_SCHEDULE_DROP_EMPTY_SLOTS, ...)

  Command-line flags in cmd/server override the loaded values.
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const envPrefix = "RIDING"

// Storage kinds for printed documents.
const (
	StorageFile  = "file"
	StorageMinio = "minio"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Reports  ReportsConfig  `mapstructure:"reports"`
	School   SchoolConfig   `mapstructure:"school"`
	Cards    CardsConfig    `mapstructure:"cards"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Pretty  bool   `mapstructure:"pretty"`
	NoColor bool   `mapstructure:"no_color"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type ScheduleConfig struct {
	// DropEmptySlots deletes a slot when its last participant is removed.
	DropEmptySlots bool `mapstructure:"drop_empty_slots"`
}

type ReportsConfig struct {
	// ExcludeSingleLessons keeps single lessons out of milestone counting.
	ExcludeSingleLessons bool `mapstructure:"exclude_single_lessons"`
}

type SchoolConfig struct {
	Name               string `mapstructure:"name"`
	CardPriceMember    string `mapstructure:"card_price_member"`
	CardPriceNonMember string `mapstructure:"card_price_non_member"`
	Currency           string `mapstructure:"currency"`
}

type CardsConfig struct {
	Storage string `mapstructure:"storage"`
	Dir     string `mapstructure:"dir"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type NotifyConfig struct {
	AMQPURL    string `mapstructure:"amqp_url"` // empty disables publishing
	Exchange   string `mapstructure:"exchange"`
	RoutingKey string `mapstructure:"routing_key"`
}

// Load reads configuration. An empty path searches the default locations;
// a missing default file is not an error, a missing explicit one is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.path", "riding_school.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", true)
	v.SetDefault("logging.no_color", false)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})

	v.SetDefault("schedule.drop_empty_slots", true)
	v.SetDefault("reports.exclude_single_lessons", false)

	v.SetDefault("school.name", "Riding School")
	v.SetDefault("school.card_price_member", "100.00")
	v.SetDefault("school.card_price_non_member", "120.00")
	v.SetDefault("school.currency", "EUR")

	v.SetDefault("cards.storage", StorageFile)
	v.SetDefault("cards.dir", "./cards")

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "cards")
	v.SetDefault("minio.use_ssl", false)

	v.SetDefault("notify.amqp_url", "")
	v.SetDefault("notify.exchange", "riding-school")
	v.SetDefault("notify.routing_key", "milestone.crossed")
}

// Validate checks values that can't be expressed as defaults.
func (c *Config) Validate() error {
	if _, err := c.School.MemberPrice(); err != nil {
		return err
	}
	if _, err := c.School.NonMemberPrice(); err != nil {
		return err
	}
	switch c.Cards.Storage {
	case StorageFile:
		if c.Cards.Dir == "" {
			return errors.New("cards.dir is required for file storage")
		}
	case StorageMinio:
		if c.MinIO.Endpoint == "" {
			return errors.New("minio.endpoint is required for minio storage")
		}
	default:
		return fmt.Errorf("unknown cards.storage %q (use %s or %s)", c.Cards.Storage, StorageFile, StorageMinio)
	}
	return nil
}

func (s SchoolConfig) MemberPrice() (decimal.Decimal, error) {
	return parsePrice("school.card_price_member", s.CardPriceMember)
}

func (s SchoolConfig) NonMemberPrice() (decimal.Decimal, error) {
	return parsePrice("school.card_price_non_member", s.CardPriceNonMember)
}

func parsePrice(key, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid price %q: %w", key, value, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s: price must not be negative", key)
	}
	return d, nil
}
