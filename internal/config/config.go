// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Push       PushConfig       `mapstructure:"push"`
	Auth       AuthConfig       `mapstructure:"auth"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int32         `mapstructure:"max_connections"`
	MinConnections int32         `mapstructure:"min_connections"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MigrateOnStart bool          `mapstructure:"migrate_on_start"`
	ConnectRetries uint64        `mapstructure:"connect_retries"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

type RepositoryConfig struct {
	Type string `mapstructure:"type"` // "postgres" или "inmemory"
}

// NotifyConfig - параметры планировщика напоминаний
type NotifyConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	BatchLimit   int           `mapstructure:"batch_limit"`
	Workers      int           `mapstructure:"workers"`
	FeedCapacity int           `mapstructure:"feed_capacity"`
}

type PushConfig struct {
	VapidPublicKey   string        `mapstructure:"vapid_public_key" yaml:"vapid_public_key"`
	VapidPrivateKey  string        `mapstructure:"vapid_private_key" yaml:"vapid_private_key"`
	Subject          string        `mapstructure:"subject" yaml:"subject"`
	Workers          int           `mapstructure:"workers" yaml:"workers,omitempty"`
	SendTimeout      time.Duration `mapstructure:"send_timeout" yaml:"send_timeout,omitempty"`
	TTL              time.Duration `mapstructure:"ttl" yaml:"ttl,omitempty"`
	BreakerThreshold uint32        `mapstructure:"breaker_threshold" yaml:"breaker_threshold,omitempty"`
	BreakerTimeout   time.Duration `mapstructure:"breaker_timeout" yaml:"breaker_timeout,omitempty"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	RPM int `mapstructure:"rpm"`
}

const RepositoryPostgres = "postgres"
const RepositoryInMemory = "inmemory"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.idle_timeout", 5*time.Minute)
	v.SetDefault("database.migrate_on_start", true)
	v.SetDefault("database.connect_retries", 5)

	v.SetDefault("logging.development", false)
	v.SetDefault("repository.type", RepositoryInMemory)

	v.SetDefault("notify.interval", 60*time.Second)
	v.SetDefault("notify.batch_limit", 500)
	v.SetDefault("notify.workers", 4)
	v.SetDefault("notify.feed_capacity", 200)

	v.SetDefault("push.vapid_public_key", "")
	v.SetDefault("push.vapid_private_key", "")
	v.SetDefault("push.subject", "mailto:admin@example.com")
	v.SetDefault("push.workers", 8)
	v.SetDefault("push.send_timeout", 10*time.Second)
	v.SetDefault("push.ttl", 28*24*time.Hour)
	v.SetDefault("push.breaker_threshold", 5)
	v.SetDefault("push.breaker_timeout", 30*time.Second)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("ratelimit.rpm", 100)
}

// Load читает config.yml из paths (если файл есть) и переменные окружения TODO_*.
// Переменные окружения имеют приоритет: TODO_DATABASE_URL -> database.url.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("TODO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("ошибка парсинга config.yml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Repository.Type {
	case RepositoryInMemory:
	case RepositoryPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url обязателен для postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("неизвестный repository.type: %q", c.Repository.Type))
	}

	if c.Notify.Interval <= 0 {
		errs = append(errs, errors.New("notify.interval должен быть больше нуля"))
	}
	if c.Notify.BatchLimit <= 0 {
		errs = append(errs, errors.New("notify.batch_limit должен быть больше нуля"))
	}
	if c.Notify.FeedCapacity <= 0 {
		errs = append(errs, errors.New("notify.feed_capacity должен быть больше нуля"))
	}
	if c.Push.SendTimeout <= 0 {
		errs = append(errs, errors.New("push.send_timeout должен быть больше нуля"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret обязателен"))
	}

	return errors.Join(errs...)
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// PushEnabled - без VAPID ключей push-канал отключён, in-app продолжает работать
func (c *Config) PushEnabled() bool {
	return c.Push.VapidPublicKey != "" && c.Push.VapidPrivateKey != ""
}
