package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Queue drivers
const (
	QueueDriverRedis  = "redis"
	QueueDriverMemory = "memory"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	App    AppConfig    `mapstructure:"app"`
	Hash   HashConfig   `mapstructure:"hash"`
	Mongo  MongoConfig  `mapstructure:"mongo"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Queue  QueueConfig  `mapstructure:"queue"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type AppConfig struct {
	Name            string `mapstructure:"name"`
	Secret          string `mapstructure:"secret"`
	ConfirmationURL string `mapstructure:"confirmation_url"`
}

type HashConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	FieldName  string        `mapstructure:"field_name"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type QueueConfig struct {
	Driver            string        `mapstructure:"driver"`
	Name              string        `mapstructure:"name"`
	BatchSize         int           `mapstructure:"batch_size"`
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	MaxDeliveries     int           `mapstructure:"max_deliveries"`
	Concurrency       int           `mapstructure:"concurrency"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("app.name", "FroshImagePlaceholder")
	v.SetDefault("app.secret", "")
	v.SetDefault("app.confirmation_url", "http://localhost:8080/registration/authorize/callback")

	v.SetDefault("hash.endpoint", "")
	v.SetDefault("hash.max_retries", 3)
	v.SetDefault("hash.retry_delay", 5*time.Second)
	v.SetDefault("hash.field_name", "frosh_image_placeholder_thumbhash")
	v.SetDefault("hash.timeout", 30*time.Second)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "thumbhash")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("queue.driver", QueueDriverRedis)
	v.SetDefault("queue.name", "image-queue")
	v.SetDefault("queue.batch_size", 10)
	v.SetDefault("queue.visibility_timeout", 2*time.Minute)
	v.SetDefault("queue.poll_interval", time.Second)
	v.SetDefault("queue.max_deliveries", 5)
	v.SetDefault("queue.concurrency", 4)

	v.SetDefault("log.level", "info")
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory when one exists. Env keys are the config keys
// upper-cased with dots replaced by underscores, e.g. HASH_ENDPOINT.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks required settings and value ranges
func (c *Config) Validate() error {
	var errs []error

	if c.App.Secret == "" {
		errs = append(errs, errors.New("APP_SECRET is required"))
	}
	if c.Hash.Endpoint == "" {
		errs = append(errs, errors.New("HASH_ENDPOINT is required"))
	}
	if c.Hash.MaxRetries < 0 {
		errs = append(errs, errors.New("HASH_MAX_RETRIES must not be negative"))
	}
	if c.Queue.Driver != QueueDriverRedis && c.Queue.Driver != QueueDriverMemory {
		errs = append(errs, fmt.Errorf("QUEUE_DRIVER must be %q or %q, got %q", QueueDriverRedis, QueueDriverMemory, c.Queue.Driver))
	}
	if c.Queue.BatchSize <= 0 {
		errs = append(errs, errors.New("QUEUE_BATCH_SIZE must be positive"))
	}
	if c.Queue.Concurrency <= 0 {
		errs = append(errs, errors.New("QUEUE_CONCURRENCY must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
