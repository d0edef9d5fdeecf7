package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

var ErrUnknownStorage = errors.New("unknown storage backend")

type Config struct {
	LogLevel   string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`
	Storage    string `yaml:"storage" env:"STORAGE" env-default:"redis"`
	Redis      Redis  `yaml:"redis"`
	Socket     Socket `yaml:"socket"`
}

type Redis struct {
	Host string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	TTL  time.Duration `yaml:"ttl" env:"REDIS_TTL" env-default:"24h"`
}

type Socket struct {
	SendBuffer     int      `yaml:"send-buffer" env:"SOCKET_SEND_BUFFER" env-default:"64"`
	MaxMessageSize int64    `yaml:"max-message-size" env:"SOCKET_MAX_MESSAGE_SIZE" env-default:"4096"`
	AllowedOrigins []string `yaml:"allowed-origins" env:"SOCKET_ALLOWED_ORIGINS" env-separator:","`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("unable to load config: %w", err))
	}

	return config
}

// Load reads path when it exists and the environment otherwise.
// Environment variables override file values either way.
func Load(path string) (*Config, error) {
	config := &Config{}

	if _, err := os.Stat(path); err == nil {
		if err = cleanenv.ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err = cleanenv.ReadEnv(config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	switch that.Storage {
	case StorageRedis, StorageMemory:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorage, that.Storage)
	}
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
