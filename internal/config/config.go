package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode     string `mapstructure:"mode"`
	Port     int    `mapstructure:"port"`
	Secret   string `mapstructure:"secret"`
	LogLevel string `mapstructure:"log_level"`

	Host    HostConfig    `mapstructure:"host"`
	Session SessionConfig `mapstructure:"session"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Observe ObserveConfig `mapstructure:"observe"`
	Limits  LimitsConfig  `mapstructure:"limits"`
	Reactor ReactorConfig `mapstructure:"reactor"`
}

// HostConfig points at the game host's overlay socket.
type HostConfig struct {
	URL           string        `mapstructure:"url"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	SendBuffer    int           `mapstructure:"send_buffer"`
}

type SessionConfig struct {
	DefaultPort int `mapstructure:"default_port"`
}

type ChatConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type ObserveConfig struct {
	Buffer     int           `mapstructure:"buffer"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
}

type LimitsConfig struct {
	MessageBurst  int           `mapstructure:"message_burst"`
	MessageWindow time.Duration `mapstructure:"message_window"`
}

type ReactorConfig struct {
	Mailbox int `mapstructure:"mailbox"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("secret", "change-me")
	v.SetDefault("log_level", "info")
	v.SetDefault("host.url", "ws://127.0.0.1:10579/overlay")
	v.SetDefault("host.retry_interval", "2s")
	v.SetDefault("host.write_timeout", "5s")
	v.SetDefault("host.send_buffer", 64)
	v.SetDefault("session.default_port", 10578)
	v.SetDefault("chat.capacity", 100)
	v.SetDefault("observe.buffer", 64)
	v.SetDefault("observe.ping_period", "54s")
	v.SetDefault("limits.message_burst", 5)
	v.SetDefault("limits.message_window", "10s")
	v.SetDefault("reactor.mailbox", 256)
}

// Load reads config/config.<CONFIG_ENV>.yaml, then OVERLAY_* environment overrides.
// A missing file is not an error.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	setDefaults(v)

	v.SetEnvPrefix("OVERLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("host", cfg.Host.URL).Msg("config ready")
	return &cfg, nil
}
