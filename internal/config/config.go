package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Retention RetentionConfig `mapstructure:"retention"`
	Line      LineConfig      `mapstructure:"line"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CallbackPath string        `mapstructure:"callback_path"`
	AdminToken   string        `mapstructure:"admin_token"`
}

type StorageConfig struct {
	Driver string       `mapstructure:"driver"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RetentionConfig struct {
	InvocationTTL time.Duration `mapstructure:"invocation_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// LineConfig holds the Messaging API channel credentials.
type LineConfig struct {
	ChannelAccessToken string `mapstructure:"channel_access_token"`
	ChannelSecret      string `mapstructure:"channel_secret"`
	// Endpoint overrides the Messaging API base URL. Empty means the SDK default.
	Endpoint string `mapstructure:"endpoint"`
}

type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// Environment variable names for the required credentials. They are read
// without the LINEGEMINI_ prefix so existing deployments keep working.
const (
	EnvChannelAccessToken = "CHANNEL_ACCESS_TOKEN"
	EnvChannelSecret      = "CHANNEL_SECRET"
	EnvGeminiAPIKey       = "GEMINI_API_KEY"
)

// MissingError reports a required credential that was not provided.
type MissingError struct {
	Env string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("Specify %s as environment variable.", e.Env)
}

func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("linegemini")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/linegemini")
	}

	setDefaults(v)

	v.SetEnvPrefix("LINEGEMINI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("line.channel_access_token", EnvChannelAccessToken); err != nil {
		return nil, err
	}
	if err := v.BindEnv("line.channel_secret", EnvChannelSecret); err != nil {
		return nil, err
	}
	if err := v.BindEnv("gemini.api_key", EnvGeminiAPIKey); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ValidateCredentials returns a *MissingError for the first required
// credential that is empty, checked in the order token, secret, API key.
func (c *Config) ValidateCredentials() error {
	switch {
	case c.Line.ChannelAccessToken == "":
		return &MissingError{Env: EnvChannelAccessToken}
	case c.Line.ChannelSecret == "":
		return &MissingError{Env: EnvChannelSecret}
	case c.Gemini.APIKey == "":
		return &MissingError{Env: EnvGeminiAPIKey}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.callback_path", "/callback")
	v.SetDefault("server.admin_token", "")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite.path", "./data/linegemini.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("retention.invocation_ttl", 30*24*time.Hour)
	v.SetDefault("retention.sweep_interval", time.Hour)

	v.SetDefault("line.endpoint", "")
	v.SetDefault("gemini.base_url", "")
}
