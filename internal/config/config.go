package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration knobs for the bridge.
type Config struct {
	HTTP struct {
		Addr         string        `mapstructure:"addr"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"http"`
	Cloud struct {
		BaseURL        string        `mapstructure:"base_url"`
		RequestTimeout time.Duration `mapstructure:"request_timeout"`
	} `mapstructure:"cloud"`
	Device struct {
		RequestTimeout time.Duration `mapstructure:"request_timeout"`
	} `mapstructure:"device"`
	Storage struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"storage"`
	Auth struct {
		Enabled   bool          `mapstructure:"enabled"`
		Username  string        `mapstructure:"username"`
		Password  string        `mapstructure:"password"`
		JWTSecret string        `mapstructure:"jwt_secret"`
		TokenTTL  time.Duration `mapstructure:"token_ttl"`
	} `mapstructure:"auth"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// Load reads the configuration from disk/environment using Viper.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("tablo_bridge")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing file is fine, env-only configuration is supported.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8886")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "30s")

	v.SetDefault("cloud.base_url", "https://lighthousetv.ewscloud.com")
	v.SetDefault("cloud.request_timeout", "10s")

	v.SetDefault("device.request_timeout", "10s")

	v.SetDefault("storage.path", "./data/bridge.db")

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.password", "admin123")
	v.SetDefault("auth.jwt_secret", "change-me-secret")
	v.SetDefault("auth.token_ttl", "12h")

	v.SetDefault("log.level", "info")
}
