package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode string `mapstructure:"mode"`
	Port int    `mapstructure:"port"`

	RemoteBaseURL string        `mapstructure:"remote_base_url"`
	RemoteTimeout time.Duration `mapstructure:"remote_timeout"`

	JWTSecret     string `mapstructure:"jwt_secret"`
	Secret        string `mapstructure:"secret"`
	YouTubeAPIKey string `mapstructure:"youtube_api_key"`

	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("remote_base_url", "https://api.vu.example.com")
	v.SetDefault("remote_timeout", "15s")
	v.SetDefault("read_limit", 4096)
	v.SetDefault("ping_period", "54s")

	v.SetEnvPrefix("SALA")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Remote: %s\n", cfg.Mode, cfg.Port, cfg.RemoteBaseURL)
	return &cfg, nil
}
