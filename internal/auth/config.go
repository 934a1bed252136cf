package auth

import (
	"fmt"
	"github.com/spf13/viper"
)

type Config struct {
	Secret string `mapstructure:"Secret"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.BindEnv("Secret", "AUTH_SECRET")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables for auth: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if cfg.Secret == "" {
		cfg.Secret = v.GetString("AUTH_SECRET")
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("auth secret is required")
	}

	return &cfg, nil
}
