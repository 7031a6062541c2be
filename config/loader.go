package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

var validate = validator.New()

// Load reads configuration from a YAML file on top of the defaults.
// A .env file in the working directory is loaded first so ${VARS} resolve.
func Load(path string) (*NetSvcConfig, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultNetSvcConfig()
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Session.Backend == "" {
		cfg.Session.Backend = SessionMemory
	}
	if cfg.Session.KeyPrefix == "" {
		cfg.Session.KeyPrefix = DefaultKeyPrefix
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *NetSvcConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid net config: %w", err)
	}
	return nil
}
