package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parse unmarshals raw yaml bytes into a Config, then layers environment
// overrides and defaults on top. Split from Load so tests can feed
// literal documents.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	overrideFromEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}
