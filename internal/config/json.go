package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// parseJSON loads a config layer from the JSON file at path. Missing fields
// stay zero and fall through to lower-priority layers.
func parseJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading json config file: %w", err)
	}

	cfg := &Config{}
	if err = json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error decoding json config file: %w", err)
	}

	return cfg, nil
}
