package config

import (
	"fmt"
	"sync"
)

var (
	// globalConfig holds the process-wide configuration.
	globalConfig *Config

	// configMutex protects access to globalConfig.
	configMutex sync.RWMutex
)

// Initialize loads configuration from path with environment variable
// overrides and stores it as the process-wide configuration. Every command
// that reads the configuration file calls it once at startup. A failed call
// leaves any stored configuration in place.
func Initialize(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return err
	}

	SetConfig(cfg)
	return nil
}

// GetConfig returns the process-wide configuration, or nil if Initialize
// has not succeeded yet.
//
// Components receive their configuration sections by injection; only the
// command layer reads the singleton.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig replaces the process-wide configuration.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// ReloadConfig reloads the configuration from path. The existing
// configuration is kept when loading or validation fails.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	SetConfig(cfg)
	return nil
}
