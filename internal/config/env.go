package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every override, e.g. CHURCHBOT_TELEGRAM_TOKEN or
// CHURCHBOT_STORAGE_DRIVER.
const EnvPrefix = "CHURCHBOT"

// legacyEnv holds the variable older deployments set for the bot token.
type legacyEnv struct {
	Token string `envconfig:"TELEGRAM_API_TOKEN"`
}

// ApplyEnv overlays environment variables on cfg. Unset variables leave
// the file values alone. TELEGRAM_API_TOKEN fills the token only when the
// prefixed variable is absent.
func ApplyEnv(cfg *Config) error {
	var legacy legacyEnv
	if err := envconfig.Process("", &legacy); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	if t := strings.TrimSpace(legacy.Token); t != "" {
		cfg.Telegram.Token = t
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	return nil
}
