package accountgate

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every variable read by LoadConfigFromEnv, e.g.
// ACCOUNTGATE_LOCKOUT_WINDOW=30m or ACCOUNTGATE_JWT_PRIVATE_KEY.
const EnvPrefix = "ACCOUNTGATE_"

// LoadConfigFromEnv starts from DefaultConfig and overrides every field whose
// variable is set.
func LoadConfigFromEnv() (Config, error) {
	return loadConfig(env.Options{Prefix: EnvPrefix})
}

func loadConfig(opts env.Options) (Config, error) {
	cfg := defaultConfig()
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
