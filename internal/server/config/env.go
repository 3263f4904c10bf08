package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays LICENSEGATE_* variables. Unset variables leave the
// current value in place.
func parseEnv(cfg *Config) error {
	return env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix})
}
