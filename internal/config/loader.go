package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Environment variables consulted by Load.
const (
	// EnvConfigPath names the config file when no path is given.
	EnvConfigPath = "CORPDIR_CONFIG"
	// EnvBindPassword supplies the bind password when the file omits it,
	// so credentials can stay out of config files.
	EnvBindPassword = "CORPDIR_BIND_PASSWORD"
)

// Load reads the JSON configuration at path, layered over the named
// preset when one is given. An empty path falls back to $CORPDIR_CONFIG;
// a preset alone is a valid configuration source. The result has all
// defaults applied and passes Validate.
func Load(path, preset string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" && preset == "" {
		return nil, errors.Errorf("no configuration: pass a config file or set %s", EnvConfigPath)
	}

	merged := viper.New()
	if preset != "" {
		settings, ok := presetSettings(preset)
		if !ok {
			return nil, errors.Errorf("unknown preset %q (want %s, %s or %s)", preset, PresetRedHat, PresetOpenLDAP, PresetAD)
		}
		if err := merged.MergeConfigMap(settings); err != nil {
			return nil, errors.Wrapf(err, "applying preset %q", preset)
		}
	}
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
		if err := merged.MergeConfigMap(v.AllSettings()); err != nil {
			return nil, errors.Wrapf(err, "merging config file %s", path)
		}
	}

	cfg := New()
	if err := merged.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decoding configuration")
	}
	if cfg.Connection.Password == "" {
		cfg.Connection.Password = os.Getenv(EnvBindPassword)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteSample writes a starter configuration to path. With a preset the
// sample carries that deployment's settings; otherwise it is a generic
// skeleton to fill in.
func WriteSample(path, preset string) error {
	cfg := New()
	if preset != "" {
		settings, ok := presetSettings(preset)
		if !ok {
			return errors.Errorf("unknown preset %q (want %s, %s or %s)", preset, PresetRedHat, PresetOpenLDAP, PresetAD)
		}
		v := viper.New()
		if err := v.MergeConfigMap(settings); err != nil {
			return errors.Wrapf(err, "applying preset %q", preset)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return errors.Wrap(err, "decoding preset")
		}
	} else {
		cfg.Connection.Server = "ldaps://ldap.example.com:636"
		cfg.Connection.BaseDN = "dc=example,dc=com"
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding sample configuration")
	}
	data = append(data, '\n')

	// 0600: the file may later carry bind credentials.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(err, "writing sample configuration to %s", path)
	}
	return nil
}
