package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/starfinanz/realm-core/pkg/linkcore"
)

// Config keys, matching the json/yaml tags of linkcore.Config.
const (
	cfgKeyBackend                 = "backend"
	cfgKeySQLitePath              = "sqlite_path"
	cfgKeyDataDir                 = "data_dir"
	cfgKeyNodeThreshold           = "node_threshold"
	cfgKeyTrackLinkNullifications = "track_link_nullifications"
)

// loadConfig reads an optional config file via Viper, falling back to
// linkcore.DefaultConfig for anything not set. A missing config file is
// not an error: the defaults stand on their own.
func loadConfig(configFile string) (linkcore.Config, error) {
	defaults := linkcore.DefaultConfig()

	v := viper.New()
	v.SetDefault(cfgKeyBackend, string(defaults.Backend))
	v.SetDefault(cfgKeySQLitePath, defaults.SQLitePath)
	v.SetDefault(cfgKeyDataDir, defaults.DataDir)
	v.SetDefault(cfgKeyNodeThreshold, defaults.NodeThreshold)
	v.SetDefault(cfgKeyTrackLinkNullifications, defaults.TrackLinkNullifications)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return linkcore.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := linkcore.Config{
		Backend:                 linkcore.Backend(v.GetString(cfgKeyBackend)),
		SQLitePath:              v.GetString(cfgKeySQLitePath),
		DataDir:                 v.GetString(cfgKeyDataDir),
		NodeThreshold:           v.GetInt(cfgKeyNodeThreshold),
		TrackLinkNullifications: v.GetBool(cfgKeyTrackLinkNullifications),
	}
	// Validation is deferred to the caller, which may still fill in
	// SQLitePath from a resolved data directory before checking it.
	return cfg, nil
}
