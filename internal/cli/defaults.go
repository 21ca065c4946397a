package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/filepulse/filepulse/internal/store"
	pplogger "github.com/filepulse/filepulse/pkg/logger"
	"github.com/spf13/viper"
)

// Configuration keys
const (
	keyWatchExtensions = "watch.extensions"
	keyWatchIgnore     = "watch.ignore"
	keyWatchIgnoreFile = "watch.ignore_file"
	keyWatchAutosave   = "watch.autosave"
	keyStoreDriver     = "store.driver"
	keyStorePath       = "store.path"
	keyLogLevel        = "logging.level"
	keyLogFile         = "logging.file"
	keyLogMaxSize      = "logging.max_size"
	keyLogMaxBackups   = "logging.max_backups"
	keyLogMaxAge       = "logging.max_age"
	keyLogDevelopment  = "logging.development"
	keyLogJSON         = "logging.json"
)

// homeDir returns ~/.filepulse
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".filepulse")
}

// defaultConfigPath returns ~/.filepulse/config.yaml
func defaultConfigPath() string {
	return filepath.Join(homeDir(), "config.yaml")
}

// defaultSettings is the configuration written by init and registered as
// viper defaults
func defaultSettings() map[string]interface{} {
	logCfg := pplogger.DefaultConfig()
	return map[string]interface{}{
		"version": "1.0",
		"watch": map[string]interface{}{
			"extensions":  []string{},
			"ignore":      []string{},
			"ignore_file": "",
			"autosave":    "0s",
		},
		"store": map[string]interface{}{
			"driver": string(store.SQLite),
			"path":   "",
		},
		"logging": map[string]interface{}{
			"level":       logCfg.Level,
			"file":        logCfg.OutputPath,
			"max_size":    logCfg.MaxSize,
			"max_backups": logCfg.MaxBackups,
			"max_age":     logCfg.MaxAge,
			"development": false,
			"json":        false,
		},
	}
}

// setDefaults registers every default with v
func setDefaults(v *viper.Viper) {
	logCfg := pplogger.DefaultConfig()

	v.SetDefault(keyWatchExtensions, []string{})
	v.SetDefault(keyWatchIgnore, []string{})
	v.SetDefault(keyWatchIgnoreFile, "")
	v.SetDefault(keyWatchAutosave, time.Duration(0))
	v.SetDefault(keyStoreDriver, string(store.SQLite))
	v.SetDefault(keyStorePath, "")
	v.SetDefault(keyLogLevel, logCfg.Level)
	v.SetDefault(keyLogFile, logCfg.OutputPath)
	v.SetDefault(keyLogMaxSize, logCfg.MaxSize)
	v.SetDefault(keyLogMaxBackups, logCfg.MaxBackups)
	v.SetDefault(keyLogMaxAge, logCfg.MaxAge)
	v.SetDefault(keyLogDevelopment, false)
	v.SetDefault(keyLogJSON, false)
}

// logConfigFrom builds the logger configuration from v
func logConfigFrom(v *viper.Viper) *pplogger.LogConfig {
	cfg := pplogger.DefaultConfig()
	cfg.Level = v.GetString(keyLogLevel)
	cfg.OutputPath = v.GetString(keyLogFile)
	cfg.MaxSize = v.GetInt(keyLogMaxSize)
	cfg.MaxBackups = v.GetInt(keyLogMaxBackups)
	cfg.MaxAge = v.GetInt(keyLogMaxAge)
	cfg.Development = v.GetBool(keyLogDevelopment)
	cfg.EnableJSON = v.GetBool(keyLogJSON)
	if cfg.OutputPath == "" {
		cfg.OutputPath = pplogger.DefaultLogPath()
	}
	return cfg
}
