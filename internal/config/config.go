// Package config loads optional TOML defaults for the CLI. The file is read
// once before flag application; explicit flags always win.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/workerctl/internal/logger"
)

// FileConfig is the top-level TOML structure.
//
// Example:
//
//	state_dir = "/var/lib/myworker/state"
//	command = "bin/worker --serve"
//	settle = "2s"
//	stop_wait = "10s"
//	verify_start_time = true
//	use_os_env = true
//	env = ["PORT=8080"]
//
//	[log]
//	level = "debug"
//	color = true
//
//	[history]
//	dsn = "sqlite:///var/lib/myworker/history.db"
type FileConfig struct {
	StateDir        string         `toml:"state_dir" mapstructure:"state_dir"`
	Command         string         `toml:"command" mapstructure:"command"`
	Force           bool           `toml:"force" mapstructure:"force"`
	Settle          time.Duration  `toml:"settle" mapstructure:"settle"`
	StopWait        time.Duration  `toml:"stop_wait" mapstructure:"stop_wait"`
	VerifyStartTime bool           `toml:"verify_start_time" mapstructure:"verify_start_time"`
	UseOSEnv        bool           `toml:"use_os_env" mapstructure:"use_os_env"`
	Env             []string       `toml:"env" mapstructure:"env"`
	Log             *logger.Config `toml:"log" mapstructure:"log"`
	History         *HistoryConfig `toml:"history" mapstructure:"history"`
}

// HistoryConfig selects the lifecycle event sink by DSN. Empty means
// history export is disabled.
type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// Load parses the TOML file at path.
func Load(path string) (FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return FileConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return FileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}
