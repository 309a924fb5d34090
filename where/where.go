// Package where resolves the directories and files reelcore keeps on disk.
package where

import (
	"os"
	"path/filepath"

	"github.com/reelcore/reelcore/constant"
	"github.com/reelcore/reelcore/filesystem"
	"github.com/samber/lo"
)

// EnvConfigPath overrides the config directory.
const EnvConfigPath = "REELCORE_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config is the directory holding reelcore.toml, logs and scenarios.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.Reelcore))
}

// Cache is the directory for data that can be rebuilt at any time.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.Reelcore))
}

// Logs is where dated log files are written.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// Scenarios is the default directory of Lua scenario scripts.
func Scenarios() string {
	return ensureDir(filepath.Join(Config(), "scenarios"))
}

// Session is the file remembering the last terminal feed position.
func Session() string {
	return filepath.Join(Cache(), "session.json")
}
