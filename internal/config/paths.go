package config

import (
	"os"
	"path/filepath"
)

const appName = "streamgrab"

// GetAppDir returns the configuration directory, honoring XDG_CONFIG_HOME.
func GetAppDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+appName)
}

// GetStateDir holds the history database.
func GetStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(GetAppDir(), "state")
}

// GetLogsDir holds debug logs.
func GetLogsDir() string {
	return filepath.Join(GetStateDir(), "logs")
}

// GetRuntimeDir holds the daemon's pid, port and lock files.
func GetRuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(GetAppDir(), "run")
}

// EnsureDirs creates every application directory.
func EnsureDirs() error {
	for _, dir := range []string{GetAppDir(), GetStateDir(), GetLogsDir(), GetRuntimeDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
