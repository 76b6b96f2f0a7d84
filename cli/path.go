package cli

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ardnew/stache/pkg"
)

// baseConfig is the base name of the configuration files.
const baseConfig = "config"

// defaultDirMode is the permission mode of created directories.
const defaultDirMode os.FileMode = 0o700

// appDir returns a function that resolves the stache subdirectory of the
// directory reported by userDir. When userDir fails, the subdirectory is
// placed under hidden in the home directory, and then under the working
// directory.
func appDir(userDir func() (string, error), hidden string) func() string {
	return sync.OnceValue(func() string {
		if dir, err := userDir(); err == nil {
			return filepath.Join(dir, pkg.Name)
		}

		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, hidden, pkg.Name)
		}

		if wd, err := os.Getwd(); err == nil {
			return filepath.Join(wd, hidden, pkg.Name)
		}

		return filepath.Join(hidden, pkg.Name)
	})
}

var (
	// configDir holds config.yaml and config.json.
	configDir = appDir(os.UserConfigDir, ".config")
	// cacheDir holds the REPL history and profiles.
	cacheDir = appDir(os.UserCacheDir, ".cache")
)

// configPath joins elem onto [configDir].
func configPath(elem ...string) string {
	return filepath.Join(append([]string{configDir()}, elem...)...)
}

// mkdirAllRequired creates the config and cache directories.
func mkdirAllRequired() error {
	for _, dir := range []string{configDir(), cacheDir()} {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return err
		}
	}

	return nil
}
