package cli

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ardnew/stache/pkg"
)

func TestAppDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	found := appDir(func() (string, error) { return "/xdg", nil }, ".config")
	if got, want := found(), filepath.Join("/xdg", pkg.Name); got != want {
		t.Errorf("appDir() = %q, want %q", got, want)
	}

	missing := appDir(func() (string, error) { return "", errors.New("unset") }, ".cache")
	if got, want := missing(), filepath.Join(home, ".cache", pkg.Name); got != want {
		t.Errorf("appDir() fallback = %q, want %q", got, want)
	}
}

func TestConfigPath(t *testing.T) {
	got := configPath(baseConfig + ".yaml")

	if filepath.Base(got) != "config.yaml" || filepath.Base(filepath.Dir(got)) != pkg.Name {
		t.Errorf("configPath() = %q", got)
	}
}
