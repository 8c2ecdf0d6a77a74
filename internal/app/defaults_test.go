package app_test

import (
	"path/filepath"
	"testing"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/app"
)

func TestGetDefaults(t *testing.T) {
	t.Run("environment overrides win", func(t *testing.T) {
		t.Setenv("TRIPCACHE_CONFIG_PATH", "/etc/tripcache/config.toml")
		t.Setenv("TRIPCACHE_HOME", "/srv/tripcache")

		defaults, err := app.GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}
		if got := defaults["config_path"]; got != "/etc/tripcache/config.toml" {
			t.Errorf("config_path = %q, want env override", got)
		}
		if got := defaults["base_dir"]; got != "/srv/tripcache" {
			t.Errorf("base_dir = %q, want env override", got)
		}
		if got := defaults["log_dir"]; got != filepath.Join("/srv/tripcache", "log") {
			t.Errorf("log_dir = %q, want base_dir/log", got)
		}
	})

	t.Run("falls back to home directory paths", func(t *testing.T) {
		t.Setenv("TRIPCACHE_CONFIG_PATH", "")
		t.Setenv("TRIPCACHE_HOME", "")
		t.Setenv("HOME", "/home/traveler")

		defaults, err := app.GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}
		if got := defaults["config_path"]; got != "/home/traveler/.config/tripcache.toml" {
			t.Errorf("config_path = %q", got)
		}
		if got := defaults["base_dir"]; got != "/home/traveler/.local/share/tripcache" {
			t.Errorf("base_dir = %q", got)
		}
	})
}
