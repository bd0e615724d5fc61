package main

import (
	"path/filepath"
	"testing"

	"leetfriends/config"
)

func defaultTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database = filepath.Join(t.TempDir(), "prefs.db")
	return cfg
}
