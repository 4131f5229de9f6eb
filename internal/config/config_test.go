package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gsdemo.yml")
	body := []byte("listen:\n  address: \"0.0.0.0:40000\"\nlog:\n  debug: true\n")
	if err := os.WriteFile(path, body, 0666); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen.Address != "0.0.0.0:40000" {
		t.Fatalf("Listen.Address = %q, want 0.0.0.0:40000", cfg.Listen.Address)
	}
	if !cfg.Log.Debug {
		t.Fatal("Log.Debug = false, want true")
	}
	// Untouched fields keep their defaults.
	if cfg.Sync.DefaultExpiryMs != Default().Sync.DefaultExpiryMs {
		t.Fatalf("Sync.DefaultExpiryMs = %d, want default preserved", cfg.Sync.DefaultExpiryMs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("Load should fail for a missing file")
	}
}
