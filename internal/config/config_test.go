package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sydlexius/elsewhere/internal/source"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Server.BasePath != "" {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Sources.Timeout != 10*time.Second || cfg.Sources.QueueBudget != 30*time.Second || cfg.Sources.MaxAlbumPages != 5 {
		t.Errorf("unexpected sources config %+v", cfg.Sources)
	}
	if !cfg.Enrichment.Enabled {
		t.Error("enrichment should be enabled by default")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  port: 9000
  base_path: /elsewhere/
sources:
  timeout: 4s
  disabled: [Patreon, KoFi]
enrichment:
  cache_ttl: 48h
logging:
  format: text
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EW_PORT", "9100")
	t.Setenv("EW_ENRICHMENT_ENABLED", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("env should override port, got %d", cfg.Server.Port)
	}
	if cfg.Server.BasePath != "/elsewhere" {
		t.Errorf("unexpected base path %q", cfg.Server.BasePath)
	}
	if cfg.Sources.Timeout != 4*time.Second {
		t.Errorf("unexpected timeout %s", cfg.Sources.Timeout)
	}
	if cfg.Enrichment.CacheTTL != 48*time.Hour || cfg.Enrichment.Enabled {
		t.Errorf("unexpected enrichment config %+v", cfg.Enrichment)
	}
	got := cfg.DisabledSources()
	if len(got) != 2 || got[0] != source.Patreon || got[1] != source.KoFi {
		t.Errorf("unexpected disabled sources %v", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"port":   "server:\n  port: 70000\n",
		"source": "sources:\n  disabled: [napster]\n",
		"format": "logging:\n  format: xml\n",
		"pages":  "sources:\n  max_album_pages: 0\n",
		"queue":  "sources:\n  queue_budget: -1s\n",
	}
	for name, yml := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
