package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigWithoutAPIKey(t *testing.T) {
	t.Setenv(APIKeyEnv, "")

	cfg := DefaultConfig()
	if cfg.Completion.APIKey != "" {
		t.Errorf("expected empty API key, got %q", cfg.Completion.APIKey)
	}
	if cfg.BatchSize != DefaultBatchSize {
		t.Errorf("expected batch size %d, got %d", DefaultBatchSize, cfg.BatchSize)
	}
	if cfg.FallbackScore == cfg.NeutralScore {
		t.Error("fallback score must differ from the neutral score")
	}
	if len(cfg.Sources) != 3 {
		t.Fatalf("expected 3 built-in sources, got %d", len(cfg.Sources))
	}
	globe, ok := cfg.Source("globe")
	if !ok || len(globe.Keywords) == 0 {
		t.Error("expected the wire source to carry a keyword allow-list")
	}
	if fda, _ := cfg.Source("fda"); len(fda.Keywords) != 0 {
		t.Error("expected the agency source to be unfiltered")
	}
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv(APIKeyEnv, "secret")
	t.Setenv("PHARMAWATCH_BATCH_SIZE", "7")
	t.Setenv("PHARMAWATCH_REQUEST_DELAY", "250ms")
	t.Setenv("PHARMAWATCH_PORT", "not-a-number")

	cfg := DefaultConfig()
	if cfg.Completion.APIKey != "secret" {
		t.Errorf("expected API key from env, got %q", cfg.Completion.APIKey)
	}
	if cfg.BatchSize != 7 {
		t.Errorf("expected batch size 7, got %d", cfg.BatchSize)
	}
	if cfg.RequestDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms delay, got %s", cfg.RequestDelay)
	}
	if cfg.ServerPort != DefaultServerPort {
		t.Errorf("expected default port on bad value, got %d", cfg.ServerPort)
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Duration
	}{
		{"", 5 * time.Second},
		{"3s", 3 * time.Second},
		{"2", 2 * time.Second},
		{"1m", time.Minute},
		{"bogus", 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("PHARMAWATCH_TEST_DURATION", tt.value)
			got := GetEnvDuration("PHARMAWATCH_TEST_DURATION", 5*time.Second)
			if got != tt.expected {
				t.Errorf("GetEnvDuration(%q) = %s, want %s", tt.value, got, tt.expected)
			}
		})
	}
}

func TestLoadSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	content := `sources:
  - tag: fda
    url: https://example.com/fda.xml
  - tag: wire
    name: Wire
    url: https://example.com/wire.xml
    keywords: [phase 3, approval]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	sources, err := LoadSources(path)
	if err != nil {
		t.Fatalf("LoadSources failed: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].Name != "fda" {
		t.Errorf("expected name to default to tag, got %q", sources[0].Name)
	}
	if len(sources[1].Keywords) != 2 {
		t.Errorf("expected 2 keywords, got %v", sources[1].Keywords)
	}
}

func TestLoadSourcesRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"empty", "sources: []\n", "defines no sources"},
		{"missing url", "sources:\n  - tag: fda\n", "tag and url are required"},
		{"duplicate tag", "sources:\n  - tag: a\n    url: x\n  - tag: a\n    url: y\n", "duplicate tag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sources.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadSources(path)
			if err == nil || !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("expected error containing %q, got %v", tt.errText, err)
			}
		})
	}
}
