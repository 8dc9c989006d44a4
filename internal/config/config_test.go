package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Recommendation.Timeout != 60*time.Second {
		t.Errorf("Expected 60s timeout, got %v", cfg.Recommendation.Timeout)
	}
	if cfg.Grid.BlurGrace != 100*time.Millisecond {
		t.Errorf("Expected 100ms blur grace, got %v", cfg.Grid.BlurGrace)
	}
	if cfg.Seed.SampleUsers != 100 {
		t.Errorf("Expected 100 sample users, got %d", cfg.Seed.SampleUsers)
	}
}

func TestParseFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RECOMMENDATION_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("ENV", "development")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Recommendation.Timeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", cfg.Recommendation.Timeout)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("Expected 2 CORS origins, got %v", cfg.Server.CORSOrigins)
	}
	if !cfg.IsDevelopment() {
		t.Error("Expected development mode")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		value  string
		errMsg string
	}{
		{"bad log format", "LOG_FORMAT", "xml", "LOG_FORMAT"},
		{"negative seed", "SEED_SAMPLE_USERS", "-1", "SEED_SAMPLE_USERS"},
		{"temperature out of range", "OPENAI_TEMPERATURE", "3", "OPENAI_TEMPERATURE"},
		{"zero upload size", "MAX_UPLOAD_SIZE", "0", "MAX_UPLOAD_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Parse()
			if err == nil {
				t.Fatalf("Expected error for %s=%s", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Expected error mentioning %s, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestLoadEnvSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SEED_SAMPLE_USERS=7\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	t.Setenv("SEED_SAMPLE_USERS", "")
	os.Unsetenv("SEED_SAMPLE_USERS")

	n, err := LoadEnv(path, filepath.Join(dir, ".env.local"))
	if err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 file loaded, got %d", n)
	}

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Seed.SampleUsers != 7 {
		t.Errorf("Expected 7 sample users from .env, got %d", cfg.Seed.SampleUsers)
	}
}
