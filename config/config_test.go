package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadLayersFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	content := `
data_dir = "` + filepath.ToSlash(filepath.Join(dir, "data")) + `"
transcribe_provider = "voxtral"
mistral_api_key = "from-file"

[redis]
key = "file:key"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TRANSCRIBE_CONFIG", cfgPath)
	t.Setenv("MISTRAL_API_KEY", "from-env")
	t.Setenv("PROGRESS_INTERVAL_MS", "250")
	t.Setenv("RESUME_PENDING", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TranscribeProvider != "voxtral" {
		t.Errorf("TranscribeProvider = %q, want %q", cfg.TranscribeProvider, "voxtral")
	}
	if cfg.MistralAPIKey != "from-env" {
		t.Errorf("MistralAPIKey = %q, want env value", cfg.MistralAPIKey)
	}
	if cfg.RedisKey != "file:key" {
		t.Errorf("RedisKey = %q, want %q", cfg.RedisKey, "file:key")
	}
	if cfg.ProgressInterval != 250*time.Millisecond {
		t.Errorf("ProgressInterval = %v, want 250ms", cfg.ProgressInterval)
	}
	if cfg.ResumePending {
		t.Error("ResumePending = true, want false")
	}
	wantRec := filepath.Join(dir, "data", "recordings")
	if cfg.RecordingsDir != wantRec {
		t.Errorf("RecordingsDir = %q, want %q", cfg.RecordingsDir, wantRec)
	}
	if _, err := os.Stat(cfg.TempDir); err != nil {
		t.Errorf("temp dir not created: %v", err)
	}
}

func TestValidateReportsMissingCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.DeepgramAPIKey = ""
	problems := cfg.Validate()
	if len(problems) != 1 {
		t.Fatalf("Validate() = %v, want one problem", problems)
	}

	cfg.DeepgramAPIKey = "key"
	cfg.AudioStore = "minio"
	if got := cfg.Validate(); len(got) != 1 {
		t.Errorf("Validate() = %v, want minio endpoint problem", got)
	}
}

func TestAuthEnabled(t *testing.T) {
	cfg := Defaults()
	if cfg.AuthEnabled() {
		t.Error("AuthEnabled() = true with no hash")
	}
	cfg.APIPasswordHash = "$2a$10$abc"
	cfg.JWTSecret = "secret"
	if !cfg.AuthEnabled() {
		t.Error("AuthEnabled() = false with hash and secret")
	}
}
