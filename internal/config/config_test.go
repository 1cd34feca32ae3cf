package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Concurrency != 6 {
		t.Errorf("expected default concurrency 6, got %d", cfg.Concurrency)
	}
	if cfg.RemoteLayout.Enabled {
		t.Error("expected remote layout disabled by default")
	}
	if cfg.RemoteLayout.TimeoutMs != 5000 {
		t.Errorf("expected default remote layout timeout 5000, got %d", cfg.RemoteLayout.TimeoutMs)
	}
	if cfg.RemoteLayout.MaxPayloadBytes != 8*1024*1024 {
		t.Errorf("expected default max payload 8MB, got %d", cfg.RemoteLayout.MaxPayloadBytes)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASTERIA_NORMALIZE_CONCURRENCY", "12")
	t.Setenv("ASTERIA_OUTPUT_DIR", "/tmp/out")
	t.Setenv("ASTERIA_RUN_ID", "run-42")
	t.Setenv("ASTERIA_REMOTE_LAYOUT_ENDPOINT", "https://layout.internal")
	t.Setenv("ASTERIA_REMOTE_LAYOUT_TOKEN", "secret-token")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Concurrency != 12 {
		t.Errorf("expected concurrency 12, got %d", cfg.Concurrency)
	}
	if cfg.OutputDir != "/tmp/out" {
		t.Errorf("expected output dir /tmp/out, got %q", cfg.OutputDir)
	}
	if cfg.RunID != "run-42" {
		t.Errorf("expected run id run-42, got %q", cfg.RunID)
	}
	if cfg.RemoteLayout.Endpoint != "https://layout.internal" {
		t.Errorf("expected remote layout endpoint override, got %q", cfg.RemoteLayout.Endpoint)
	}
	if cfg.RemoteLayout.Token != "secret-token" {
		t.Errorf("expected remote layout token override, got %q", cfg.RemoteLayout.Token)
	}
}

func TestLoad_ProjectOverrideYAML(t *testing.T) {
	clearEnv(t)
	override := []byte("concurrency: 3\nremoteLayout:\n  enabled: true\n  endpoint: https://custom\n")
	cfg, err := Load(override)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Concurrency != 3 {
		t.Errorf("expected concurrency 3 from project override, got %d", cfg.Concurrency)
	}
	if !cfg.RemoteLayout.Enabled {
		t.Error("expected remote layout enabled from project override")
	}
	if cfg.RemoteLayout.Endpoint != "https://custom" {
		t.Errorf("expected endpoint from project override, got %q", cfg.RemoteLayout.Endpoint)
	}
}

func TestLoad_RejectsUnknownTopLevelKey(t *testing.T) {
	clearEnv(t)
	override := []byte("concurrency: 3\nbogusKey: true\n")
	if _, err := Load(override); err == nil {
		t.Fatal("expected error for unknown top-level key")
	}
}

func TestLoad_RejectsUnknownNestedKey(t *testing.T) {
	clearEnv(t)
	override := []byte("remoteLayout:\n  bogusNested: 1\n")
	if _, err := Load(override); err == nil {
		t.Fatal("expected error for unknown nested remoteLayout key")
	}
}

func TestLoad_InvalidConcurrencyFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASTERIA_NORMALIZE_CONCURRENCY", "not-a-number")
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Concurrency != 6 {
		t.Errorf("expected fallback concurrency 6, got %d", cfg.Concurrency)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ASTERIA_NORMALIZE_CONCURRENCY",
		"ASTERIA_OUTPUT_DIR",
		"ASTERIA_RUN_ID",
		"ASTERIA_OBS_DIR",
		"ASTERIA_REMOTE_LAYOUT_ENABLED",
		"ASTERIA_REMOTE_LAYOUT_ENDPOINT",
		"ASTERIA_REMOTE_LAYOUT_TOKEN",
		"ASTERIA_REMOTE_LAYOUT_TIMEOUT_MS",
		"ASTERIA_REMOTE_LAYOUT_MAX_PAYLOAD_MB",
		"ASTERIA_REMOTE_LAYOUT_MAX_DIMENSION",
	} {
		os.Unsetenv(k)
	}
}
