package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/weave-lang/weave/internal/companion"
	"github.com/weave-lang/weave/internal/weaver/contract"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(oldWd) })
}

func TestLoad(t *testing.T) {
	// Test loading with no config file (should use defaults)
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg.Companion.Addr != companion.DefaultAddr {
		t.Errorf("expected default addr %s, got %s", companion.DefaultAddr, cfg.Companion.Addr)
	}
	if cfg.Companion.Timeout != 0 {
		t.Errorf("expected no default timeout, got %s", cfg.Companion.Timeout)
	}
	if !cfg.Companion.Autostart {
		t.Error("expected autostart to default to true")
	}
	if cfg.Companion.Store.Backend != "memory" {
		t.Errorf("expected memory backend, got %s", cfg.Companion.Store.Backend)
	}
	if cfg.Gen.OutDir != ".weave" {
		t.Errorf("expected default out dir '.weave', got %s", cfg.Gen.OutDir)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Errorf("unexpected log defaults %+v", cfg.Log)
	}
	if cfg.Override() != contract.OverrideNone {
		t.Errorf("expected no override, got %q", cfg.Override())
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	chdir(t, t.TempDir())

	configContent := `
companion:
  addr: 127.0.0.1:9999
  timeout: 500ms
  admin_addr: 127.0.0.1:8081
  autostart: false
  store:
    backend: redis
    prefix: "proj:"
    redis:
      addr: redis:6379
      db: 2
contracts:
  override: debug
gen:
  out_dir: build/woven
  concurrency: 4
log:
  level: debug
  format: json
`
	os.WriteFile(FileName, []byte(configContent), 0644)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.Companion.Addr != "127.0.0.1:9999" {
		t.Errorf("expected addr 127.0.0.1:9999, got %s", cfg.Companion.Addr)
	}
	if cfg.Companion.Timeout != 500*time.Millisecond {
		t.Errorf("expected timeout 500ms, got %s", cfg.Companion.Timeout)
	}
	if cfg.Companion.AdminAddr != "127.0.0.1:8081" {
		t.Errorf("expected admin addr, got %s", cfg.Companion.AdminAddr)
	}
	if cfg.Companion.Autostart {
		t.Error("expected autostart false")
	}
	if cfg.Override() != contract.OverrideDebug {
		t.Errorf("expected debug override, got %q", cfg.Override())
	}
	if cfg.Gen.OutDir != "build/woven" || cfg.Gen.Concurrency != 4 {
		t.Errorf("unexpected gen config %+v", cfg.Gen)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected json log format, got %s", cfg.Log.Format)
	}

	store := cfg.StoreConfig()
	if store.Backend != "redis" {
		t.Errorf("expected redis backend, got %s", store.Backend)
	}
	if store.Redis.Addr != "redis:6379" || store.Redis.DB != 2 {
		t.Errorf("unexpected redis config %+v", store.Redis)
	}
	if store.Redis.Prefix != "proj:" {
		t.Errorf("expected prefix carried to redis, got %s", store.Redis.Prefix)
	}
}

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	os.WriteFile(path, []byte("gen:\n  out_dir: out\n"), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Gen.OutDir != "out" {
		t.Errorf("expected out dir 'out', got %s", cfg.Gen.OutDir)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("WEAVE_COMPANION_ADDR", "127.0.0.1:1234")
	t.Setenv("WEAVE_CONTRACTS_OVERRIDE", "disable")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Companion.Addr != "127.0.0.1:1234" {
		t.Errorf("expected env addr, got %s", cfg.Companion.Addr)
	}
	if cfg.Override() != contract.OverrideDisable {
		t.Errorf("expected disable override, got %q", cfg.Override())
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad override", "contracts:\n  override: sometimes\n"},
		{"bad backend", "companion:\n  store:\n    backend: etcd\n"},
		{"bad format", "log:\n  format: xml\n"},
		{"bad timeout", "companion:\n  timeout: -1s\n"},
		{"negative concurrency", "gen:\n  concurrency: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			os.WriteFile(FileName, []byte(tt.content), 0644)

			if _, err := Load(""); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGetProjectRoot(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/x\n"), 0644)
	nested := filepath.Join(root, "a", "b")
	os.MkdirAll(nested, 0755)
	chdir(t, nested)

	got, err := GetProjectRoot()
	if err != nil {
		t.Fatalf("expected project root, got %v", err)
	}

	want, _ := filepath.EvalSymlinks(root)
	gotEval, _ := filepath.EvalSymlinks(got)
	if gotEval != want {
		t.Errorf("expected %s, got %s", want, gotEval)
	}
}
