package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelmark/internal/enrichment"
)

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	base := t.TempDir()
	configPath := filepath.Join(base, "reelmark.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
work_dir = %q
log_dir = %q

[platform]
api_key = "test-platform-key"
base_url = "https://platform.example/api"

[logging]
format = "json"
level = "error"
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "work"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath, filepath.Join(base, "data")
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// Refusing to overwrite without the flag.
	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error for existing config file")
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowCommand(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, configPath)
	requireContains(t, out, "Speech fallback:    no")
	if strings.Contains(out, "test-platform-key") {
		t.Error("api key should be redacted")
	}
}

func TestRecordsListEmpty(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "records", "list")
	if err != nil {
		t.Fatalf("records list: %v", err)
	}
	requireContains(t, out, "No enrichment records")
}

func TestRecordsListUnknownStatus(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	if _, _, err := runCLI(t, configPath, "records", "list", "--status", "exploded"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestRecordsShowAndRetry(t *testing.T) {
	configPath, dataDir := writeTestConfig(t)

	// Seed a failed record directly through the store.
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("mkdir data dir: %v", err)
	}
	store, err := enrichment.OpenPath(filepath.Join(dataDir, "enrichment.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	record, err := store.Create(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("create record: %v", err)
	}
	record.SetFailed(enrichment.NothingFoundMessage)
	if err := store.Update(context.Background(), record); err != nil {
		t.Fatalf("update record: %v", err)
	}
	_ = store.Close()

	out, _, err := runCLI(t, configPath, "records", "show", "vid-1")
	if err != nil {
		t.Fatalf("records show: %v", err)
	}
	requireContains(t, out, "vid-1")
	requireContains(t, out, string(enrichment.StatusFailed))
	requireContains(t, out, enrichment.NothingFoundMessage)

	out, _, err = runCLI(t, configPath, "records", "retry", "vid-1")
	if err != nil {
		t.Fatalf("records retry: %v", err)
	}
	requireContains(t, out, "reset to pending")

	// A pending record is not retry-eligible.
	if _, _, err := runCLI(t, configPath, "records", "retry", "vid-1"); err == nil {
		t.Fatal("expected error retrying a non-failed record")
	}
}

func TestEnrichRequiresVideoID(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	if _, _, err := runCLI(t, configPath, "enrich"); err == nil {
		t.Fatal("expected argument error")
	}
}

func TestEnrichRefusesWhenDisabled(t *testing.T) {
	base := t.TempDir()
	configPath := filepath.Join(base, "reelmark.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
work_dir = %q
log_dir = %q

[enrichment]
enabled = false

[platform]
api_key = "test-platform-key"
base_url = "https://platform.example/api"

[logging]
format = "json"
level = "error"
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "work"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, err := runCLI(t, configPath, "enrich", "vid-disabled")
	if err == nil {
		t.Fatal("expected error when enrichment is disabled")
	}
	requireContains(t, err.Error(), "enrichment is disabled")
}
