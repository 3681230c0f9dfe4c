package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
premade_root = %q
backgrounds_dir = %q
`,
		filepath.Join(dir, "data"),
		filepath.Join(dir, "logs"),
		filepath.Join(dir, "premade"),
		filepath.Join(dir, "backgrounds"),
	)
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestQueueStatusEmpty(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", cfgPath, "queue", "status")
	if err != nil {
		t.Fatalf("queue status: %v\n%s", err, out)
	}
	if !strings.Contains(out, "total") || !strings.Contains(out, "Series: 0 total") {
		t.Fatalf("output = %q", out)
	}
}

func TestScriptAddQueuesItem(t *testing.T) {
	cfgPath := writeTestConfig(t)
	scriptPath := filepath.Join(t.TempDir(), "story.txt")
	if err := os.WriteFile(scriptPath, []byte("Once upon a time."), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, "--config", cfgPath, "script", "add", scriptPath, "--customer", "cust-1")
	if err != nil {
		t.Fatalf("script add: %v\n%s", err, out)
	}
	if !strings.Contains(out, "pending_audio") {
		t.Fatalf("output = %q", out)
	}

	out, err = runCommand(t, "--config", cfgPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "pending_audio") || !strings.Contains(out, "cust-1") {
		t.Fatalf("output = %q", out)
	}
}

func TestScriptAddRejectsEmptyScript(t *testing.T) {
	cfgPath := writeTestConfig(t)
	scriptPath := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(scriptPath, []byte("   \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := runCommand(t, "--config", cfgPath, "script", "add", scriptPath, "--customer", "cust-1")
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("err = %v", err)
	}
}

func TestSeriesAddRequiresExistingSource(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := runCommand(t, "--config", cfgPath, "series", "add",
		filepath.Join(t.TempDir(), "absent.mp4"), "--customer", "cust-1")
	if err == nil {
		t.Fatal("expected error for missing source video")
	}
}

func TestSeriesAddAndList(t *testing.T) {
	cfgPath := writeTestConfig(t)
	sourcePath := filepath.Join(t.TempDir(), "full.mp4")
	if err := os.WriteFile(sourcePath, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, "--config", cfgPath, "series", "add", sourcePath,
		"--customer", "cust-1", "--segment-seconds", "45")
	if err != nil {
		t.Fatalf("series add: %v\n%s", err, out)
	}
	if !strings.Contains(out, "pending_split") {
		t.Fatalf("output = %q", out)
	}

	out, err = runCommand(t, "--config", cfgPath, "series", "list")
	if err != nil {
		t.Fatalf("series list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "45") || !strings.Contains(out, "pending_split") {
		t.Fatalf("output = %q", out)
	}
}

func TestQueueRemoveUnknownItem(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := runCommand(t, "--config", cfgPath, "queue", "remove", "42")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v", err)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}

	// A second init must refuse to overwrite.
	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected overwrite refusal")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "nightshift") {
		t.Fatalf("output = %q", out)
	}
}
