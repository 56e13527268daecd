package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupWorkspace(t *testing.T, configYAML string) string {
	t.Helper()
	ws := t.TempDir()
	if configYAML != "" {
		dir := filepath.Join(ws, ".shipsense")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	t.Cleanup(CloseAll)
	return ws
}

func TestInitializeWithoutConfigIsSilent(t *testing.T) {
	ws := setupWorkspace(t, "")
	if err := Initialize(ws); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if IsDebugMode() {
		t.Error("no config should mean production mode")
	}
	if _, err := os.Stat(filepath.Join(ws, ".shipsense", "logs")); !os.IsNotExist(err) {
		t.Error("production mode should not create a logs directory")
	}
}

func TestInitializeDebugModeWritesFiles(t *testing.T) {
	ws := setupWorkspace(t, "logging:\n  debug_mode: true\n  level: debug\n")
	if err := Initialize(ws); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if !IsDebugMode() {
		t.Fatal("debug mode should be on")
	}

	Orchestrator("turn started for %s", "demo")
	OrchestratorDebug("phase=%s", "interpreting")
	CloseAll()

	logsDir := filepath.Join(ws, ".shipsense", "logs")
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		t.Fatalf("logs directory missing: %v", err)
	}

	var found bool
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_orchestrator.log") {
			found = true
			data, err := os.ReadFile(filepath.Join(logsDir, e.Name()))
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(data), "turn started for demo") {
				t.Error("log file should contain the info line")
			}
			if !strings.Contains(string(data), "phase=interpreting") {
				t.Error("debug level should pass debug lines through")
			}
		}
	}
	if !found {
		t.Error("expected an orchestrator log file")
	}
}

func TestCategoryGating(t *testing.T) {
	ws := setupWorkspace(t, strings.Join([]string{
		"logging:",
		"  debug_mode: true",
		"  level: debug",
		"  categories:",
		"    fleet: false",
		"",
	}, "\n"))
	if err := Initialize(ws); err != nil {
		t.Fatal(err)
	}

	if IsCategoryEnabled(CategoryFleet) {
		t.Error("fleet category should be gated off")
	}
	if !IsCategoryEnabled(CategoryTools) {
		t.Error("unlisted categories default to enabled")
	}

	Fleet("should not appear")
	CloseAll()

	logsDir := filepath.Join(ws, ".shipsense", "logs")
	entries, _ := os.ReadDir(logsDir)
	for _, e := range entries {
		if strings.Contains(e.Name(), "_fleet.log") {
			t.Error("gated category should not produce a file")
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	ws := setupWorkspace(t, "logging:\n  debug_mode: true\n  level: warn\n")
	if err := Initialize(ws); err != nil {
		t.Fatal(err)
	}

	ToolsDebug("debug line")
	Tools("info line")
	Get(CategoryTools).Warn("warn line")
	CloseAll()

	logsDir := filepath.Join(ws, ".shipsense", "logs")
	entries, _ := os.ReadDir(logsDir)
	for _, e := range entries {
		if !strings.Contains(e.Name(), "_tools.log") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(logsDir, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		text := string(data)
		if strings.Contains(text, "debug line") || strings.Contains(text, "info line") {
			t.Error("warn level should filter debug and info lines")
		}
		if !strings.Contains(text, "warn line") {
			t.Error("warn line should be written")
		}
	}
}

func TestTimerStop(t *testing.T) {
	ws := setupWorkspace(t, "logging:\n  debug_mode: true\n  level: debug\n")
	if err := Initialize(ws); err != nil {
		t.Fatal(err)
	}

	timer := StartTimer(CategoryOrchestrator, "test op")
	time.Sleep(time.Millisecond)
	if elapsed := timer.Stop(); elapsed <= 0 {
		t.Error("elapsed should be positive")
	}
}
