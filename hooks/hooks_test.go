package hooks

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/owtaylor/ttymon/container"
)

func TestRun_NoHookConfigured(t *testing.T) {
	err := Run(context.Background(), Config{}, ForegroundChange, State{})
	if err != nil {
		t.Errorf("no configured hook should not error: %v", err)
	}
}

func TestRun_SuccessfulHook(t *testing.T) {
	tempDir := t.TempDir()
	scriptPath := filepath.Join(tempDir, "hook.sh")
	script := "#!/bin/sh\ncat > /dev/null\nexit 0\n"
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	cfg := Config{OnForegroundChange: scriptPath}
	err := Run(context.Background(), cfg, ForegroundChange, State{ForegroundArgv0: "bash"})
	if err != nil {
		t.Errorf("successful hook should not error: %v", err)
	}
}

func TestRun_FailingHook(t *testing.T) {
	tempDir := t.TempDir()
	scriptPath := filepath.Join(tempDir, "hook.sh")
	script := "#!/bin/sh\nexit 1\n"
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	cfg := Config{OnContainerChange: scriptPath}
	err := Run(context.Background(), cfg, ContainerChange, State{})
	if err == nil {
		t.Error("failing hook should return error")
	}
}

func TestRun_NonexistentHook(t *testing.T) {
	cfg := Config{OnForegroundChange: "/nonexistent/hook"}
	err := Run(context.Background(), cfg, ForegroundChange, State{})
	if err == nil {
		t.Error("nonexistent hook should return error")
	}
}

func TestRun_WrongTransitionHasNoHook(t *testing.T) {
	tempDir := t.TempDir()
	scriptPath := filepath.Join(tempDir, "hook.sh")
	outputFile := filepath.Join(tempDir, "output")
	script := "#!/bin/sh\necho ran > " + outputFile + "\n"
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	// Only ForegroundChange is configured; firing ContainerChange must
	// be a no-op.
	cfg := Config{OnForegroundChange: scriptPath}
	if err := Run(context.Background(), cfg, ContainerChange, State{}); err != nil {
		t.Fatalf("unconfigured transition should not error: %v", err)
	}
	if _, err := os.Stat(outputFile); err == nil {
		t.Error("hook for a different transition should not have run")
	}
}

func TestRun_StateOnStdin(t *testing.T) {
	tempDir := t.TempDir()
	scriptPath := filepath.Join(tempDir, "hook.sh")
	outputFile := filepath.Join(tempDir, "output")
	script := "#!/bin/sh\ncat > " + outputFile + "\n"
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	cfg := Config{OnForegroundChange: scriptPath}
	state := State{
		ContainerInfo:   &container.Info{ContainerName: "dev"},
		ForegroundArgv0: "bash",
		ForegroundCwd:   "/home/u/src",
	}
	if err := Run(context.Background(), cfg, ForegroundChange, state); err != nil {
		t.Fatalf("hook failed: %v", err)
	}

	content, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	var got State
	if err := json.Unmarshal(content, &got); err != nil {
		t.Fatalf("hook stdin was not valid JSON: %v (%s)", err, content)
	}
	if got.ForegroundArgv0 != "bash" || got.ForegroundCwd != "/home/u/src" {
		t.Errorf("state round-tripped wrong: %+v", got)
	}
	if got.ContainerInfo == nil || got.ContainerInfo.ContainerName != "dev" {
		t.Errorf("container info missing from state: %+v", got)
	}
}

func TestRun_TimeoutEnforced(t *testing.T) {
	tempDir := t.TempDir()
	scriptPath := filepath.Join(tempDir, "hook.sh")
	script := "#!/bin/sh\nsleep 10\n"
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	cfg := Config{OnForegroundChange: scriptPath, Timeout: 100 * time.Millisecond}
	start := time.Now()
	err := Run(context.Background(), cfg, ForegroundChange, State{})
	if err == nil {
		t.Error("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout not enforced promptly, took %v", elapsed)
	}
}

func TestRun_DefaultTimeoutUsedWhenUnset(t *testing.T) {
	tempDir := t.TempDir()
	scriptPath := filepath.Join(tempDir, "hook.sh")
	script := "#!/bin/sh\nexit 0\n"
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	cfg := Config{OnForegroundChange: scriptPath}
	if err := Run(context.Background(), cfg, ForegroundChange, State{}); err != nil {
		t.Errorf("hook with default timeout should not error: %v", err)
	}
}

func TestTransitionNames(t *testing.T) {
	if !strings.Contains(string(ForegroundChange), "foreground") {
		t.Errorf("unexpected transition name: %s", ForegroundChange)
	}
	if !strings.Contains(string(ContainerChange), "container") {
		t.Errorf("unexpected transition name: %s", ContainerChange)
	}
}
