package tracker

import (
	"context"
	"os"
	"testing"

	"github.com/owtaylor/ttymon/config"
)

func TestForegroundTrackerNoTTY(t *testing.T) {
	cfg := config.DefaultConfig()
	tr := NewForegroundTracker(cfg, os.Getpid())

	// The test binary typically has no controlling terminal group of
	// its own pid, or isn't a session leader, so Update should
	// gracefully report an empty foreground state rather than erroring
	// (Update returns nothing to check - it must not panic).
	tr.Update(context.Background())

	if tr.ContainerInfo() != nil && tr.ForegroundArgv0() == "" {
		t.Error("unexpected non-nil container info alongside empty foreground argv0")
	}
}

func TestForegroundTrackerStringRendersChain(t *testing.T) {
	tr := &ForegroundTracker{root: newSessionNode(100, nil)}
	tr.root.child = newGroupNode(100)
	tr.root.child.child = newSessionNode(200, nil)

	got := tr.String()
	want := "ForegroundTracker[ S-100 S-200 ]"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestGroupNodeUpdateNonLauncher(t *testing.T) {
	cfg := config.Config{LauncherPaths: []string{"/does/not/match"}}
	g := newGroupNode(os.Getpid())
	g.update(context.Background(), cfg)

	if g.child != nil {
		t.Error("expected no child session for a non-launcher argv0")
	}
}
