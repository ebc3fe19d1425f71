package retention

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zulandar/takehome/internal/logging"
)

func mkdirAged(t *testing.T, root, name string, age time.Duration, now time.Time) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	mt := now.Add(-age)
	if err := os.Chtimes(dir, mt, mt); err != nil {
		t.Fatal(err)
	}
	return dir
}

// --- ParseSchedule ---

func TestParseSchedule(t *testing.T) {
	for _, expr := range []string{"0 3 * * *", "@daily", "*/15 * * * *"} {
		if _, err := ParseSchedule(expr); err != nil {
			t.Errorf("ParseSchedule(%q): %v", expr, err)
		}
	}
	if _, err := ParseSchedule("not a cron expr"); err == nil {
		t.Error("expected error for invalid expression")
	}
}

// --- Sweep ---

func TestSweep(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	old := mkdirAged(t, root, "backend_senior_20250101_000000", 10*24*time.Hour, now)
	fresh := mkdirAged(t, root, "backend_senior_20250313_000000", time.Hour, now)
	running := mkdirAged(t, root, "backend_senior_20250102_000000", 9*24*time.Hour, now)
	if err := os.WriteFile(filepath.Join(root, "history.db"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Sweep(root, 7*24*time.Hour, map[string]bool{running: true}, now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(res.Removed) != 1 || res.Removed[0] != old {
		t.Errorf("Removed = %v, want [%s]", res.Removed, old)
	}
	if res.Kept != 1 {
		t.Errorf("Kept = %d, want 1", res.Kept)
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}
	for _, dir := range []string{fresh, running, filepath.Join(root, "history.db")} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("%s should survive: %v", dir, err)
		}
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Errorf("%s should be removed, stat err = %v", old, err)
	}
}

func TestSweep_MissingRoot(t *testing.T) {
	res, err := Sweep(filepath.Join(t.TempDir(), "nope"), time.Hour, nil, time.Now())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(res.Removed) != 0 {
		t.Errorf("Removed = %v, want none", res.Removed)
	}
}

// --- Sweeper ---

func TestSweeper_RunOnceUsesActive(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	dir := mkdirAged(t, root, "job", 48*time.Hour, now)

	s := &Sweeper{
		Root:   root,
		MaxAge: time.Hour,
		Active: func() map[string]bool { return map[string]bool{dir: true} },
		Logger: logging.Nop(),
		now:    func() time.Time { return now },
	}
	res, err := s.RunOnce()
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if res.Skipped != 1 || len(res.Removed) != 0 {
		t.Errorf("res = %+v, want one skipped", res)
	}
}

func TestSweeper_StartStop(t *testing.T) {
	s := &Sweeper{Root: t.TempDir(), MaxAge: time.Hour, Logger: logging.Nop()}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx, "bogus"); err == nil {
		t.Fatal("expected schedule error")
	}
	if err := s.Start(ctx, "@hourly"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
	s.Stop()
}
