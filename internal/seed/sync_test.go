package seed

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/vouch/internal/backend"
	"github.com/starford/vouch/internal/models"
	"github.com/starford/vouch/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeSeed(t *testing.T, path, doc string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
}

func areaNames(t *testing.T, src backend.TaxonomySource) []string {
	t.Helper()
	ctx := context.Background()
	id, err := src.ListID(ctx, models.KindArea)
	if err != nil {
		t.Fatalf("ListID: %v", err)
	}
	items, err := src.ListItems(ctx, backend.ItemQuery{ListID: id})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestSync_AppliesOnceThenSkips(t *testing.T) {
	store := testutil.TestStore(t)
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	writeSeed(t, path, sample)
	ctx := context.Background()

	applied, err := Sync(ctx, store, path, quietLogger())
	if err != nil || !applied {
		t.Fatalf("first sync = %v, %v; want applied", applied, err)
	}
	if got := areaNames(t, store); len(got) != 4 {
		t.Errorf("areas = %v, want 4", got)
	}

	applied, err = Sync(ctx, store, path, quietLogger())
	if err != nil || applied {
		t.Fatalf("second sync = %v, %v; want skipped", applied, err)
	}

	writeSeed(t, path, sample+"\n# touched\n")
	applied, err = Sync(ctx, store, path, quietLogger())
	if err != nil || !applied {
		t.Fatalf("sync after edit = %v, %v; want applied", applied, err)
	}
}

func TestSync_MissingFile(t *testing.T) {
	store := testutil.TestStore(t)
	if _, err := Sync(context.Background(), store, filepath.Join(t.TempDir(), "nope.yaml"), quietLogger()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSync_InvalidFileLeavesChecksum(t *testing.T) {
	store := testutil.TestStore(t)
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	writeSeed(t, path, "lists: [")
	ctx := context.Background()

	if _, err := Sync(ctx, store, path, quietLogger()); err == nil {
		t.Fatal("expected parse error")
	}
	sum, err := store.SeedChecksum(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum != "" {
		t.Errorf("checksum recorded for a failed seed: %q", sum)
	}
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatch_ReappliesOnChange(t *testing.T) {
	store := testutil.TestStore(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.yaml")
	writeSeed(t, path, sample)
	if _, err := Sync(context.Background(), store, path, quietLogger()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, store, path, quietLogger(), func() { calls.Add(1) })
	}()

	time.Sleep(100 * time.Millisecond)

	// An unrelated file in the same directory is ignored.
	writeSeed(t, filepath.Join(dir, "other.yaml"), "x: 1")
	writeSeed(t, path, `
lists:
  - name: area
    items:
      - id: london
        name: Greater London
`)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		for _, n := range areaNames(t, store) {
			if n == "Greater London" {
				return true
			}
		}
		return false
	}, "seed change not applied by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "onApplied not called")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Watch did not stop after cancel")
	}
}

func TestWatch_BurstIsDebounced(t *testing.T) {
	store := testutil.TestStore(t)
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	writeSeed(t, path, sample)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go Watch(ctx, store, path, quietLogger(), func() { calls.Add(1) })
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		writeSeed(t, path, sample+"\n# rev\n")
		time.Sleep(20 * time.Millisecond)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "burst never applied")

	time.Sleep(400 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("onApplied called %d times for one burst, want 1", got)
	}
}
