package worker_test

import (
	"context"
	"testing"
	"time"

	"curator-go/internal/archive"
	"curator-go/internal/curator"
	"curator-go/internal/model"
	"curator-go/internal/testutil"
	"curator-go/internal/worker"
)

// gatedArchiver delays Unzip until the gate is released, keeping a restore
// in flight for as long as the test needs.
type gatedArchiver struct {
	inner curator.Archiver
	gate  chan struct{}
}

func (g *gatedArchiver) Zip(destination string, payloads map[string][]byte) error {
	return g.inner.Zip(destination, payloads)
}

func (g *gatedArchiver) Unzip(source string, fn curator.EntryFunc) error {
	<-g.gate
	return g.inner.Unzip(source, fn)
}

// seedArchive exports one favorite into the given archiver under the key
// "a.zip" and returns a service restoring into a fresh store.
func seedArchive(t *testing.T, arch curator.Archiver) *curator.LibraryService {
	t.Helper()
	ctx := context.Background()

	src := testutil.NewTestStore(t)
	srcSvc := curator.NewLibraryService(src, arch, nil, curator.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())
	if _, err := srcSvc.AddFavorite(ctx, model.Favorite{ID: "m1", Kind: model.KindModel}); err != nil {
		t.Fatalf("AddFavorite() error = %v", err)
	}
	if _, err := srcSvc.Export(ctx, model.Selection{Favorites: true}, "a.zip", nil); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	dst := testutil.NewTestStore(t)
	return curator.NewLibraryService(dst, arch, nil, curator.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())
}

func TestRunner_Start(t *testing.T) {
	t.Run("notifies exactly once on completion", func(t *testing.T) {
		arch := archive.NewMemoryArchiver()
		svc := seedArchive(t, arch)
		notifier := testutil.NewRecordingNotifier()
		runner := worker.NewRunner(svc, notifier, curator.NewNopLogger(), curator.RealClock{})

		runner.Start(context.Background(), "a.zip", model.Selection{Favorites: true}, nil)

		n, ok := notifier.WaitForNotification(5 * time.Second)
		if !ok {
			t.Fatal("timed out waiting for notification")
		}
		if n.Err != nil {
			t.Fatalf("notification error = %v", n.Err)
		}
		if n.Report == nil || n.Report.Favorites != 1 {
			t.Errorf("report = %+v, want one favorite merged", n.Report)
		}
		if n.Elapsed < 0 {
			t.Errorf("elapsed = %v, want non-negative", n.Elapsed)
		}

		runner.Wait()
		if got := len(notifier.Notifications()); got != 1 {
			t.Errorf("notifications = %d, want exactly 1", got)
		}
	})

	t.Run("nil logger and clock fall back to defaults", func(t *testing.T) {
		arch := archive.NewMemoryArchiver()
		svc := seedArchive(t, arch)
		notifier := testutil.NewRecordingNotifier()
		runner := worker.NewRunner(svc, notifier, nil, nil)

		runner.Start(context.Background(), "a.zip", model.Selection{Favorites: true}, nil)

		n, ok := notifier.WaitForNotification(5 * time.Second)
		if !ok {
			t.Fatal("timed out waiting for notification")
		}
		if n.Err != nil {
			t.Fatalf("notification error = %v", n.Err)
		}
	})

	t.Run("a failed restore still notifies", func(t *testing.T) {
		arch := archive.NewMemoryArchiver()
		svc := seedArchive(t, arch)
		notifier := testutil.NewRecordingNotifier()
		runner := worker.NewRunner(svc, notifier, curator.NewNopLogger(), curator.RealClock{})

		runner.Start(context.Background(), "missing.zip", model.Selection{Favorites: true}, nil)

		n, ok := notifier.WaitForNotification(5 * time.Second)
		if !ok {
			t.Fatal("timed out waiting for notification")
		}
		if n.Err == nil {
			t.Error("notification error = nil, want restore failure")
		}
	})

	t.Run("a new restore replaces the one in flight", func(t *testing.T) {
		gate := make(chan struct{})
		arch := &gatedArchiver{inner: archive.NewMemoryArchiver(), gate: gate}
		seedArchive(t, arch.inner)
		// Restore through the gated wrapper.
		dst := testutil.NewTestStore(t)
		gatedSvc := curator.NewLibraryService(dst, arch, nil, curator.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())

		notifier := testutil.NewRecordingNotifier()
		runner := worker.NewRunner(gatedSvc, notifier, curator.NewNopLogger(), curator.RealClock{})

		sel := model.Selection{Favorites: true}
		runner.Start(context.Background(), "a.zip", sel, nil)
		runner.Start(context.Background(), "a.zip", sel, nil)
		close(gate)

		n, ok := notifier.WaitForNotification(5 * time.Second)
		if !ok {
			t.Fatal("timed out waiting for notification")
		}
		if n.Err != nil {
			t.Fatalf("notification error = %v", n.Err)
		}

		// The superseded job must stay silent.
		if _, extra := notifier.WaitForNotification(100 * time.Millisecond); extra {
			t.Error("superseded restore sent a notification")
		}
	})

	t.Run("Running reports in-flight state", func(t *testing.T) {
		gate := make(chan struct{})
		arch := &gatedArchiver{inner: archive.NewMemoryArchiver(), gate: gate}
		seedArchive(t, arch.inner)
		dst := testutil.NewTestStore(t)
		gatedSvc := curator.NewLibraryService(dst, arch, nil, curator.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())

		notifier := testutil.NewRecordingNotifier()
		runner := worker.NewRunner(gatedSvc, notifier, curator.NewNopLogger(), curator.RealClock{})

		if runner.Running() {
			t.Error("Running() = true before any restore")
		}

		runner.Start(context.Background(), "a.zip", model.Selection{Favorites: true}, nil)
		if !runner.Running() {
			t.Error("Running() = false while restore is gated")
		}

		close(gate)
		runner.Wait()
		if runner.Running() {
			t.Error("Running() = true after Wait")
		}
	})
}
