package worker

import (
	"context"
	"sync"
	"time"

	"curator-go/internal/curator"
	"curator-go/internal/model"
)

// Notifier receives the completion notification for a background restore.
// It is called exactly once per restore that runs to completion, whether it
// succeeded or failed. A restore that was replaced before finishing does not
// notify; only its replacement does.
type Notifier interface {
	RestoreFinished(report *curator.RestoreReport, elapsed time.Duration, err error)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(report *curator.RestoreReport, elapsed time.Duration, err error)

func (f NotifierFunc) RestoreFinished(report *curator.RestoreReport, elapsed time.Duration, err error) {
	f(report, elapsed, err)
}

// Runner executes restores in the background, one at a time. Starting a
// restore while another is running cancels the running one and takes its
// place, so the most recent request always wins.
type Runner struct {
	service  *curator.LibraryService
	notifier Notifier
	logger   curator.Logger
	clock    curator.Clock

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewRunner creates a background restore runner. notifier may be nil, in
// which case completions are only logged.
func NewRunner(service *curator.LibraryService, notifier Notifier, logger curator.Logger, clock curator.Clock) *Runner {
	if logger == nil {
		logger = curator.NewNopLogger()
	}
	if clock == nil {
		clock = curator.RealClock{}
	}
	return &Runner{
		service:  service,
		notifier: notifier,
		logger:   logger,
		clock:    clock,
	}
}

// Start begins restoring the archive at source in the background. If a
// restore is already running it is cancelled and replaced by this one.
func (r *Runner) Start(ctx context.Context, source string, sel model.Selection, decryptCtx curator.DecryptionContext) {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.logger.Info("background restore replaced", "source", source)
	}
	r.generation++
	gen := r.generation

	jobCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go r.run(jobCtx, gen, source, sel, decryptCtx, done)
}

func (r *Runner) run(ctx context.Context, gen uint64, source string, sel model.Selection, decryptCtx curator.DecryptionContext, done chan struct{}) {
	defer close(done)

	started := r.clock.Now()
	report, err := r.service.Restore(ctx, source, sel, decryptCtx)
	elapsed := r.clock.Now().Sub(started)

	r.mu.Lock()
	current := gen == r.generation
	if current {
		r.cancel = nil
		r.done = nil
	}
	r.mu.Unlock()

	// A replaced job stays silent: its successor owns the notification.
	if !current {
		r.logger.Info("superseded restore discarded", "source", source)
		return
	}

	if err != nil {
		r.logger.Error("background restore failed", "source", source, "error", err, "elapsed", elapsed)
	} else {
		r.logger.Info("background restore finished", "source", source, "elapsed", elapsed)
	}
	if r.notifier != nil {
		r.notifier.RestoreFinished(report, elapsed, err)
	}
}

// Running reports whether a restore is currently in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done != nil
}

// Wait blocks until the current restore, if any, has finished.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Stop cancels any running restore and waits for its goroutine to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}
