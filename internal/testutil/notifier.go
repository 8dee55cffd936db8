package testutil

import (
	"sync"
	"time"

	"curator-go/internal/curator"
)

// Notification captures one restore completion callback.
type Notification struct {
	Report  *curator.RestoreReport
	Elapsed time.Duration
	Err     error
}

// RecordingNotifier collects restore completion notifications and signals
// each one on a channel so tests can wait without polling.
type RecordingNotifier struct {
	mu            sync.Mutex
	notifications []Notification
	signal        chan Notification
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{signal: make(chan Notification, 16)}
}

func (n *RecordingNotifier) RestoreFinished(report *curator.RestoreReport, elapsed time.Duration, err error) {
	notification := Notification{Report: report, Elapsed: elapsed, Err: err}
	n.mu.Lock()
	n.notifications = append(n.notifications, notification)
	n.mu.Unlock()
	n.signal <- notification
}

// Notifications returns a copy of everything recorded so far.
func (n *RecordingNotifier) Notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.notifications))
	copy(out, n.notifications)
	return out
}

// WaitForNotification blocks until a notification arrives or the timeout
// expires, returning false on timeout.
func (n *RecordingNotifier) WaitForNotification(timeout time.Duration) (Notification, bool) {
	select {
	case notification := <-n.signal:
		return notification, true
	case <-time.After(timeout):
		return Notification{}, false
	}
}
