package daybook

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AsyncNotifier hands entries to next in the background and logs failures.
type AsyncNotifier struct {
	next    Notifier
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncNotifier(next Notifier, timeout time.Duration) *AsyncNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AsyncNotifier{next: next, timeout: timeout}
}

// Notify always returns nil; the post happens after the caller's request has finished.
func (a *AsyncNotifier) Notify(ctx context.Context, entry Entry) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		postCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()

		if err := a.next.Notify(postCtx, entry); err != nil {
			slog.Error("daybook post failed", "kind", entry.Kind, "reference", entry.Reference, "error", err)
			return
		}
		slog.Info("daybook entry posted", "kind", entry.Kind, "reference", entry.Reference)
	}()
	return nil
}

// Wait blocks until in-flight posts finish.
func (a *AsyncNotifier) Wait() {
	a.wg.Wait()
}
