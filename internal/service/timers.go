package service

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// task is a cancellable scheduled callback owned by the controller.
// Scheduling a task cancels its previous timer first. Each schedule bumps a
// generation counter so a callback that already fired for a superseded timer
// is a no-op.
type task struct {
	mu    sync.Locker
	clock clockwork.Clock
	timer clockwork.Timer
	gen   uint64
}

func newTask(mu sync.Locker, clock clockwork.Clock) *task {
	return &task{mu: mu, clock: clock}
}

// schedule runs fn after d with the lock held. The caller must hold the lock.
func (t *task) schedule(d time.Duration, fn func()) {
	t.cancel()
	gen := t.gen
	t.timer = t.clock.AfterFunc(d, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.gen != gen {
			return
		}
		t.timer = nil
		fn()
	})
}

// cancel stops the pending timer, if any. The caller must hold the lock.
func (t *task) cancel() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}

func (t *task) pending() bool {
	return t.timer != nil
}
