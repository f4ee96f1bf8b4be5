package bot

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const fanoutQueueDepth = 16

// fanout delivers events to the handler with one worker per principal, so
// a principal's events are handled strictly in arrival order while
// different principals proceed in parallel. Session scratch relies on that
// ordering instead of a lock.
type fanout struct {
	handle func(context.Context, Event)
	queues map[int64]chan Event
	wg     sync.WaitGroup
	logger *zap.Logger
}

func newFanout(handle func(context.Context, Event), logger *zap.Logger) *fanout {
	return &fanout{
		handle: handle,
		queues: make(map[int64]chan Event),
		logger: logger,
	}
}

// deliver queues one event for its principal's worker, starting the worker
// on first sight. Not safe for concurrent use; the update loop is the only
// caller. A full queue drops the event rather than stalling other chats.
func (f *fanout) deliver(ctx context.Context, ev Event) {
	q, ok := f.queues[ev.Principal]
	if !ok {
		q = make(chan Event, fanoutQueueDepth)
		f.queues[ev.Principal] = q
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			for e := range q {
				f.handle(ctx, e)
			}
		}()
	}

	select {
	case q <- ev:
	default:
		f.logger.Warn("Principal queue full, dropping event",
			zap.Int64("user_id", ev.Principal),
			zap.String("kind", string(ev.Kind)))
	}
}

// close stops every worker after its queued events drain and waits for
// them to finish.
func (f *fanout) close() {
	for _, q := range f.queues {
		close(q)
	}
	f.wg.Wait()
}
