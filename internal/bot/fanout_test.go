package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"bookshop-bot/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanoutPreservesPerPrincipalOrder(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int64][]int)

	f := newFanout(func(_ context.Context, ev Event) {
		mu.Lock()
		seen[ev.Principal] = append(seen[ev.Principal], ev.MessageID)
		mu.Unlock()
	}, util.GetLogger())

	// Interleave two principals' traffic the way the update loop would.
	ctx := context.Background()
	for i := 1; i <= 10; i++ {
		f.deliver(ctx, Event{Kind: EventText, Principal: 1, MessageID: i})
		f.deliver(ctx, Event{Kind: EventText, Principal: 2, MessageID: i})
	}
	f.close()

	want := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, want, seen[1])
	assert.Equal(t, want, seen[2])
}

func TestFanoutSerializesWithinPrincipal(t *testing.T) {
	// A handler that overlaps with itself for the same principal would
	// trip this: it records concurrent entries per principal.
	var mu sync.Mutex
	active := make(map[int64]int)
	overlapped := false

	f := newFanout(func(_ context.Context, ev Event) {
		mu.Lock()
		active[ev.Principal]++
		if active[ev.Principal] > 1 {
			overlapped = true
		}
		mu.Unlock()

		time.Sleep(time.Millisecond)

		mu.Lock()
		active[ev.Principal]--
		mu.Unlock()
	}, util.GetLogger())

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		f.deliver(ctx, Event{Kind: EventText, Principal: 1, MessageID: i})
	}
	f.close()

	assert.False(t, overlapped, "a principal's events must never be handled concurrently")
}

func TestFanoutDoesNotBlockAcrossPrincipals(t *testing.T) {
	release := make(chan struct{})
	done := make(chan int64, 2)

	f := newFanout(func(_ context.Context, ev Event) {
		if ev.Principal == 1 {
			<-release
		}
		done <- ev.Principal
	}, util.GetLogger())

	ctx := context.Background()
	f.deliver(ctx, Event{Kind: EventText, Principal: 1})
	f.deliver(ctx, Event{Kind: EventText, Principal: 2})

	// Principal 2 finishes while principal 1 is still blocked.
	select {
	case p := <-done:
		require.Equal(t, int64(2), p)
	case <-time.After(2 * time.Second):
		t.Fatal("principal 2 was blocked behind principal 1")
	}

	close(release)
	f.close()
}
