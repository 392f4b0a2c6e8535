package detect

import (
	"sync"
	"testing"

	"github.com/filaform/filatag/types"
)

func TestBroadcaster_SubscribeByType(t *testing.T) {
	b := NewBroadcaster(nil)

	var detected, completed int
	b.Subscribe(types.EventTagDetected, func(*types.EventEnvelope) { detected++ })
	b.Subscribe(types.EventSessionComplete, func(*types.EventEnvelope) { completed++ })

	b.Emit(&types.EventEnvelope{Type: types.EventTagDetected})
	b.Emit(&types.EventEnvelope{Type: types.EventTagDetected})
	b.Emit(&types.EventEnvelope{Type: types.EventSessionComplete})

	if detected != 2 {
		t.Errorf("tag_detected deliveries = %d, want 2", detected)
	}
	if completed != 1 {
		t.Errorf("session_complete deliveries = %d, want 1", completed)
	}
}

func TestBroadcaster_MultipleListenersPerEvent(t *testing.T) {
	b := NewBroadcaster(nil)

	var first, second bool
	b.Subscribe(types.EventTagDetected, func(*types.EventEnvelope) { first = true })
	b.Subscribe(types.EventTagDetected, func(*types.EventEnvelope) { second = true })

	b.Emit(&types.EventEnvelope{Type: types.EventTagDetected})

	if !first || !second {
		t.Errorf("deliveries = %t, %t, want both true", first, second)
	}
}

func TestBroadcaster_SubscribeAll(t *testing.T) {
	b := NewBroadcaster(nil)

	var got []types.EventType
	b.SubscribeAll(func(e *types.EventEnvelope) { got = append(got, e.Type) })

	b.Emit(&types.EventEnvelope{Type: types.EventDetectionStarted})
	b.Emit(&types.EventEnvelope{Type: types.EventTagDetected})

	if len(got) != 2 {
		t.Fatalf("deliveries = %d, want 2", len(got))
	}
	if got[0] != types.EventDetectionStarted || got[1] != types.EventTagDetected {
		t.Errorf("event order = %v", got)
	}
}

func TestBroadcaster_StampsEnvelope(t *testing.T) {
	b := NewBroadcaster(nil)

	var seqs []int64
	ids := make(map[string]bool)
	b.SubscribeAll(func(e *types.EventEnvelope) {
		seqs = append(seqs, e.Seq)
		ids[e.EventID] = true
		if e.Ts == "" {
			t.Error("Ts not stamped")
		}
	})

	for i := 0; i < 3; i++ {
		b.Emit(&types.EventEnvelope{Type: types.EventTagDetected})
	}

	for i, seq := range seqs {
		if seq != int64(i+1) {
			t.Errorf("seqs = %v, want 1, 2, 3", seqs)
			break
		}
	}
	if len(ids) != 3 {
		t.Errorf("unique event IDs = %d, want 3", len(ids))
	}
}

func TestBroadcaster_PanicIsolation(t *testing.T) {
	b := NewBroadcaster(nil)

	var delivered bool
	b.Subscribe(types.EventTagDetected, func(*types.EventEnvelope) {
		panic("listener bug")
	})
	b.Subscribe(types.EventTagDetected, func(*types.EventEnvelope) {
		delivered = true
	})

	b.Emit(&types.EventEnvelope{Type: types.EventTagDetected})

	if !delivered {
		t.Error("panicking listener blocked delivery to the next listener")
	}

	// The broadcaster must remain usable after a listener panic.
	b.Emit(&types.EventEnvelope{Type: types.EventTagDetected})
}

func TestBroadcaster_ConcurrentEmit(t *testing.T) {
	b := NewBroadcaster(nil)

	var mu sync.Mutex
	count := 0
	b.SubscribeAll(func(*types.EventEnvelope) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Emit(&types.EventEnvelope{Type: types.EventTagDetected})
			}
		}()
	}
	wg.Wait()

	if count != 400 {
		t.Errorf("deliveries = %d, want 400", count)
	}
}
