package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/mgiraldo/eventscope/internal/event"
)

type recordingSink struct {
	name      string
	delivered []event.LogEvent
	err       error
	closed    bool
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(_ context.Context, ev event.LogEvent) error {
	if s.err != nil {
		return s.err
	}
	s.delivered = append(s.delivered, ev)
	return nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func TestDispatcherFansOutToAllSinks(t *testing.T) {
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	d := NewDispatcher(discardLogger(), a, b)

	outcomes := d.Deliver(context.Background(), sampleEvent())
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for _, out := range outcomes {
		if out.Err != nil {
			t.Fatalf("sink %s failed: %v", out.Sink, out.Err)
		}
	}
	if len(a.delivered) != 1 || len(b.delivered) != 1 {
		t.Fatalf("fan-out incomplete: a=%d b=%d", len(a.delivered), len(b.delivered))
	}
}

func TestDispatcherContainsSinkFailures(t *testing.T) {
	broken := &recordingSink{name: "broken", err: errors.New("boom")}
	healthy := &recordingSink{name: "healthy"}
	d := NewDispatcher(discardLogger(), broken, healthy)

	outcomes := d.Deliver(context.Background(), sampleEvent())

	if outcomes[0].Err == nil {
		t.Fatal("expected broken sink outcome to carry its error")
	}
	if outcomes[1].Err != nil {
		t.Fatalf("healthy sink affected by broken one: %v", outcomes[1].Err)
	}
	if len(healthy.delivered) != 1 {
		t.Fatal("healthy sink did not receive the event")
	}
}

func TestDispatcherPreservesEventOrderPerSink(t *testing.T) {
	s := &recordingSink{name: "s"}
	d := NewDispatcher(discardLogger(), s)

	ctx := context.Background()
	for i := uint(0); i < 5; i++ {
		ev := sampleEvent()
		ev.LogIndex = i
		d.Deliver(ctx, ev)
	}

	for i, ev := range s.delivered {
		if ev.LogIndex != uint(i) {
			t.Fatalf("event %d delivered out of order: log_index %d", i, ev.LogIndex)
		}
	}
}

func TestDispatcherCloseClosesAll(t *testing.T) {
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	d := NewDispatcher(discardLogger(), a, b)

	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Fatal("not all sinks closed")
	}
}
