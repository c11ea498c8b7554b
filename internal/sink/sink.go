// Package sink delivers matched events to the configured destinations.
package sink

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mgiraldo/eventscope/internal/event"
)

// ErrWriteFailed marks a delivery failure on a durable sink. The poll loop
// treats these as fatal: losing events silently on a destination the operator
// asked to persist to is worse than stopping.
var ErrWriteFailed = errors.New("sink write failed")

// Sink delivers one event to one destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev event.LogEvent) error
	Close() error
}

// Outcome reports how one sink handled one event.
type Outcome struct {
	Sink string
	Err  error
}

// Dispatcher fans an event out to every configured sink. One sink's failure
// never prevents the others from receiving the event.
type Dispatcher struct {
	sinks []Sink
	log   *slog.Logger
}

// NewDispatcher builds a dispatcher over the given sinks.
func NewDispatcher(log *slog.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, log: log}
}

// Deliver hands the event to every sink in order and collects per-sink
// outcomes. It never returns an aggregate error.
func (d *Dispatcher) Deliver(ctx context.Context, ev event.LogEvent) []Outcome {
	outcomes := make([]Outcome, 0, len(d.sinks))
	for _, s := range d.sinks {
		err := s.Deliver(ctx, ev)
		if err != nil {
			d.log.Warn("sink delivery failed",
				"sink", s.Name(),
				"block", ev.BlockNumber,
				"log_index", ev.LogIndex,
				"error", err,
			)
		}
		outcomes = append(outcomes, Outcome{Sink: s.Name(), Err: err})
	}
	return outcomes
}

// Heartbeat forwards an idle tick to sinks that render one.
func (d *Dispatcher) Heartbeat(latestBlock uint64) {
	for _, s := range d.sinks {
		if h, ok := s.(interface{ Heartbeat(uint64) }); ok {
			h.Heartbeat(latestBlock)
		}
	}
}

// Close shuts down every sink, returning the first error encountered.
func (d *Dispatcher) Close() error {
	var first error
	for _, s := range d.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
