// Package watcher runs the sequential poll loop that drives fetching,
// matching, dispatch, and cursor advancement.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mgiraldo/eventscope/internal/event"
	"github.com/mgiraldo/eventscope/internal/filter"
	"github.com/mgiraldo/eventscope/internal/metrics"
	"github.com/mgiraldo/eventscope/internal/planner"
	"github.com/mgiraldo/eventscope/internal/retry"
	"github.com/mgiraldo/eventscope/internal/rpc"
	"github.com/mgiraldo/eventscope/internal/sink"
)

// Options carries the per-run parameters the loop stamps onto events.
type Options struct {
	ChainID      uint64
	ChainName    string
	PollInterval time.Duration
}

// Watcher owns the block cursor for one contract: it asks the planner for
// ranges, fetches and matches logs, fans them out, and advances the cursor
// only after the durable sinks have seen every matched event.
type Watcher struct {
	client  rpc.Client
	plan    *planner.Planner
	filt    *filter.Filter
	disp    *sink.Dispatcher
	log     *slog.Logger
	mtr     *metrics.Metrics
	opts    Options
	backoff *retry.Backoff
	nowFunc func() time.Time
}

// New builds a watcher. mtr may be nil when metrics are disabled.
func New(client rpc.Client, plan *planner.Planner, filt *filter.Filter, disp *sink.Dispatcher, log *slog.Logger, mtr *metrics.Metrics, opts Options) *Watcher {
	return &Watcher{
		client:  client,
		plan:    plan,
		filt:    filt,
		disp:    disp,
		log:     log,
		mtr:     mtr,
		opts:    opts,
		backoff: retry.Exponential(),
		nowFunc: time.Now,
	}
}

// Run polls until the context is canceled or a fatal error occurs.
// Transient RPC failures are retried in place with capped backoff and never
// move the cursor; range-too-large rejections shrink the chunk size and
// retry immediately.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info("watching contract",
		"contract", w.filt.Address().Hex(),
		"chain", w.opts.ChainName,
		"start_block", w.plan.Cursor(),
		"poll_interval", w.opts.PollInterval,
	)

	for {
		if ctx.Err() != nil {
			return nil
		}

		caughtUp, err := w.RunOnce(ctx)
		switch {
		case err == nil:
			w.backoff.Reset()
			if !caughtUp {
				// Still behind the chain head; keep chunking without sleeping.
				continue
			}
			if !w.sleep(ctx, w.opts.PollInterval) {
				return nil
			}

		case rpc.IsShutdown(err):
			return nil

		case errors.Is(err, sink.ErrWriteFailed):
			return err

		case rpc.IsAuthError(err):
			w.mtr.RPCErrors()
			return fmt.Errorf("rpc rejected credentials: %w", err)

		case rpc.IsRangeTooLarge(err):
			before := w.plan.ChunkSize()
			size := w.plan.Shrink()
			if size == before {
				// Already at the one-block floor; treat the rejection as
				// transient instead of retrying at full speed.
				w.mtr.RPCErrors()
				delay := w.backoff.Next()
				w.log.Warn("provider rejected minimal block range, backing off",
					"chunk_size", size, "delay", delay, "error", err)
				if !w.sleep(ctx, delay) {
					return nil
				}
				continue
			}
			w.log.Warn("provider rejected block range, shrinking chunk",
				"chunk_size", size, "error", err)

		default:
			w.mtr.RPCErrors()
			delay := w.backoff.Next()
			w.log.Warn("transient rpc error, backing off",
				"delay", delay, "attempt", w.backoff.Attempts(), "error", err)
			if !w.sleep(ctx, delay) {
				return nil
			}
		}
	}
}

// RunOnce performs a single poll pass: one latest-block query and at most
// one chunk of logs. It reports whether the cursor has caught up with the
// chain head. The cursor is only advanced when the pass fully succeeds.
func (w *Watcher) RunOnce(ctx context.Context) (bool, error) {
	latest, err := w.client.BlockNumber(ctx)
	if err != nil {
		return false, err
	}

	r, ok := w.plan.Next(latest)
	if !ok {
		w.disp.Heartbeat(latest)
		return true, nil
	}

	logs, err := w.client.FilterLogs(ctx, r.From, r.To, w.filt.Address())
	if err != nil {
		return false, err
	}

	matched := 0
	for _, lg := range logs {
		if lg.Removed || !w.filt.Matches(lg) {
			continue
		}
		matched++
		w.mtr.LogsMatched()

		ev := event.FromLog(lg, w.opts.ChainID, w.opts.ChainName, w.filt.Signature(), w.nowFunc())
		for _, out := range w.disp.Deliver(ctx, ev) {
			if out.Err == nil {
				w.mtr.Delivered(out.Sink)
				continue
			}
			w.mtr.DeliveryFailed(out.Sink)
			if errors.Is(out.Err, sink.ErrWriteFailed) {
				return false, fmt.Errorf("sink %s: %w", out.Sink, out.Err)
			}
		}
	}

	w.plan.Advance(r)
	w.mtr.BlocksProcessed(r.Width())
	if matched > 0 {
		w.log.Info("range processed", "range", r.String(), "matched", matched)
	} else {
		w.disp.Heartbeat(latest)
		w.log.Debug("range processed, no matches", "range", r.String())
	}

	return r.To >= latest, nil
}

func (w *Watcher) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
