package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mgiraldo/eventscope/internal/event"
)

const (
	webhookQueueSize  = 256
	webhookRetryMax   = 5
	webhookTimeout    = 8 * time.Second
	webhookWaitMin    = 500 * time.Millisecond
	webhookWaitMax    = 8 * time.Second
	webhookDrainLimit = 10 * time.Second
)

// Webhook POSTs events to a URL with bounded, jittered retries. Delivery is
// best-effort and runs on a background goroutine so a slow or unreachable
// endpoint never stalls the poll loop. Events are dropped, with a warning,
// when the queue is full or retries are exhausted.
type Webhook struct {
	url    string
	client *retryablehttp.Client
	queue  chan event.LogEvent
	log    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	dropped uint64
}

// NewWebhook builds the sink and starts its delivery worker.
func NewWebhook(url string, log *slog.Logger) *Webhook {
	client := retryablehttp.NewClient()
	client.RetryMax = webhookRetryMax
	client.RetryWaitMin = webhookWaitMin
	client.RetryWaitMax = webhookWaitMax
	client.Backoff = retryablehttp.LinearJitterBackoff
	client.HTTPClient.Timeout = webhookTimeout
	client.Logger = nil
	// The default policy gives up on non-429 4xx responses; the webhook
	// contract is that anything outside 2xx is retried.
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		return resp.StatusCode < 200 || resp.StatusCode >= 300, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Webhook{
		url:    url,
		client: client,
		queue:  make(chan event.LogEvent, webhookQueueSize),
		log:    log,
		cancel: cancel,
	}
	w.wg.Add(1)
	go w.run(ctx)
	return w
}

func (w *Webhook) Name() string {
	return "webhook"
}

// Deliver enqueues the event and returns immediately. It never reports a
// delivery error: webhook failures are logged by the worker, not escalated.
func (w *Webhook) Deliver(_ context.Context, ev event.LogEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	select {
	case w.queue <- ev:
	default:
		w.dropped++
		w.log.Warn("webhook queue full, dropping event",
			"block", ev.BlockNumber,
			"log_index", ev.LogIndex,
			"dropped_total", w.dropped,
		)
	}
	return nil
}

// Close stops accepting events, abandons in-flight retries, and waits for
// the worker to exit (bounded by the drain limit).
func (w *Webhook) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(webhookDrainLimit):
		w.cancel()
		<-done
	}
	w.cancel()
	return nil
}

// Dropped returns how many events were discarded without an attempt.
func (w *Webhook) Dropped() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

func (w *Webhook) run(ctx context.Context) {
	defer w.wg.Done()
	for ev := range w.queue {
		if err := w.post(ctx, ev); err != nil {
			w.log.Warn("webhook delivery dropped after retries",
				"url", w.url,
				"block", ev.BlockNumber,
				"log_index", ev.LogIndex,
				"error", err,
			)
		}
	}
}

func (w *Webhook) post(ctx context.Context, ev event.LogEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, w.url, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
