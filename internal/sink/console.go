package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mgiraldo/eventscope/internal/config"
	"github.com/mgiraldo/eventscope/internal/event"
)

// Console renders events to a writer in one of the configured styles.
type Console struct {
	w      io.Writer
	format string
}

// NewConsole builds a console sink. The format is one of the config
// selectors: pretty, json, or compact.
func NewConsole(w io.Writer, format string) *Console {
	return &Console{w: w, format: format}
}

func (c *Console) Name() string {
	return "console"
}

func (c *Console) Deliver(_ context.Context, ev event.LogEvent) error {
	var err error
	switch c.format {
	case config.FormatJSON:
		err = c.printJSON(ev)
	case config.FormatCompact:
		err = c.printCompact(ev)
	default:
		err = c.printPretty(ev)
	}
	if err != nil {
		// Stdout is gone; there is no fallback destination.
		return fmt.Errorf("%w: console: %v", ErrWriteFailed, err)
	}
	return nil
}

// Heartbeat overwrites the current line with a listening notice. Only the
// pretty format shows it; JSON and compact outputs stay machine-parseable.
func (c *Console) Heartbeat(latestBlock uint64) {
	if c.format != config.FormatPretty {
		return
	}
	fmt.Fprintf(c.w, "\rListening... (block %d) ", latestBlock)
}

func (c *Console) Close() error {
	return nil
}

func (c *Console) printJSON(ev event.LogEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.w, string(raw))
	return err
}

func (c *Console) printCompact(ev event.LogEvent) error {
	_, err := fmt.Fprintf(c.w, "[%s] Block %d | Tx %s | Contract %s | Topics: %d\n",
		ev.Timestamp,
		ev.BlockNumber,
		truncate(ev.TransactionHash, 10),
		truncate(ev.ContractAddress, 10),
		len(ev.Topics),
	)
	return err
}

func (c *Console) printPretty(ev event.LogEvent) error {
	rule := "════════════════════════════════════════════════════════════"
	if _, err := fmt.Fprintf(c.w, "\n╔%s\n", rule); err != nil {
		return err
	}
	fmt.Fprintln(c.w, "║ Event Detected")
	fmt.Fprintf(c.w, "║ Time: %s\n", ev.Timestamp)
	fmt.Fprintf(c.w, "║ Chain: %s (ID: %d)\n", ev.ChainName, ev.ChainID)
	fmt.Fprintf(c.w, "║ Block: %d\n", ev.BlockNumber)
	fmt.Fprintf(c.w, "║ Transaction: %s\n", ev.TransactionHash)
	fmt.Fprintf(c.w, "║ Log Index: %d\n", ev.LogIndex)
	fmt.Fprintf(c.w, "║ Contract: %s\n", ev.ContractAddress)
	if ev.EventSignature != "" {
		fmt.Fprintf(c.w, "║ Event: %s\n", ev.EventSignature)
	}
	fmt.Fprintf(c.w, "╠%s\n", rule)
	if len(ev.Topics) > 0 {
		fmt.Fprintln(c.w, "║ Topics:")
		for i, topic := range ev.Topics {
			fmt.Fprintf(c.w, "║   [%d] %s\n", i, topic)
		}
	}
	if ev.Data != "" {
		fmt.Fprintf(c.w, "║ Data: %s\n", ev.Data)
	}
	_, err := fmt.Fprintf(c.w, "╚%s\n\n", rule)
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
