package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mgiraldo/eventscope/internal/config"
	"github.com/mgiraldo/eventscope/internal/event"
)

func sampleEvent() event.LogEvent {
	return event.LogEvent{
		Timestamp:       "2025-03-14T09:26:53Z",
		ChainID:         1,
		ChainName:       "Ethereum Mainnet",
		BlockNumber:     19000000,
		TransactionHash: "0x" + strings.Repeat("ab", 32),
		LogIndex:        2,
		ContractAddress: "0xA0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		Topics:          []string{"0x" + strings.Repeat("11", 32)},
		Data:            "deadbeef",
		EventSignature:  "Transfer(address,address,uint256)",
	}
}

func TestConsoleJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, config.FormatJSON)

	if err := c.Deliver(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	line := strings.TrimRight(buf.String(), "\n")
	if strings.Contains(line, "\n") {
		t.Fatalf("json format must be a single line, got %q", line)
	}
	var back event.LogEvent
	if err := json.Unmarshal([]byte(line), &back); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if back.BlockNumber != 19000000 {
		t.Fatalf("unexpected block: %d", back.BlockNumber)
	}
}

func TestConsoleCompactFormat(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, config.FormatCompact)

	if err := c.Deliver(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Block 19000000", "Tx 0xabababab", "Topics: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("compact output missing %q: %s", want, out)
		}
	}
}

func TestConsolePrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, config.FormatPretty)

	if err := c.Deliver(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Event Detected",
		"Chain: Ethereum Mainnet (ID: 1)",
		"Block: 19000000",
		"Event: Transfer(address,address,uint256)",
		"Data: deadbeef",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("pretty output missing %q", want)
		}
	}
}

func TestConsoleHeartbeatOnlyPretty(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf, config.FormatJSON).Heartbeat(100)
	if buf.Len() != 0 {
		t.Fatalf("json format should not emit heartbeats, got %q", buf.String())
	}

	buf.Reset()
	NewConsole(&buf, config.FormatPretty).Heartbeat(100)
	if !strings.Contains(buf.String(), "block 100") {
		t.Fatalf("missing heartbeat: %q", buf.String())
	}
}
