package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const usdc = "0xA0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"

func TestLoadYAMLWithEnvInterpolation(t *testing.T) {
	t.Setenv("TEST_RPC", "https://rpc.example.com/abcdef123456")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
contract: "` + usdc + `"
event: "Transfer(address,address,uint256)"
rpc_url: "${TEST_RPC}"
poll_interval_ms: 500
format: json
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "https://rpc.example.com/abcdef123456" {
		t.Fatalf("rpc_url = %q", cfg.RPCURL)
	}
	if cfg.PollIntervalMS != 500 || cfg.Format != FormatJSON {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadMissingEnvVarFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(`rpc_url: "${DOES_NOT_EXIST_XYZ}"`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "DOES_NOT_EXIST_XYZ") {
		t.Fatalf("expected missing env error, got %v", err)
	}
}

func TestLoadWithoutFileAppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PollIntervalMS != 1000 || cfg.Format != FormatPretty {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing contract", func(c *Config) { c.Contract = "" }, "contract address is required"},
		{"bad contract", func(c *Config) { c.Contract = "0x123" }, "invalid contract address"},
		{"bad format", func(c *Config) { c.Format = "xml" }, "unsupported output format"},
		{"zero interval", func(c *Config) { c.PollIntervalMS = 0 }, "poll interval"},
		{"bad start block", func(c *Config) { c.StartBlock = "abc" }, "parse start_block"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Contract: usdc, Format: FormatPretty, PollIntervalMS: 1000}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("got %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolveRPCPrecedence(t *testing.T) {
	t.Setenv("ETHEREUM_RPC_URL", "https://eth.example.com/key")
	t.Setenv("RPC_URL", "https://fallback.example.com/key")

	// Explicit URL wins.
	cfg := &Config{RPCURL: "https://custom.example.com", ChainID: 1}
	if err := cfg.ResolveRPC(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.RPCURL != "https://custom.example.com" || cfg.ChainName != "Custom" {
		t.Fatalf("unexpected: %q %q", cfg.RPCURL, cfg.ChainName)
	}

	// Chain-id mapping next.
	cfg = &Config{ChainID: 1}
	if err := cfg.ResolveRPC(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.RPCURL != "https://eth.example.com/key" || cfg.ChainName != "Ethereum Mainnet" {
		t.Fatalf("unexpected: %q %q", cfg.RPCURL, cfg.ChainName)
	}

	// RPC_URL env last.
	cfg = &Config{}
	if err := cfg.ResolveRPC(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.RPCURL != "https://fallback.example.com/key" {
		t.Fatalf("unexpected: %q", cfg.RPCURL)
	}
}

func TestResolveRPCMissingEnv(t *testing.T) {
	os.Unsetenv("MUMBAI_RPC_URL")
	cfg := &Config{ChainID: 80001}
	if err := cfg.ResolveRPC(); err == nil || !strings.Contains(err.Error(), "MUMBAI_RPC_URL") {
		t.Fatalf("expected MUMBAI_RPC_URL error, got %v", err)
	}
}

func TestResolveStartBlock(t *testing.T) {
	tests := []struct {
		start  string
		latest uint64
		want   uint64
	}{
		{"", 500, 500},
		{"100", 500, 100},
		{"latest-10", 500, 490},
		{"latest-1000", 500, 0},
	}
	for _, tt := range tests {
		got, err := ResolveStartBlock(tt.start, tt.latest)
		if err != nil {
			t.Errorf("ResolveStartBlock(%q): %v", tt.start, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveStartBlock(%q, %d) = %d, want %d", tt.start, tt.latest, got, tt.want)
		}
	}

	if _, err := ResolveStartBlock("latest-x", 0); err == nil {
		t.Error("expected error for latest-x")
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://mainnet.infura.io/v3/abcdef1234567890", "https://mainnet.infura.io/v3/abcd...7890"},
		{"https://rpc.ankr.com/eth", "https://rpc.ankr.com/eth"},
		{"no-slashes", "no-slashes"},
	}
	for _, tt := range tests {
		if got := MaskAPIKey(tt.in); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestChainFromID(t *testing.T) {
	c, ok := ChainFromID(8453)
	if !ok || c.Name != "Base" || c.EnvVar != "BASE_RPC_URL" {
		t.Fatalf("unexpected chain: %+v ok=%v", c, ok)
	}
	if _, ok := ChainFromID(999999); ok {
		t.Fatal("expected unknown chain id to miss")
	}
}
