// Package config resolves the watcher configuration from flags, an optional
// YAML file, and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Output format selectors for the console sink.
const (
	FormatPretty  = "pretty"
	FormatJSON    = "json"
	FormatCompact = "compact"
)

// Config is the fully resolved configuration consumed by the run command.
// Flags take precedence over the YAML file; RPC resolution consults the
// environment last.
type Config struct {
	Contract       string `yaml:"contract"`
	Event          string `yaml:"event"`
	ChainID        uint64 `yaml:"chain_id"`
	RPCURL         string `yaml:"rpc_url"`
	StartBlock     string `yaml:"start_block"`
	PollIntervalMS uint64 `yaml:"poll_interval_ms"`
	MaxChunkSize   uint64 `yaml:"max_chunk_size"`
	Format         string `yaml:"format"`
	OutputFile     string `yaml:"output_file"`
	WebhookURL     string `yaml:"webhook_url"`
	DBPath         string `yaml:"db_path"`

	// ChainName is derived during RPC resolution, not user-set.
	ChainName string `yaml:"-"`
}

var envPattern = regexp.MustCompile(`\${([A-Za-z_][A-Za-z0-9_]*)}`)

// Load reads an optional YAML config file, interpolating ${ENV} references.
// A .env file next to the config (or in the working directory when no config
// file is given) is loaded first.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if path == "" {
		cfg.ApplyDefaults()
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	interpolated, err := interpolateEnv(string(raw))
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal([]byte(interpolated), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

func loadDotEnv(configPath string) error {
	dir := "."
	if configPath != "" {
		dir = filepath.Dir(configPath)
	}
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
	}
	return nil
}

func interpolateEnv(input string) (string, error) {
	missing := []string{}
	out := envPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing environment variables: %s", strings.Join(dedup(missing), ", "))
	}
	return out, nil
}

// ApplyDefaults fills unset fields that have defaults.
func (c *Config) ApplyDefaults() {
	if c.PollIntervalMS == 0 {
		c.PollIntervalMS = 1000
	}
	if c.Format == "" {
		c.Format = FormatPretty
	}
}

// PollInterval returns the poll cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// ResolveRPC fills RPCURL and ChainName. Precedence: explicit rpc_url, then
// the chain-id mapping, then the RPC_URL environment variable.
func (c *Config) ResolveRPC() error {
	if c.RPCURL != "" {
		if c.ChainName == "" {
			c.ChainName = "Custom"
		}
		return nil
	}
	if c.ChainID != 0 {
		chain, ok := ChainFromID(c.ChainID)
		if !ok {
			return fmt.Errorf("unsupported chain id %d: set rpc_url or add %s to the environment", c.ChainID, chainEnvVar(c.ChainID))
		}
		url := os.Getenv(chain.EnvVar)
		if url == "" {
			return fmt.Errorf("environment variable %s not set: add it to your .env file", chain.EnvVar)
		}
		c.RPCURL = url
		c.ChainName = chain.Name
		return nil
	}
	if url := os.Getenv("RPC_URL"); url != "" {
		c.RPCURL = url
		c.ChainName = "Custom"
		return nil
	}
	return errors.New("must provide --chain-id, --rpc-url, or set RPC_URL")
}

// Validate performs small, direct schema checks. The event signature gets
// its own validation when the filter is compiled.
func (c *Config) Validate() error {
	if c.Contract == "" {
		return errors.New("contract address is required")
	}
	if !common.IsHexAddress(c.Contract) {
		return fmt.Errorf("invalid contract address: %s", c.Contract)
	}
	switch c.Format {
	case FormatPretty, FormatJSON, FormatCompact:
	default:
		return fmt.Errorf("unsupported output format: %s (want pretty, json, or compact)", c.Format)
	}
	if c.PollIntervalMS == 0 {
		return errors.New("poll interval must be positive")
	}
	if c.StartBlock != "" {
		if _, err := ResolveStartBlock(c.StartBlock, 0); err != nil {
			return err
		}
	}
	return nil
}

// ResolveStartBlock interprets a start_block value against the chain's
// current latest block: "" means latest, "latest-N" an offset from it, and
// anything else a literal block number.
func ResolveStartBlock(start string, latest uint64) (uint64, error) {
	if start == "" {
		return latest, nil
	}
	if strings.HasPrefix(start, "latest-") {
		n, err := strconv.ParseUint(strings.TrimPrefix(start, "latest-"), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse start_block %q: %w", start, err)
		}
		if n > latest {
			return 0, nil
		}
		return latest - n, nil
	}
	n, err := strconv.ParseUint(start, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse start_block %q: %w", start, err)
	}
	return n, nil
}

// MaskAPIKey hides the tail path segment of an RPC URL, which is where
// providers put API keys, so it is safe to print.
func MaskAPIKey(url string) string {
	pos := strings.LastIndex(url, "/")
	if pos < 0 || pos+1 >= len(url) {
		return url
	}
	base, key := url[:pos+1], url[pos+1:]
	if len(key) <= 8 {
		return url
	}
	return base + key[:4] + "..." + key[len(key)-4:]
}

func dedup(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
