package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgiraldo/eventscope/internal/config"
	"github.com/mgiraldo/eventscope/internal/filter"
)

const defaultHTTPTimeout = 8 * time.Second

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config, event signature, and RPC connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		if err := cfg.ResolveRPC(); err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		fmt.Fprintln(out, "config OK")

		filt, err := filter.Compile(cfg.Contract, cfg.Event)
		if err != nil {
			return err
		}
		if sig := filt.Signature(); sig != "" {
			topic0, _ := filt.Topic0()
			fmt.Fprintf(out, "- event %s: topic0 %s\n", sig, topic0)
		} else {
			fmt.Fprintln(out, "- event: none (all events match)")
		}

		client := &http.Client{Timeout: defaultHTTPTimeout}
		chainID, err := pingRPC(cmd.Context(), client, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("validate: rpc %s: %w", config.MaskAPIKey(cfg.RPCURL), err)
		}
		fmt.Fprintf(out, "- rpc %s: chainId %s OK\n", config.MaskAPIKey(cfg.RPCURL), chainID)

		if cfg.ChainID != 0 {
			got, err := strconv.ParseUint(strings.TrimPrefix(chainID, "0x"), 16, 64)
			if err == nil && got != cfg.ChainID {
				return fmt.Errorf("validate: endpoint reports chain %d, config says %d", got, cfg.ChainID)
			}
		}

		fmt.Fprintln(out, "validate: success")
		return nil
	},
}

func pingRPC(ctx context.Context, client *http.Client, url string) (string, error) {
	payload := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "eth_chainId",
		"params":  []any{},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call eth_chainId: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("rpc status %d", resp.StatusCode)
	}

	var rpcResp struct {
		Result string `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return "", fmt.Errorf("decode rpc response: %w", err)
	}

	if rpcResp.Error != nil {
		return "", fmt.Errorf("rpc error: %s", rpcResp.Error.Message)
	}
	if rpcResp.Result == "" {
		return "", fmt.Errorf("empty chainId result")
	}

	return rpcResp.Result, nil
}
