// Package rpc wraps the JSON-RPC connection to an EVM node behind the narrow
// interface the poll loop consumes.
package rpc

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client captures the subset of the node API used by the watcher.
type Client interface {
	// BlockNumber returns the chain's latest block number.
	BlockNumber(ctx context.Context) (uint64, error)
	// FilterLogs returns the logs emitted by address within [from, to],
	// in the block/index order the provider returns them.
	FilterLogs(ctx context.Context, from, to uint64, address common.Address) ([]types.Log, error)
	// Close releases the underlying connection.
	Close()
}

// EthClient is a thin wrapper over ethclient.Client that satisfies Client.
type EthClient struct {
	c *ethclient.Client
}

// Dial connects to an EVM node over HTTP or WebSocket.
func Dial(rpcURL string) (*EthClient, error) {
	c, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial evm rpc: %w", err)
	}
	return &EthClient{c: c}, nil
}

func (e *EthClient) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := e.c.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("latest block: %w", err)
	}
	return n, nil
}

func (e *EthClient) FilterLogs(ctx context.Context, from, to uint64, address common.Address) ([]types.Log, error) {
	logs, err := e.c.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{address},
	})
	if err != nil {
		return nil, fmt.Errorf("filter logs [%d,%d]: %w", from, to, err)
	}
	return logs, nil
}

func (e *EthClient) Close() {
	e.c.Close()
}

// ChainID asks the node for its chain id, used to sanity-check configuration.
func (e *EthClient) ChainID(ctx context.Context) (uint64, error) {
	id, err := e.c.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("chain id: %w", err)
	}
	return id.Uint64(), nil
}
