package config

import "fmt"

// Chain names a supported network and the environment variable holding its
// RPC endpoint.
type Chain struct {
	ID     uint64
	Name   string
	EnvVar string
}

var chains = map[uint64]Chain{
	1:        {ID: 1, Name: "Ethereum Mainnet", EnvVar: "ETHEREUM_RPC_URL"},
	10:       {ID: 10, Name: "Optimism", EnvVar: "OPTIMISM_RPC_URL"},
	56:       {ID: 56, Name: "Binance Smart Chain", EnvVar: "BSC_RPC_URL"},
	137:      {ID: 137, Name: "Polygon", EnvVar: "POLYGON_RPC_URL"},
	250:      {ID: 250, Name: "Fantom", EnvVar: "FANTOM_RPC_URL"},
	8453:     {ID: 8453, Name: "Base", EnvVar: "BASE_RPC_URL"},
	42161:    {ID: 42161, Name: "Arbitrum One", EnvVar: "ARBITRUM_RPC_URL"},
	43114:    {ID: 43114, Name: "Avalanche C-Chain", EnvVar: "AVALANCHE_RPC_URL"},
	11155111: {ID: 11155111, Name: "Sepolia Testnet", EnvVar: "SEPOLIA_RPC_URL"},
	80001:    {ID: 80001, Name: "Mumbai Testnet", EnvVar: "MUMBAI_RPC_URL"},
}

// ChainFromID looks up a supported chain by its id.
func ChainFromID(id uint64) (Chain, bool) {
	c, ok := chains[id]
	return c, ok
}

func chainEnvVar(id uint64) string {
	if c, ok := chains[id]; ok {
		return c.EnvVar
	}
	return fmt.Sprintf("CHAIN_%d_RPC_URL", id)
}
