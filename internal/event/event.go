// Package event defines the record emitted for every matched contract log.
package event

import (
	"encoding/hex"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
)

// LogEvent is the JSON record handed to sinks, one per matched log.
type LogEvent struct {
	Timestamp       string   `json:"timestamp"`
	ChainID         uint64   `json:"chain_id,omitempty"`
	ChainName       string   `json:"chain_name"`
	BlockNumber     uint64   `json:"block_number"`
	TransactionHash string   `json:"transaction_hash"`
	LogIndex        uint     `json:"log_index"`
	ContractAddress string   `json:"contract_address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	EventSignature  string   `json:"event_signature,omitempty"`
}

// FromLog converts a raw log into a LogEvent, stamping it with the capture time.
func FromLog(lg types.Log, chainID uint64, chainName, signature string, now time.Time) LogEvent {
	topics := make([]string, 0, len(lg.Topics))
	for _, t := range lg.Topics {
		topics = append(topics, t.Hex())
	}
	return LogEvent{
		Timestamp:       now.Format(time.RFC3339),
		ChainID:         chainID,
		ChainName:       chainName,
		BlockNumber:     lg.BlockNumber,
		TransactionHash: lg.TxHash.Hex(),
		LogIndex:        lg.Index,
		ContractAddress: lg.Address.Hex(),
		Topics:          topics,
		Data:            hex.EncodeToString(lg.Data),
		EventSignature:  signature,
	}
}
