package domain

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainEthereumSepolia Chain = "eip155:11155111"
)

// IsValidChain checks if a chain is valid
func IsValidChain(chain Chain) bool {
	return chain == ChainEthereumMainnet ||
		chain == ChainEthereumSepolia
}

// TransferLog is an ERC721 Transfer log as returned by the chain client
type TransferLog struct {
	TransactionHash string
	BlockNumber     uint64
	LogIndex        uint
	From            string
	To              string
	TokenID         *big.Int
}

// ToTransferEvent converts the log into its persisted form.
// The token id is rendered as a decimal string since it may exceed 64 bits.
func (l TransferLog) ToTransferEvent() TransferEvent {
	tokenID := ""
	if l.TokenID != nil {
		tokenID = l.TokenID.String()
	}

	return TransferEvent{
		TransactionHash: l.TransactionHash,
		BlockNumber:     l.BlockNumber,
		From:            l.From,
		To:              l.To,
		TokenID:         tokenID,
	}
}

// TransferEvent is a persisted NFT transfer, keyed by transaction hash
type TransferEvent struct {
	TransactionHash string `json:"transactionHash" dynamodbav:"transactionHash"`
	BlockNumber     uint64 `json:"blockNumber" dynamodbav:"blockNumber,omitempty"`
	From            string `json:"from" dynamodbav:"from,omitempty"`
	To              string `json:"to" dynamodbav:"to,omitempty"`
	TokenID         string `json:"tokenId" dynamodbav:"tokenId,omitempty"`
}

// IsMint reports whether the transfer originates from the zero address
func (e TransferEvent) IsMint() bool {
	return strings.EqualFold(e.From, ETHEREUM_ZERO_ADDRESS)
}

// IsBurn reports whether the transfer targets the zero address
func (e TransferEvent) IsBurn() bool {
	return strings.EqualFold(e.To, ETHEREUM_ZERO_ADDRESS)
}

// Parameter is a named application parameter
type Parameter struct {
	Name  string `json:"name" dynamodbav:"name"`
	Value any    `json:"value" dynamodbav:"value"`
}

// Uint64 returns the parameter value as an unsigned integer.
// Numeric values decoded from the store arrive as string-backed numbers, so any
// fmt.Stringer is parsed as well.
func (p Parameter) Uint64() (uint64, error) {
	switch v := p.Value.(type) {
	case uint64:
		return v, nil
	case uint:
		return uint64(v), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("%w: %s is negative", ErrInvalidParameterValue, p.Name)
		}
		return uint64(v), nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("%w: %s is negative", ErrInvalidParameterValue, p.Name)
		}
		return uint64(v), nil
	case float64:
		if v < 0 || v > math.MaxUint64 || v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %s is not an unsigned integer", ErrInvalidParameterValue, p.Name)
		}
		return uint64(v), nil
	case string:
		return parseUint(p.Name, v)
	case fmt.Stringer:
		return parseUint(p.Name, v.String())
	case nil:
		return 0, fmt.Errorf("%w: %s has no value", ErrInvalidParameterValue, p.Name)
	default:
		return 0, fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidParameterValue, p.Name, p.Value)
	}
}

func parseUint(name, s string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidParameterValue, name, err)
	}
	return n, nil
}
