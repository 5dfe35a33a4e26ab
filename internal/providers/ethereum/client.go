package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-monitor/internal/adapter"
	"github.com/feral-file/ff-transfer-monitor/internal/domain"
	"github.com/feral-file/ff-transfer-monitor/internal/logger"
)

const (
	defaultBlockRange    = uint64(10000)
	defaultMaxRetries    = uint64(3)
	defaultRetryInterval = 500 * time.Millisecond
)

// Transfer event signature, shared by ERC20 and ERC721
// ERC20: Transfer(address indexed from, address indexed to, uint256 value) - 3 topics
// ERC721: Transfer(address indexed from, address indexed to, uint256 indexed tokenId) - 4 topics
var transferEventSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// ErrInvalidContractAddress is returned when the configured contract is not a hex address
var ErrInvalidContractAddress = errors.New("invalid contract address")

// Config holds the configuration for the contract event client
type Config struct {
	ChainID         domain.Chain
	ContractAddress string
	// BlockRange is the initial number of blocks per eth_getLogs call
	BlockRange uint64
	// MaxRetries bounds the retries of a failing RPC call
	MaxRetries uint64
	// RetryInterval is the first backoff interval between retries
	RetryInterval time.Duration
}

// Client reads the Transfer events of a single contract
//
//go:generate mockgen -source=client.go -destination=../../mocks/ethereum_client.go -package=mocks -mock_names=Client=MockEthereumClient
type Client interface {
	// GetTransferEvents returns the ERC721 transfers from fromBlock (inclusive) up to the
	// latest block, ordered by block number and log index
	GetTransferEvents(ctx context.Context, fromBlock uint64) ([]domain.TransferLog, error)

	// LatestBlock returns the current head block number
	LatestBlock(ctx context.Context) (uint64, error)

	// Close closes the connection
	Close()
}

type ethereumClient struct {
	cfg      Config
	contract common.Address
	client   adapter.EthClient
}

// NewClient creates a contract event client on top of an RPC connection
func NewClient(cfg Config, client adapter.EthClient) (Client, error) {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContractAddress, cfg.ContractAddress)
	}
	if cfg.BlockRange == 0 {
		cfg.BlockRange = defaultBlockRange
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = defaultRetryInterval
	}

	return &ethereumClient{
		cfg:      cfg,
		contract: common.HexToAddress(cfg.ContractAddress),
		client:   client,
	}, nil
}

// LatestBlock returns the current head block number
func (c *ethereumClient) LatestBlock(ctx context.Context) (uint64, error) {
	var head uint64
	err := c.retry(ctx, func() error {
		header, err := c.client.HeaderByNumber(ctx, nil)
		if err != nil {
			return err
		}
		head = header.Number.Uint64()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}

	return head, nil
}

// GetTransferEvents returns the ERC721 transfers of the contract from fromBlock to the head
func (c *ethereumClient) GetTransferEvents(ctx context.Context, fromBlock uint64) ([]domain.TransferLog, error) {
	head, err := c.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}
	if fromBlock > head {
		return []domain.TransferLog{}, nil
	}

	query := ethereum.FilterQuery{
		Addresses: []common.Address{c.contract},
		Topics:    [][]common.Hash{{transferEventSignature}},
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(head),
	}

	logs, err := c.filterLogsWithPagination(ctx, query)
	if err != nil {
		return nil, err
	}

	transfers := make([]domain.TransferLog, 0, len(logs))
	for _, vLog := range logs {
		transfer, err := c.parseTransferLog(ctx, vLog)
		if err != nil {
			return nil, err
		}
		if transfer != nil {
			transfers = append(transfers, *transfer)
		}
	}

	sort.SliceStable(transfers, func(i, j int) bool {
		if transfers[i].BlockNumber != transfers[j].BlockNumber {
			return transfers[i].BlockNumber < transfers[j].BlockNumber
		}
		return transfers[i].LogIndex < transfers[j].LogIndex
	})

	logger.DebugCtx(ctx, "Fetched transfer events",
		zap.String("contract", c.contract.Hex()),
		zap.Uint64("fromBlock", fromBlock),
		zap.Uint64("toBlock", head),
		zap.Int("count", len(transfers)))

	return transfers, nil
}

// filterLogsWithPagination walks the query range in windows of BlockRange blocks,
// halving the window whenever the provider refuses a query for returning too many results
func (c *ethereumClient) filterLogsWithPagination(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	stepSize := c.cfg.BlockRange
	toBlock := query.ToBlock.Uint64()

	var allLogs []types.Log
	currentFrom := query.FromBlock.Uint64()

	for currentFrom <= toBlock {
		currentTo := currentFrom + stepSize - 1
		if currentTo > toBlock || currentTo < currentFrom {
			currentTo = toBlock
		}

		rangeQuery := query
		rangeQuery.FromBlock = new(big.Int).SetUint64(currentFrom)
		rangeQuery.ToBlock = new(big.Int).SetUint64(currentTo)

		var logs []types.Log
		err := c.retry(ctx, func() error {
			var err error
			logs, err = c.client.FilterLogs(ctx, rangeQuery)
			if isTooManyResultsError(err) {
				return backoff.Permanent(err)
			}
			return err
		})
		if err == nil {
			allLogs = append(allLogs, logs...)
			currentFrom = currentTo + 1
			continue
		}

		if !isTooManyResultsError(err) {
			return nil, fmt.Errorf("failed to get logs for range %d-%d: %w", currentFrom, currentTo, err)
		}

		if stepSize == 1 {
			return nil, fmt.Errorf("failed to get logs for block %d: %w", currentFrom, err)
		}
		stepSize = stepSize / 2

		logger.WarnCtx(ctx, "Too many results, reducing step size",
			zap.Uint64("oldStepSize", stepSize*2),
			zap.Uint64("newStepSize", stepSize),
			zap.Uint64("fromBlock", currentFrom),
			zap.Uint64("toBlock", currentTo))
	}

	return allLogs, nil
}

// parseTransferLog converts an ERC721 Transfer log. ERC20 transfers yield nil.
func (c *ethereumClient) parseTransferLog(ctx context.Context, vLog types.Log) (*domain.TransferLog, error) {
	if vLog.Removed {
		logger.DebugCtx(ctx, "Skipping removed log",
			zap.String("txHash", vLog.TxHash.Hex()),
			zap.Uint64("blockNumber", vLog.BlockNumber))
		return nil, nil
	}

	if len(vLog.Topics) == 0 || vLog.Topics[0] != transferEventSignature {
		return nil, nil
	}

	if len(vLog.Topics) == 3 {
		logger.DebugCtx(ctx, "Skipping ERC20 transfer event",
			zap.String("contract", vLog.Address.Hex()),
			zap.String("txHash", vLog.TxHash.Hex()))
		return nil, nil
	}

	if len(vLog.Topics) != 4 {
		return nil, fmt.Errorf("invalid Transfer event: expected 3 or 4 topics, got %d", len(vLog.Topics))
	}

	return &domain.TransferLog{
		TransactionHash: vLog.TxHash.Hex(),
		BlockNumber:     vLog.BlockNumber,
		LogIndex:        vLog.Index,
		From:            common.BytesToAddress(vLog.Topics[1].Bytes()).Hex(),
		To:              common.BytesToAddress(vLog.Topics[2].Bytes()).Hex(),
		TokenID:         new(big.Int).SetBytes(vLog.Topics[3].Bytes()),
	}, nil
}

func (c *ethereumClient) retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInterval
	b.MaxElapsedTime = 0

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.MaxRetries), ctx))
}

// isTooManyResultsError checks if the error is related to too many results
func isTooManyResultsError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "query returned more than 10000 results") ||
		strings.Contains(errStr, "query timeout exceeded") ||
		strings.Contains(errStr, "too many results") ||
		strings.Contains(errStr, "exceeded maximum") ||
		strings.Contains(errStr, "block range")
}

// Close closes the connection
func (c *ethereumClient) Close() {
	c.client.Close()
}
