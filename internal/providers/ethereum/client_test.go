package ethereum_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-transfer-monitor/internal/domain"
	"github.com/feral-file/ff-transfer-monitor/internal/logger"
	"github.com/feral-file/ff-transfer-monitor/internal/mocks"
	ethprovider "github.com/feral-file/ff-transfer-monitor/internal/providers/ethereum"
)

const contractAddress = "0x1111111111111111111111111111111111111111"

var (
	transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	alice         = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob           = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

type testClientMocks struct {
	ctrl      *gomock.Controller
	ethClient *mocks.MockEthClient
}

func setupTestClient(t *testing.T) *testClientMocks {
	ctrl := gomock.NewController(t)
	return &testClientMocks{
		ctrl:      ctrl,
		ethClient: mocks.NewMockEthClient(ctrl),
	}
}

func tearDownTestClient(mocks *testClientMocks) {
	mocks.ctrl.Finish()
}

func newClient(t *testing.T, tm *testClientMocks, blockRange, maxRetries uint64) ethprovider.Client {
	t.Helper()
	client, err := ethprovider.NewClient(ethprovider.Config{
		ChainID:         domain.ChainEthereumMainnet,
		ContractAddress: contractAddress,
		BlockRange:      blockRange,
		MaxRetries:      maxRetries,
		RetryInterval:   time.Millisecond,
	}, tm.ethClient)
	require.NoError(t, err)
	return client
}

// rangeMatcher matches a filter query on its block range
type rangeMatcher struct {
	from, to uint64
}

func blockRange(from, to uint64) gomock.Matcher {
	return rangeMatcher{from: from, to: to}
}

func (m rangeMatcher) Matches(x interface{}) bool {
	q, ok := x.(ethereum.FilterQuery)
	if !ok || q.FromBlock == nil || q.ToBlock == nil {
		return false
	}
	return q.FromBlock.Uint64() == m.from && q.ToBlock.Uint64() == m.to
}

func (m rangeMatcher) String() string {
	return fmt.Sprintf("block range %d-%d", m.from, m.to)
}

func erc721Log(block uint64, index uint, txHash string, from, to common.Address, tokenID *big.Int) types.Log {
	return types.Log{
		Address: common.HexToAddress(contractAddress),
		Topics: []common.Hash{
			transferTopic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
			common.BigToHash(tokenID),
		},
		BlockNumber: block,
		TxHash:      common.HexToHash(txHash),
		Index:       index,
	}
}

func header(number int64) *types.Header {
	return &types.Header{Number: big.NewInt(number)}
}

func TestNewClient_InvalidContract(t *testing.T) {
	_, err := ethprovider.NewClient(ethprovider.Config{ContractAddress: "not-an-address"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ethprovider.ErrInvalidContractAddress))
}

func TestGetTransferEvents_ParsesAndSorts(t *testing.T) {
	tm := setupTestClient(t)
	defer tearDownTestClient(tm)

	// 2^63 + 5
	bigToken := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 63), big.NewInt(5))

	erc20 := types.Log{
		Address:     common.HexToAddress(contractAddress),
		Topics:      []common.Hash{transferTopic, common.BytesToHash(alice.Bytes()), common.BytesToHash(bob.Bytes())},
		BlockNumber: 11,
		TxHash:      common.HexToHash("0x03"),
	}

	tm.ethClient.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(header(100), nil)
	tm.ethClient.EXPECT().FilterLogs(gomock.Any(), blockRange(90, 100)).Return([]types.Log{
		erc721Log(12, 1, "0x02", alice, bob, big.NewInt(2)),
		erc721Log(10, 0, "0x01", common.Address{}, alice, bigToken),
		erc20,
		erc721Log(12, 0, "0x04", bob, alice, big.NewInt(4)),
	}, nil)

	client := newClient(t, tm, 0, 0)
	transfers, err := client.GetTransferEvents(context.Background(), 90)
	require.NoError(t, err)
	require.Len(t, transfers, 3)

	assert.Equal(t, uint64(10), transfers[0].BlockNumber)
	assert.Equal(t, common.HexToHash("0x01").Hex(), transfers[0].TransactionHash)
	assert.Equal(t, domain.ETHEREUM_ZERO_ADDRESS, transfers[0].From)
	assert.Equal(t, alice.Hex(), transfers[0].To)
	assert.Equal(t, "9223372036854775813", transfers[0].TokenID.String())

	assert.Equal(t, uint64(12), transfers[1].BlockNumber)
	assert.Equal(t, uint(0), transfers[1].LogIndex)
	assert.Equal(t, common.HexToHash("0x04").Hex(), transfers[1].TransactionHash)

	assert.Equal(t, uint64(12), transfers[2].BlockNumber)
	assert.Equal(t, uint(1), transfers[2].LogIndex)
}

func TestGetTransferEvents_FromBeyondHead(t *testing.T) {
	tm := setupTestClient(t)
	defer tearDownTestClient(tm)

	tm.ethClient.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(header(50), nil)

	client := newClient(t, tm, 0, 0)
	transfers, err := client.GetTransferEvents(context.Background(), 51)
	require.NoError(t, err)
	assert.Empty(t, transfers)
}

func TestGetTransferEvents_HalvesWindowOnTooManyResults(t *testing.T) {
	tm := setupTestClient(t)
	defer tearDownTestClient(tm)

	tm.ethClient.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(header(10), nil)
	gomock.InOrder(
		tm.ethClient.EXPECT().FilterLogs(gomock.Any(), blockRange(1, 10)).
			Return(nil, errors.New("query returned more than 10000 results")),
		tm.ethClient.EXPECT().FilterLogs(gomock.Any(), blockRange(1, 5)).
			Return([]types.Log{erc721Log(3, 0, "0x01", alice, bob, big.NewInt(1))}, nil),
		tm.ethClient.EXPECT().FilterLogs(gomock.Any(), blockRange(6, 10)).
			Return([]types.Log{erc721Log(7, 0, "0x02", bob, alice, big.NewInt(1))}, nil),
	)

	client := newClient(t, tm, 10, 1)
	transfers, err := client.GetTransferEvents(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	assert.Equal(t, uint64(3), transfers[0].BlockNumber)
	assert.Equal(t, uint64(7), transfers[1].BlockNumber)
}

func TestGetTransferEvents_RetriesTransientErrors(t *testing.T) {
	tm := setupTestClient(t)
	defer tearDownTestClient(tm)

	gomock.InOrder(
		tm.ethClient.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(nil, errors.New("connection reset")),
		tm.ethClient.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(header(5), nil),
	)
	gomock.InOrder(
		tm.ethClient.EXPECT().FilterLogs(gomock.Any(), blockRange(1, 5)).Return(nil, errors.New("503 service unavailable")),
		tm.ethClient.EXPECT().FilterLogs(gomock.Any(), blockRange(1, 5)).Return([]types.Log{}, nil),
	)

	client := newClient(t, tm, 0, 3)
	transfers, err := client.GetTransferEvents(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, transfers)
}

func TestGetTransferEvents_GivesUpAfterMaxRetries(t *testing.T) {
	tm := setupTestClient(t)
	defer tearDownTestClient(tm)

	tm.ethClient.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(header(5), nil)
	tm.ethClient.EXPECT().FilterLogs(gomock.Any(), blockRange(1, 5)).
		Return(nil, errors.New("503 service unavailable")).
		Times(3)

	client := newClient(t, tm, 0, 2)
	_, err := client.GetTransferEvents(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get logs for range 1-5")
}

func TestGetTransferEvents_LatestBlockError(t *testing.T) {
	tm := setupTestClient(t)
	defer tearDownTestClient(tm)

	tm.ethClient.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).
		Return(nil, errors.New("dial tcp: connection refused")).
		Times(2)

	client := newClient(t, tm, 0, 1)
	_, err := client.GetTransferEvents(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get latest block")
}

func TestGetTransferEvents_InvalidTopicCount(t *testing.T) {
	tm := setupTestClient(t)
	defer tearDownTestClient(tm)

	malformed := erc721Log(2, 0, "0x01", alice, bob, big.NewInt(1))
	malformed.Topics = append(malformed.Topics, common.Hash{})

	tm.ethClient.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(header(2), nil)
	tm.ethClient.EXPECT().FilterLogs(gomock.Any(), blockRange(1, 2)).Return([]types.Log{malformed}, nil)

	client := newClient(t, tm, 0, 0)
	_, err := client.GetTransferEvents(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 3 or 4 topics")
}

func TestClose(t *testing.T) {
	tm := setupTestClient(t)
	defer tearDownTestClient(tm)

	tm.ethClient.EXPECT().Close()

	client := newClient(t, tm, 0, 0)
	client.Close()
}
