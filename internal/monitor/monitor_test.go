package monitor_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-lambda-go/events"
	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-transfer-monitor/internal/domain"
	"github.com/feral-file/ff-transfer-monitor/internal/logger"
	"github.com/feral-file/ff-transfer-monitor/internal/metrics"
	"github.com/feral-file/ff-transfer-monitor/internal/mocks"
	"github.com/feral-file/ff-transfer-monitor/internal/monitor"
	"github.com/feral-file/ff-transfer-monitor/internal/store"
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

// testMonitorMocks contains all the mocks needed for testing the monitor
type testMonitorMocks struct {
	ctrl       *gomock.Controller
	source     *mocks.MockEthereumClient
	events     *mocks.MockTransferEventStore
	parameters *mocks.MockParameterStore
	clock      *mocks.MockClock
	registry   *prometheus.Registry
	metrics    *metrics.MonitorMetrics
}

// setupTestMonitor creates all the mocks for testing
func setupTestMonitor(t *testing.T) *testMonitorMocks {
	ctrl := gomock.NewController(t)

	registry := prometheus.NewRegistry()
	m, err := metrics.NewMonitorMetrics(registry)
	require.NoError(t, err)

	tm := &testMonitorMocks{
		ctrl:       ctrl,
		source:     mocks.NewMockEthereumClient(ctrl),
		events:     mocks.NewMockTransferEventStore(ctrl),
		parameters: mocks.NewMockParameterStore(ctrl),
		clock:      mocks.NewMockClock(ctrl),
		registry:   registry,
		metrics:    m,
	}

	tm.clock.EXPECT().Now().Return(time.Unix(1700000000, 0)).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(time.Second).AnyTimes()

	return tm
}

// tearDownTestMonitor cleans up the test mocks
func tearDownTestMonitor(mocks *testMonitorMocks) {
	mocks.ctrl.Finish()
}

func newMonitor(tm *testMonitorMocks, cfg monitor.Config) monitor.Monitor {
	cfg.ChainID = domain.ChainEthereumMainnet
	return monitor.NewMonitor(tm.source, tm.events, store.NewCursorStore(tm.parameters), tm.metrics, tm.clock, cfg)
}

func transfer(txHash string, block uint64, tokenID int64) domain.TransferLog {
	return domain.TransferLog{
		TransactionHash: txHash,
		BlockNumber:     block,
		From:            "0x1",
		To:              "0x2",
		TokenID:         big.NewInt(tokenID),
	}
}

func watermark(block string) *domain.Parameter {
	return &domain.Parameter{Name: domain.ParameterLastBlockChecked, Value: attributevalue.Number(block)}
}

func expectWatermarkSaved(tm *testMonitorMocks, block uint64) *gomock.Call {
	return tm.parameters.EXPECT().
		Save(gomock.Any(), domain.Parameter{Name: domain.ParameterLastBlockChecked, Value: block}).
		Return(&store.SaveResult{Operation: store.SaveOperationUpdate}, nil)
}

var inserted = &store.SaveResult{Operation: store.SaveOperationInsert}

func TestRun_SeedsFromStartBlockAndKeepsMaxBlock(t *testing.T) {
	tm := setupTestMonitor(t)
	defer tearDownTestMonitor(tm)

	tm.parameters.EXPECT().Get(gomock.Any(), domain.ParameterLastBlockChecked).Return(nil, nil)
	tm.source.EXPECT().GetTransferEvents(gomock.Any(), uint64(10)).Return([]domain.TransferLog{
		transfer("0xa", 10, 1),
		transfer("0xb", 12, 2),
		transfer("0xc", 11, 3),
	}, nil)
	gomock.InOrder(
		tm.events.EXPECT().Save(gomock.Any(), transfer("0xa", 10, 1).ToTransferEvent()).Return(inserted, nil),
		tm.events.EXPECT().Save(gomock.Any(), transfer("0xb", 12, 2).ToTransferEvent()).Return(inserted, nil),
		tm.events.EXPECT().Save(gomock.Any(), transfer("0xc", 11, 3).ToTransferEvent()).Return(inserted, nil),
		expectWatermarkSaved(tm, 12),
	)

	result, err := newMonitor(tm, monitor.Config{StartBlock: 9}).Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, uint64(10), result.FromBlock)
	assert.Equal(t, 3, result.EventsFound)
	assert.Equal(t, 3, result.EventsPersisted)
	assert.Equal(t, 3, result.Inserted)
	assert.Equal(t, uint64(12), result.LastBlockChecked)
	assert.True(t, result.WatermarkAdvanced)

	assert.Equal(t, float64(12), gatherGauge(t, tm.registry, "nft_monitor_last_block_checked"))
}

func TestRun_NoNewEventsLeavesWatermark(t *testing.T) {
	tm := setupTestMonitor(t)
	defer tearDownTestMonitor(tm)

	tm.parameters.EXPECT().Get(gomock.Any(), domain.ParameterLastBlockChecked).Return(watermark("12"), nil).Times(2)
	tm.source.EXPECT().GetTransferEvents(gomock.Any(), uint64(13)).Return([]domain.TransferLog{}, nil).Times(2)
	// No Save on either store

	m := newMonitor(tm, monitor.Config{StartBlock: 1})
	for i := 0; i < 2; i++ {
		result, err := m.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, result.EventsFound)
		assert.Equal(t, uint64(12), result.LastBlockChecked)
		assert.False(t, result.WatermarkAdvanced)
	}
}

func TestRun_SaveFailureKeepsWatermark(t *testing.T) {
	tm := setupTestMonitor(t)
	defer tearDownTestMonitor(tm)

	tm.parameters.EXPECT().Get(gomock.Any(), domain.ParameterLastBlockChecked).Return(watermark("9"), nil)
	tm.source.EXPECT().GetTransferEvents(gomock.Any(), uint64(10)).Return([]domain.TransferLog{
		transfer("0xa", 10, 1),
		transfer("0xb", 11, 2),
	}, nil)
	gomock.InOrder(
		tm.events.EXPECT().Save(gomock.Any(), gomock.Any()).Return(inserted, nil),
		tm.events.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil, errors.New("throttled")),
	)

	result, err := newMonitor(tm, monitor.Config{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save transfer event 0xb")
	assert.Equal(t, 1, result.EventsPersisted)
	assert.False(t, result.WatermarkAdvanced)
}

func TestRun_SourceFailure(t *testing.T) {
	tm := setupTestMonitor(t)
	defer tearDownTestMonitor(tm)

	tm.parameters.EXPECT().Get(gomock.Any(), gomock.Any()).Return(watermark("9"), nil)
	tm.source.EXPECT().GetTransferEvents(gomock.Any(), uint64(10)).Return(nil, errors.New("rpc down"))

	_, err := newMonitor(tm, monitor.Config{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc down")
}

func TestRun_WatermarkReadFailure(t *testing.T) {
	tm := setupTestMonitor(t)
	defer tearDownTestMonitor(tm)

	tm.parameters.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("no table"))

	_, err := newMonitor(tm, monitor.Config{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get block cursor")
}

func TestRun_ConcurrentPersist(t *testing.T) {
	tm := setupTestMonitor(t)
	defer tearDownTestMonitor(tm)

	tm.parameters.EXPECT().Get(gomock.Any(), gomock.Any()).Return(watermark("9"), nil)
	tm.source.EXPECT().GetTransferEvents(gomock.Any(), uint64(10)).Return([]domain.TransferLog{
		transfer("0xa", 10, 1),
		transfer("0xb", 11, 2),
		transfer("0xa", 10, 5),
		transfer("0xc", 14, 3),
	}, nil)

	var mu sync.Mutex
	saved := map[string]domain.TransferEvent{}
	tm.events.EXPECT().Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event domain.TransferEvent) (*store.SaveResult, error) {
			mu.Lock()
			defer mu.Unlock()
			saved[event.TransactionHash] = event
			return inserted, nil
		}).
		Times(3)
	expectWatermarkSaved(tm, 14)

	result, err := newMonitor(tm, monitor.Config{PersistConcurrency: 4}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, result.EventsFound)
	assert.Equal(t, 3, result.EventsPersisted)
	assert.Equal(t, uint64(14), result.LastBlockChecked)
	require.Len(t, saved, 3)
	assert.Equal(t, "5", saved["0xa"].TokenID)
}

func TestRun_ConcurrentPersistFailure(t *testing.T) {
	tm := setupTestMonitor(t)
	defer tearDownTestMonitor(tm)

	tm.parameters.EXPECT().Get(gomock.Any(), gomock.Any()).Return(watermark("9"), nil)
	tm.source.EXPECT().GetTransferEvents(gomock.Any(), uint64(10)).Return([]domain.TransferLog{
		transfer("0xa", 10, 1),
		transfer("0xb", 11, 2),
	}, nil)
	tm.events.EXPECT().Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event domain.TransferEvent) (*store.SaveResult, error) {
			if event.TransactionHash == "0xb" {
				return nil, errors.New("throttled")
			}
			return inserted, nil
		}).
		AnyTimes()
	// No watermark write

	result, err := newMonitor(tm, monitor.Config{PersistConcurrency: 2}).Run(context.Background())
	require.Error(t, err)
	assert.False(t, result.WatermarkAdvanced)
}

func TestRun_CountsUpdates(t *testing.T) {
	tm := setupTestMonitor(t)
	defer tearDownTestMonitor(tm)

	tm.parameters.EXPECT().Get(gomock.Any(), gomock.Any()).Return(watermark("9"), nil)
	tm.source.EXPECT().GetTransferEvents(gomock.Any(), uint64(10)).Return([]domain.TransferLog{
		transfer("0xa", 10, 1),
	}, nil)
	tm.events.EXPECT().Save(gomock.Any(), gomock.Any()).
		Return(&store.SaveResult{Operation: store.SaveOperationUpdate, Updated: store.Record{}}, nil)
	expectWatermarkSaved(tm, 10)

	result, err := newMonitor(tm, monitor.Config{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 1, result.Updated)
}

func TestScheduledHandler_SwallowsErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := mocks.NewMockMonitor(ctrl)
	m.EXPECT().Run(gomock.Any()).Return(&monitor.RunResult{RunID: "r1"}, errors.New("rpc down"))

	handler := monitor.NewScheduledHandler(m)
	err := handler(context.Background(), events.CloudWatchEvent{ID: "cdc73f9d-aea9-11e3-9d5a-835b769c0d9c"})
	assert.NoError(t, err)
}

func TestRunEvery_StopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := mocks.NewMockMonitor(ctrl)
	m.EXPECT().Run(gomock.Any()).Return(&monitor.RunResult{}, nil).Times(1)

	monitor.RunEvery(ctx, m, time.Hour)
}

func gatherGauge(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name && len(family.GetMetric()) > 0 {
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
