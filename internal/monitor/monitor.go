package monitor

import (
	"context"
	"fmt"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-monitor/internal/adapter"
	"github.com/feral-file/ff-transfer-monitor/internal/domain"
	"github.com/feral-file/ff-transfer-monitor/internal/logger"
	"github.com/feral-file/ff-transfer-monitor/internal/metrics"
	"github.com/feral-file/ff-transfer-monitor/internal/providers/ethereum"
	"github.com/feral-file/ff-transfer-monitor/internal/store"
)

// Config holds the configuration for the transfer monitor
type Config struct {
	ChainID domain.Chain
	// StartBlock seeds the watermark when none was saved yet, the first query starts right after it
	StartBlock uint64
	// PersistConcurrency is the number of events saved in parallel, 1 or less saves sequentially
	PersistConcurrency int
}

// RunResult summarises one poll
type RunResult struct {
	RunID            string
	FromBlock        uint64
	EventsFound      int
	EventsPersisted  int
	Inserted         int
	Updated          int
	LastBlockChecked uint64
	// WatermarkAdvanced is true when the watermark was written by this run
	WatermarkAdvanced bool
}

// Monitor polls the contract for new transfers
//
//go:generate mockgen -source=monitor.go -destination=../mocks/monitor.go -package=mocks -mock_names=Monitor=MockMonitor
type Monitor interface {
	// Run fetches the transfers after the watermark, saves them and advances the watermark.
	// The watermark is written only when at least one event was found and every save succeeded.
	Run(ctx context.Context) (*RunResult, error)
}

// monitor does not exclude overlapping runs. A slower run finishing last can
// move the watermark back to a lower block; the next runs then re-save the
// same events, which is harmless since saves are idempotent per transaction hash.
type monitor struct {
	source   ethereum.Client
	events   store.TransferEventStore
	cursor   store.CursorStore
	recorder metrics.Recorder
	clock    adapter.Clock
	config   Config
}

// NewMonitor creates a new transfer monitor
func NewMonitor(
	source ethereum.Client,
	events store.TransferEventStore,
	cursor store.CursorStore,
	recorder metrics.Recorder,
	clock adapter.Clock,
	cfg Config,
) Monitor {
	if recorder == nil {
		recorder = metrics.NewNopRecorder()
	}
	return &monitor{
		source:   source,
		events:   events,
		cursor:   cursor,
		recorder: recorder,
		clock:    clock,
		config:   cfg,
	}
}

// Run performs one poll
func (m *monitor) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{RunID: uuid.NewString()}
	ctx = logger.WithFields(ctx,
		zap.String("run_id", result.RunID),
		zap.String("chain", string(m.config.ChainID)))

	start := m.clock.Now()
	err := m.run(ctx, result)
	duration := m.clock.Since(start)

	switch {
	case err != nil:
		m.recorder.ObserveRun(metrics.RunResultError, duration)
	case result.EventsFound == 0:
		m.recorder.ObserveRun(metrics.RunResultEmpty, duration)
	default:
		m.recorder.ObserveRun(metrics.RunResultSuccess, duration)
	}
	m.recorder.AddEventsPersisted(result.EventsPersisted)

	if err != nil {
		return result, err
	}

	logger.InfoCtx(ctx, "Monitor run completed",
		zap.Uint64("fromBlock", result.FromBlock),
		zap.Int("found", result.EventsFound),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Uint64("lastBlockChecked", result.LastBlockChecked),
		zap.Duration("duration", duration))

	return result, nil
}

func (m *monitor) run(ctx context.Context, result *RunResult) error {
	// Determine the watermark
	watermark, found, err := m.cursor.GetBlockCursor(ctx)
	if err != nil {
		return err
	}
	if !found {
		watermark = m.config.StartBlock
		logger.InfoCtx(ctx, "No watermark saved, starting from configured block", zap.Uint64("block", watermark))
	}
	result.LastBlockChecked = watermark
	result.FromBlock = watermark + 1

	transfers, err := m.source.GetTransferEvents(ctx, result.FromBlock)
	if err != nil {
		return fmt.Errorf("failed to get transfer events from block %d: %w", result.FromBlock, err)
	}
	result.EventsFound = len(transfers)

	if len(transfers) == 0 {
		logger.InfoCtx(ctx, "No transfer events detected", zap.Uint64("fromBlock", result.FromBlock))
		return nil
	}

	// The highest block seen, not the last one, since the source order is not trusted
	highest := watermark
	for _, t := range transfers {
		if t.BlockNumber > highest {
			highest = t.BlockNumber
		}
	}

	if err := m.persist(ctx, transfers, result); err != nil {
		return err
	}

	if err := m.cursor.SetBlockCursor(ctx, highest); err != nil {
		return err
	}
	result.LastBlockChecked = highest
	result.WatermarkAdvanced = true
	m.recorder.SetWatermark(highest)

	return nil
}

// persist saves every transfer, sequentially or through a worker pool
func (m *monitor) persist(ctx context.Context, transfers []domain.TransferLog, result *RunResult) error {
	if m.config.PersistConcurrency <= 1 {
		for _, t := range transfers {
			if err := m.save(ctx, t.ToTransferEvent(), result, nil); err != nil {
				return err
			}
		}
		return nil
	}

	// Two transfers in one transaction share a key. Keep the last one in source
	// order so the stored record does not depend on worker scheduling.
	events := dedupeByTransaction(transfers)

	pool := pond.NewPool(m.config.PersistConcurrency, pond.WithContext(ctx))
	defer pool.StopAndWait()

	var mu sync.Mutex
	group := pool.NewGroup()
	for _, event := range events {
		group.SubmitErr(func() error {
			return m.save(ctx, event, result, &mu)
		})
	}

	return group.Wait()
}

func (m *monitor) save(ctx context.Context, event domain.TransferEvent, result *RunResult, mu *sync.Mutex) error {
	saved, err := m.events.Save(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to save transfer event %s: %w", event.TransactionHash, err)
	}

	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}
	result.EventsPersisted++
	if saved != nil && saved.Operation == store.SaveOperationUpdate {
		result.Updated++
	} else {
		result.Inserted++
	}

	logger.DebugCtx(ctx, "Persisted transfer event",
		zap.String("txHash", event.TransactionHash),
		zap.Uint64("blockNumber", event.BlockNumber))

	return nil
}

func dedupeByTransaction(transfers []domain.TransferLog) []domain.TransferEvent {
	index := make(map[string]int, len(transfers))
	events := make([]domain.TransferEvent, 0, len(transfers))
	for _, t := range transfers {
		if i, ok := index[t.TransactionHash]; ok {
			events[i] = t.ToTransferEvent()
			continue
		}
		index[t.TransactionHash] = len(events)
		events = append(events, t.ToTransferEvent())
	}
	return events
}
