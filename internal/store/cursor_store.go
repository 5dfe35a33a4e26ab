package store

import (
	"context"
	"fmt"

	"github.com/feral-file/ff-transfer-monitor/internal/domain"
)

// CursorStore defines the interface for storing and retrieving the block watermark
type CursorStore interface {
	// GetBlockCursor retrieves the last checked block number, found is false when none was saved
	GetBlockCursor(ctx context.Context) (blockNumber uint64, found bool, err error)
	// SetBlockCursor stores the last checked block number
	SetBlockCursor(ctx context.Context, blockNumber uint64) error
}

type cursorStore struct {
	parameters ParameterStore
	name       string
}

// NewCursorStore creates a cursor store kept in the lastBlockChecked parameter
func NewCursorStore(parameters ParameterStore) CursorStore {
	return &cursorStore{parameters: parameters, name: domain.ParameterLastBlockChecked}
}

// GetBlockCursor retrieves the last checked block number
func (s *cursorStore) GetBlockCursor(ctx context.Context) (uint64, bool, error) {
	parameter, err := s.parameters.Get(ctx, s.name)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get block cursor: %w", err)
	}
	if parameter == nil {
		return 0, false, nil
	}

	blockNumber, err := parameter.Uint64()
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse block cursor: %w", err)
	}

	return blockNumber, true, nil
}

// SetBlockCursor stores the last checked block number
func (s *cursorStore) SetBlockCursor(ctx context.Context, blockNumber uint64) error {
	_, err := s.parameters.Save(ctx, domain.Parameter{
		Name:  s.name,
		Value: blockNumber,
	})
	if err != nil {
		return fmt.Errorf("failed to set block cursor: %w", err)
	}

	return nil
}
