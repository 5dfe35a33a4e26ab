package store

import (
	"context"

	"github.com/feral-file/ff-transfer-monitor/internal/domain"
)

// TransferEventStore defines the persistence operations for transfer events
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=TransferEventStore=MockTransferEventStore,ParameterStore=MockParameterStore
type TransferEventStore interface {
	// Get returns the transfer event recorded for a transaction hash, nil if none
	Get(ctx context.Context, txHash string) (*domain.TransferEvent, error)
	// GetAll returns every stored transfer event
	GetAll(ctx context.Context) ([]domain.TransferEvent, error)
	// Save upserts a transfer event by transaction hash
	Save(ctx context.Context, event domain.TransferEvent) (*SaveResult, error)
}

// ParameterStore defines the persistence operations for named parameters
type ParameterStore interface {
	// Get returns the named parameter, nil if it was never saved
	Get(ctx context.Context, name string) (*domain.Parameter, error)
	// Save upserts a parameter by name
	Save(ctx context.Context, parameter domain.Parameter) (*SaveResult, error)
}
