package store

import (
	"errors"
	"fmt"
)

var (
	// ErrTableNameRequired is returned when a table descriptor has no table name
	ErrTableNameRequired = errors.New("table name is required")

	// ErrTableDescriptorRequired is returned when provisioning without a table descriptor
	ErrTableDescriptorRequired = errors.New("table descriptor is required")

	// ErrClientRequired is returned when a data operation runs before Connect
	ErrClientRequired = errors.New("client is required, call Connect first")

	// ErrKeyRequired is returned when the primary key value is missing or empty
	ErrKeyRequired = errors.New("primary key value is required")

	// ErrEntityRequired is returned when saving an empty entity
	ErrEntityRequired = errors.New("entity is required")

	// ErrNothingToUpdate is returned when an update carries no attribute besides the primary key
	ErrNothingToUpdate = errors.New("nothing to update")
)

// OperationError wraps a DynamoDB failure with the operation, table and key involved
type OperationError struct {
	Op    string
	Table string
	Key   string
	Err   error
}

func (e *OperationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("failed to %s %s item '%s': %v", e.Op, e.Table, e.Key, e.Err)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
