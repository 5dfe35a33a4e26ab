package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/feral-file/ff-transfer-monitor/internal/adapter"
	"github.com/feral-file/ff-transfer-monitor/internal/domain"
)

const (
	// TransferEventsTable is the default transfer events table name
	TransferEventsTable = "NFTEvents"

	transferEventProjection = "transactionHash, blockNumber, #from, #to, tokenId"
)

// "from" and "to" are reserved words
var transferEventNames = map[string]string{
	"#from": "from",
	"#to":   "to",
}

// TransferEventDescriptor returns the transfer events table schema
func TransferEventDescriptor(tableName string) TableDescriptor {
	if tableName == "" {
		tableName = TransferEventsTable
	}
	return TableDescriptor{
		Name:               tableName,
		PrimaryKey:         "transactionHash",
		KeyType:            types.ScalarAttributeTypeS,
		ReadCapacityUnits:  1,
		WriteCapacityUnits: 1,
	}
}

// TransferEventDAO stores transfer events keyed by transaction hash
type TransferEventDAO struct {
	*EntityDAO[domain.TransferEvent]
}

// NewTransferEventDAO creates a transfer event DAO. An empty table name selects TransferEventsTable.
func NewTransferEventDAO(tableName string, dialer adapter.DynamoDBDialer, dynamo adapter.DynamoDBOptions, opts ...Option) (*TransferEventDAO, error) {
	dao, err := NewEntityDAO[domain.TransferEvent](TransferEventDescriptor(tableName), dialer, dynamo, opts...)
	if err != nil {
		return nil, err
	}
	return &TransferEventDAO{EntityDAO: dao}, nil
}

// Get returns the five event attributes, or nil when the hash is unknown
func (d *TransferEventDAO) Get(ctx context.Context, txHash string) (*domain.TransferEvent, error) {
	return d.EntityDAO.Get(ctx, txHash, WithProjection(transferEventProjection, transferEventNames))
}

// GetAll scans every transfer event
func (d *TransferEventDAO) GetAll(ctx context.Context) ([]domain.TransferEvent, error) {
	return d.EntityDAO.GetAll(ctx, WithProjection(transferEventProjection, transferEventNames))
}
