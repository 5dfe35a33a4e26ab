package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/feral-file/ff-transfer-monitor/internal/adapter"
	"github.com/feral-file/ff-transfer-monitor/internal/domain"
)

const (
	// ParametersTable is the default parameters table name
	ParametersTable = "Parameters"

	parameterProjection = "#name, #value"
)

var parameterNames = map[string]string{
	"#name":  "name",
	"#value": "value",
}

// ParameterDescriptor returns the parameters table schema
func ParameterDescriptor(tableName string) TableDescriptor {
	if tableName == "" {
		tableName = ParametersTable
	}
	return TableDescriptor{
		Name:               tableName,
		PrimaryKey:         "name",
		KeyType:            types.ScalarAttributeTypeS,
		ReadCapacityUnits:  1,
		WriteCapacityUnits: 1,
	}
}

// ParameterDAO stores named parameters such as the last checked block
type ParameterDAO struct {
	*EntityDAO[domain.Parameter]
}

// NewParameterDAO creates a parameter DAO. An empty table name selects ParametersTable.
func NewParameterDAO(tableName string, dialer adapter.DynamoDBDialer, dynamo adapter.DynamoDBOptions, opts ...Option) (*ParameterDAO, error) {
	dao, err := NewEntityDAO[domain.Parameter](ParameterDescriptor(tableName), dialer, dynamo, opts...)
	if err != nil {
		return nil, err
	}
	return &ParameterDAO{EntityDAO: dao}, nil
}

// Get returns the named parameter, or nil when it was never saved
func (d *ParameterDAO) Get(ctx context.Context, name string) (*domain.Parameter, error) {
	return d.EntityDAO.Get(ctx, name, WithProjection(parameterProjection, parameterNames))
}

// GetAll scans every parameter
func (d *ParameterDAO) GetAll(ctx context.Context) ([]domain.Parameter, error) {
	return d.EntityDAO.GetAll(ctx, WithProjection(parameterProjection, parameterNames))
}

// compile-time checks
var (
	_ TransferEventStore = (*TransferEventDAO)(nil)
	_ ParameterStore     = (*ParameterDAO)(nil)
)
