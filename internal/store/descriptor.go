package store

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const defaultPrimaryKey = "id"

// TableDescriptor describes a single-key table
type TableDescriptor struct {
	Name       string
	PrimaryKey string
	// KeyType is the primary key attribute type, S when empty
	KeyType            types.ScalarAttributeType
	ReadCapacityUnits  int64
	WriteCapacityUnits int64
}

func (d TableDescriptor) primaryKey() string {
	if d.PrimaryKey == "" {
		return defaultPrimaryKey
	}
	return d.PrimaryKey
}

func (d TableDescriptor) keyType() types.ScalarAttributeType {
	if d.KeyType == "" {
		return types.ScalarAttributeTypeS
	}
	return d.KeyType
}

// CreateTableInput returns the request that provisions the table.
// Tables without capacity hints are created on-demand.
func (d TableDescriptor) CreateTableInput() *dynamodb.CreateTableInput {
	input := &dynamodb.CreateTableInput{
		TableName: aws.String(d.Name),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(d.primaryKey()), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(d.primaryKey()), AttributeType: d.keyType()},
		},
	}

	if d.ReadCapacityUnits > 0 && d.WriteCapacityUnits > 0 {
		input.BillingMode = types.BillingModeProvisioned
		input.ProvisionedThroughput = &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(d.ReadCapacityUnits),
			WriteCapacityUnits: aws.Int64(d.WriteCapacityUnits),
		}
	} else {
		input.BillingMode = types.BillingModePayPerRequest
	}

	return input
}

// keyOf builds the key attribute for a primary key value
func (d TableDescriptor) keyOf(value string) map[string]types.AttributeValue {
	var av types.AttributeValue
	if d.keyType() == types.ScalarAttributeTypeN {
		av = &types.AttributeValueMemberN{Value: value}
	} else {
		av = &types.AttributeValueMemberS{Value: value}
	}
	return map[string]types.AttributeValue{d.primaryKey(): av}
}
