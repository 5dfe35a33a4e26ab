package adapter

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoDBClient defines the subset of DynamoDB operations used by the store
//
//go:generate mockgen -source=dynamodb.go -destination=../mocks/dynamodb.go -package=mocks -mock_names=DynamoDBClient=MockDynamoDBClient,DynamoDBDialer=MockDynamoDBDialer
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoDBOptions holds what is needed to reach a DynamoDB endpoint
type DynamoDBOptions struct {
	Region string
	// Endpoint overrides the AWS endpoint, e.g. for DynamoDB Local
	Endpoint string
	// Static credentials, only used when both are set
	AccessKeyID     string
	SecretAccessKey string
}

// DynamoDBDialer defines an interface for creating DynamoDB clients
type DynamoDBDialer interface {
	Dial(ctx context.Context, opts DynamoDBOptions) (DynamoDBClient, error)
}

// RealDynamoDBDialer implements DynamoDBDialer using the AWS SDK default credential chain
type RealDynamoDBDialer struct{}

// NewDynamoDBDialer creates a new real DynamoDB dialer
func NewDynamoDBDialer() DynamoDBDialer {
	return &RealDynamoDBDialer{}
}

func (d *RealDynamoDBDialer) Dial(ctx context.Context, opts DynamoDBOptions) (DynamoDBClient, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}
