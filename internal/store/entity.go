package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-monitor/internal/adapter"
	"github.com/feral-file/ff-transfer-monitor/internal/logger"
)

const defaultTableActiveTimeout = 30 * time.Second

// Record is an untyped item, attribute name to native value.
// Numbers decode as attributevalue.Number to keep their exact representation.
type Record map[string]any

// SaveOperation tells which branch of an upsert was taken
type SaveOperation string

const (
	SaveOperationInsert SaveOperation = "insert"
	SaveOperationUpdate SaveOperation = "update"
)

// SaveResult is the outcome of Save
type SaveResult struct {
	Operation SaveOperation
	// Updated holds the attributes written by an update (UPDATED_NEW), nil on insert
	Updated Record
}

// ReadOption customises Get and GetAll
type ReadOption func(*readOptions)

type readOptions struct {
	projection string
	names      map[string]string
}

// WithProjection restricts the returned attributes to a comma separated list.
// names maps "#alias" tokens used in the projection to attribute names.
func WithProjection(projection string, names map[string]string) ReadOption {
	return func(o *readOptions) {
		o.projection = projection
		o.names = names
	}
}

// Option configures an EntityDAO
type Option func(*entityConfig)

type entityConfig struct {
	builder            ExpressionBuilder
	tableActiveTimeout time.Duration
}

// WithExpressionBuilder replaces the update expression builder
func WithExpressionBuilder(builder ExpressionBuilder) Option {
	return func(c *entityConfig) {
		c.builder = builder
	}
}

// WithTableActiveTimeout bounds the wait for a newly created table to become active
func WithTableActiveTimeout(timeout time.Duration) Option {
	return func(c *entityConfig) {
		c.tableActiveTimeout = timeout
	}
}

// EntityDAO gives get, scan and upsert access to one DynamoDB table.
//
// Save is a read-then-write upsert and is not atomic: two writers racing on the same
// key both succeed and the last one wins. There is no optimistic concurrency control.
type EntityDAO[T any] struct {
	descriptor TableDescriptor
	dialer     adapter.DynamoDBDialer
	dynamo     adapter.DynamoDBOptions
	config     entityConfig

	client adapter.DynamoDBClient
}

// NewEntityDAO creates a DAO for the described table. Connect must be called before use.
func NewEntityDAO[T any](descriptor TableDescriptor, dialer adapter.DynamoDBDialer, dynamo adapter.DynamoDBOptions, opts ...Option) (*EntityDAO[T], error) {
	if descriptor.Name == "" {
		return nil, ErrTableNameRequired
	}

	cfg := entityConfig{
		builder:            NewExpressionBuilder(),
		tableActiveTimeout: defaultTableActiveTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &EntityDAO[T]{
		descriptor: descriptor,
		dialer:     dialer,
		dynamo:     dynamo,
		config:     cfg,
	}, nil
}

// TableName returns the table name
func (d *EntityDAO[T]) TableName() string {
	return d.descriptor.Name
}

// PrimaryKey returns the primary key attribute name
func (d *EntityDAO[T]) PrimaryKey() string {
	return d.descriptor.primaryKey()
}

// Connect creates the DynamoDB client and the table when it does not exist.
// It returns true if the table was created, false if it already existed.
func (d *EntityDAO[T]) Connect(ctx context.Context) (bool, error) {
	client, err := d.dialer.Dial(ctx, d.dynamo)
	if err != nil {
		return false, fmt.Errorf("failed to connect to DynamoDB: %w", err)
	}
	d.client = client

	return d.createTable(ctx)
}

// Get fetches an item by primary key. Without a projection only the primary key is
// returned. A missing item yields nil and no error.
func (d *EntityDAO[T]) Get(ctx context.Context, key string, opts ...ReadOption) (*T, error) {
	item, err := d.getItem(ctx, key, opts...)
	if err != nil || item == nil {
		return nil, err
	}

	var entity T
	if err := unmarshalItem(item, &entity); err != nil {
		return nil, &OperationError{Op: "decode", Table: d.descriptor.Name, Key: key, Err: err}
	}

	return &entity, nil
}

// GetAll scans the whole table. Without a projection every attribute is returned.
// Items come back in the store's internal order.
func (d *EntityDAO[T]) GetAll(ctx context.Context, opts ...ReadOption) ([]T, error) {
	if d.client == nil {
		return nil, ErrClientRequired
	}

	var ro readOptions
	for _, opt := range opts {
		opt(&ro)
	}

	input := &dynamodb.ScanInput{
		TableName: aws.String(d.descriptor.Name),
	}
	if ro.projection != "" {
		input.ProjectionExpression = aws.String(ro.projection)
	}
	if len(ro.names) > 0 {
		input.ExpressionAttributeNames = ro.names
	}

	entities := make([]T, 0)
	for {
		out, err := d.client.Scan(ctx, input)
		if err != nil {
			return nil, &OperationError{Op: "scan", Table: d.descriptor.Name, Err: err}
		}

		for _, item := range out.Items {
			var entity T
			if err := unmarshalItem(item, &entity); err != nil {
				return nil, &OperationError{Op: "decode", Table: d.descriptor.Name, Err: err}
			}
			entities = append(entities, entity)
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	return entities, nil
}

// Save inserts the entity when its key is absent, otherwise updates every supplied
// attribute and leaves the others untouched.
func (d *EntityDAO[T]) Save(ctx context.Context, entity T) (*SaveResult, error) {
	if d.client == nil {
		return nil, ErrClientRequired
	}

	item, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s entity: %w", d.descriptor.Name, err)
	}
	if len(item) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEntityRequired, d.descriptor.Name)
	}

	key, err := d.keyValue(item)
	if err != nil {
		return nil, err
	}

	existing, err := d.getItem(ctx, key)
	if err != nil {
		return nil, &OperationError{Op: "save", Table: d.descriptor.Name, Key: key, Err: err}
	}

	if existing == nil {
		return d.put(ctx, key, item)
	}
	return d.update(ctx, key, item)
}

// Delete removes an item by primary key. Deleting a missing item is not an error.
func (d *EntityDAO[T]) Delete(ctx context.Context, key string) error {
	if d.client == nil {
		return ErrClientRequired
	}
	if key == "" {
		return fmt.Errorf("%w: %s", ErrKeyRequired, d.descriptor.primaryKey())
	}

	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.descriptor.Name),
		Key:       d.descriptor.keyOf(key),
	})
	if err != nil {
		return &OperationError{Op: "delete", Table: d.descriptor.Name, Key: key, Err: err}
	}

	return nil
}

func (d *EntityDAO[T]) getItem(ctx context.Context, key string, opts ...ReadOption) (map[string]types.AttributeValue, error) {
	if d.client == nil {
		return nil, ErrClientRequired
	}
	if key == "" {
		return nil, fmt.Errorf("%w: %s", ErrKeyRequired, d.descriptor.primaryKey())
	}

	// The key itself may be a reserved word (e.g. "name"), so the default
	// projection goes through an alias.
	ro := readOptions{
		projection: "#pk",
		names:      map[string]string{"#pk": d.descriptor.primaryKey()},
	}
	for _, opt := range opts {
		opt(&ro)
	}

	input := &dynamodb.GetItemInput{
		TableName: aws.String(d.descriptor.Name),
		Key:       d.descriptor.keyOf(key),
	}
	if ro.projection != "" {
		input.ProjectionExpression = aws.String(ro.projection)
	}
	if len(ro.names) > 0 {
		input.ExpressionAttributeNames = ro.names
	}

	out, err := d.client.GetItem(ctx, input)
	if err != nil {
		return nil, &OperationError{Op: "get", Table: d.descriptor.Name, Key: key, Err: err}
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	return out.Item, nil
}

func (d *EntityDAO[T]) put(ctx context.Context, key string, item map[string]types.AttributeValue) (*SaveResult, error) {
	logger.DebugCtx(ctx, "Inserting item",
		zap.String("table", d.descriptor.Name),
		zap.String("key", key))

	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.descriptor.Name),
		Item:      item,
	})
	if err != nil {
		return nil, &OperationError{Op: "save", Table: d.descriptor.Name, Key: key, Err: err}
	}

	return &SaveResult{Operation: SaveOperationInsert}, nil
}

func (d *EntityDAO[T]) update(ctx context.Context, key string, item map[string]types.AttributeValue) (*SaveResult, error) {
	pk := d.descriptor.primaryKey()
	expr, err := d.config.builder.BuildUpdate(pk, item)
	if errors.Is(err, ErrNothingToUpdate) {
		// Only the key was supplied and it already exists
		return &SaveResult{Operation: SaveOperationUpdate, Updated: Record{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build update expression for %s: %w", d.descriptor.Name, err)
	}

	logger.DebugCtx(ctx, "Updating item",
		zap.String("table", d.descriptor.Name),
		zap.String("key", key),
		zap.String("expression", expr.Expression))

	out, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(d.descriptor.Name),
		Key:                       map[string]types.AttributeValue{pk: item[pk]},
		UpdateExpression:          aws.String(expr.Expression),
		ExpressionAttributeNames:  expr.Names,
		ExpressionAttributeValues: expr.Values,
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return nil, &OperationError{Op: "save", Table: d.descriptor.Name, Key: key, Err: err}
	}

	updated := Record{}
	if len(out.Attributes) > 0 {
		if err := unmarshalItem(out.Attributes, &updated); err != nil {
			return nil, &OperationError{Op: "decode", Table: d.descriptor.Name, Key: key, Err: err}
		}
	}

	return &SaveResult{Operation: SaveOperationUpdate, Updated: updated}, nil
}

// keyValue extracts the primary key value of an encoded item
func (d *EntityDAO[T]) keyValue(item map[string]types.AttributeValue) (string, error) {
	pk := d.descriptor.primaryKey()

	switch v := item[pk].(type) {
	case *types.AttributeValueMemberS:
		if v.Value != "" {
			return v.Value, nil
		}
	case *types.AttributeValueMemberN:
		if v.Value != "" {
			return v.Value, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrKeyRequired, pk)
}

// createTable provisions the table unless it already exists
func (d *EntityDAO[T]) createTable(ctx context.Context) (bool, error) {
	if d.descriptor.Name == "" {
		return false, ErrTableDescriptorRequired
	}

	exists, err := d.tableExists(ctx)
	if err != nil {
		return false, &OperationError{Op: "list tables for", Table: d.descriptor.Name, Err: err}
	}
	if exists {
		return false, nil
	}

	_, err = d.client.CreateTable(ctx, d.descriptor.CreateTableInput())
	if err != nil {
		// Someone else created it between the listing and now
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return false, nil
		}
		return false, &OperationError{Op: "create table", Table: d.descriptor.Name, Err: err}
	}

	if err := d.waitForActive(ctx); err != nil {
		return false, &OperationError{Op: "wait for table", Table: d.descriptor.Name, Err: err}
	}

	logger.InfoCtx(ctx, "Created DynamoDB table",
		zap.String("table", d.descriptor.Name),
		zap.String("primary_key", d.descriptor.primaryKey()))

	return true, nil
}

func (d *EntityDAO[T]) tableExists(ctx context.Context) (bool, error) {
	input := &dynamodb.ListTablesInput{}
	for {
		out, err := d.client.ListTables(ctx, input)
		if err != nil {
			return false, err
		}

		if slices.Contains(out.TableNames, d.descriptor.Name) {
			return true, nil
		}

		if out.LastEvaluatedTableName == nil {
			return false, nil
		}
		input.ExclusiveStartTableName = out.LastEvaluatedTableName
	}
}

func (d *EntityDAO[T]) waitForActive(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = d.config.tableActiveTimeout

	operation := func() error {
		out, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(d.descriptor.Name),
		})
		if err != nil {
			return err
		}
		if out.Table == nil || out.Table.TableStatus != types.TableStatusActive {
			return fmt.Errorf("table %s is not active yet", d.descriptor.Name)
		}
		return nil
	}

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

func unmarshalItem(item map[string]types.AttributeValue, out any) error {
	return attributevalue.UnmarshalMapWithOptions(item, out, func(o *attributevalue.DecoderOptions) {
		o.UseNumber = true
	})
}
