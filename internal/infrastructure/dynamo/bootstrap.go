package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/time-capsule-api/internal/config"
	"go.uber.org/multierr"
)

// tableAdmin is the subset of *dynamodb.Client used to provision tables.
type tableAdmin interface {
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, in *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// tableDef describes one identity table. Every key attribute is a string.
type tableDef struct {
	name     string
	hashKey  string
	rangeKey string
	indexes  []string // hash-only GSIs, named "<attr>-index"
	ttlAttr  string
}

func identityTables(t config.DynamoTables) []tableDef {
	return []tableDef{
		{name: t.Users, hashKey: fieldUserID, indexes: []string{fieldUsername, fieldEmail, fieldGoogleSub}},
		{name: t.Sessions, hashKey: fieldSessionID, indexes: []string{fieldUserID, fieldRefreshToken}},
		{name: t.UserVerifications, hashKey: fieldUserID, rangeKey: fieldPurpose, ttlAttr: fieldTTL},
	}
}

// Bootstrap creates the identity tables and GSIs when missing. Existing tables are
// left alone; every other failure is collected and returned.
func Bootstrap(ctx context.Context, client tableAdmin, tables config.DynamoTables) error {
	var errs error
	for _, def := range identityTables(tables) {
		created, err := createTable(ctx, client, def.input())
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if created {
			slog.Info("created table", "table", def.name)
		}
		if def.ttlAttr != "" {
			errs = multierr.Append(errs, enableTTL(ctx, client, def.name, def.ttlAttr))
		}
	}
	return errs
}

func (d tableDef) input() *dynamodb.CreateTableInput {
	attrs := []string{d.hashKey}
	keys := []types.KeySchemaElement{{AttributeName: aws.String(d.hashKey), KeyType: types.KeyTypeHash}}
	if d.rangeKey != "" {
		attrs = append(attrs, d.rangeKey)
		keys = append(keys, types.KeySchemaElement{AttributeName: aws.String(d.rangeKey), KeyType: types.KeyTypeRange})
	}

	var indexes []types.GlobalSecondaryIndex
	for _, attr := range d.indexes {
		if attr != d.hashKey {
			attrs = append(attrs, attr)
		}
		indexes = append(indexes, gsi(attr+"-index", attr, ""))
	}

	defs := make([]types.AttributeDefinition, len(attrs))
	for i, a := range attrs {
		defs[i] = types.AttributeDefinition{AttributeName: aws.String(a), AttributeType: types.ScalarAttributeTypeS}
	}
	return &dynamodb.CreateTableInput{
		TableName:              aws.String(d.name),
		BillingMode:            types.BillingModePayPerRequest,
		AttributeDefinitions:   defs,
		KeySchema:              keys,
		GlobalSecondaryIndexes: indexes,
	}
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKey, sortKey string) types.GlobalSecondaryIndex {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange,
		})
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(indexName),
		KeySchema:  ks,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client tableAdmin, input *dynamodb.CreateTableInput) (bool, error) {
	if _, err := client.CreateTable(ctx, input); err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return false, nil
		}
		return false, fmt.Errorf("create table %s: %w", aws.ToString(input.TableName), err)
	}
	return true, nil
}

func enableTTL(ctx context.Context, client tableAdmin, tableName, ttlAttr string) error {
	_, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(ttlAttr),
		},
	})
	if err != nil {
		return fmt.Errorf("enable ttl on %s: %w", tableName, err)
	}
	return nil
}
