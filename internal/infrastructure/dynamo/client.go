package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/time-capsule-api/internal/config"
	"github.com/time-capsule-api/internal/infrastructure/awsconf"
)

// NewClient creates the DynamoDB client for the identity tables. AWS_ENDPOINT_URL
// points it at LocalStack in development.
func NewClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	awsCfg, err := awsconf.Load(ctx, cfg, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = awsconf.Endpoint(cfg)
	}), nil
}
