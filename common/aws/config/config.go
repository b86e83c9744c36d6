package config

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/ceramicnetwork/go-mint"
	"github.com/ceramicnetwork/go-mint/common"
	"github.com/ceramicnetwork/go-mint/models"
)

// AwsConfig loads the default AWS configuration, pointing every client at AWS_ENDPOINT when it is set (e.g. for
// localstack).
func AwsConfig(ctx context.Context, logger models.Logger) (aws.Config, error) {
	httpCtx, httpCancel := context.WithTimeout(ctx, common.DefaultRpcWaitTime)
	defer httpCancel()

	region := os.Getenv(mint.Env_AwsRegion)
	if awsEndpoint, found := os.LookupEnv(mint.Env_AwsEndpoint); found && len(awsEndpoint) > 0 {
		logger.Infof("config: using custom aws endpoint: %s", awsEndpoint)
		endpointResolver := aws.EndpointResolverWithOptionsFunc(func(service, _ string, _ ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				PartitionID:       "aws",
				URL:               awsEndpoint,
				SigningRegion:     region,
				HostnameImmutable: true,
			}, nil
		})
		return config.LoadDefaultConfig(httpCtx, config.WithRegion(region), config.WithEndpointResolverWithOptions(endpointResolver))
	}
	return config.LoadDefaultConfig(httpCtx, config.WithRegion(region))
}
