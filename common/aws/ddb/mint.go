package ddb

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ceramicnetwork/go-mint"
	"github.com/ceramicnetwork/go-mint/common"
	"github.com/ceramicnetwork/go-mint/models"
)

var _ models.MintRepository = &MintDatabase{}

type Client interface {
	tableClient
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

type MintDatabase struct {
	client   Client
	runTable string
	logger   models.Logger
}

func NewMintDb(ctx context.Context, logger models.Logger, client Client) *MintDatabase {
	runTable := fmt.Sprintf("%s-%s-run", common.ServiceName, os.Getenv(mint.Env_Env))
	mdb := MintDatabase{client, runTable, logger}
	if err := mdb.createRunTable(ctx); err != nil {
		logger.Fatalf("mint: table creation failed: %v", err)
	}
	return &mdb
}

func (mdb *MintDatabase) createRunTable(ctx context.Context) error {
	createTableInput := dynamodb.CreateTableInput{
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("id"),
				AttributeType: "S",
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("id"),
				KeyType:       "HASH",
			},
		},
		TableName: aws.String(mdb.runTable),
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(1),
			WriteCapacityUnits: aws.Int64(1),
		},
	}
	return createTable(ctx, mdb.logger, mdb.client, &createTableInput)
}

// CreateRun writes a new run record. It returns false without an error if a record with the same id already exists.
func (mdb *MintDatabase) CreateRun(ctx context.Context, run *models.MintRun) (bool, error) {
	return mdb.putRun(ctx, run, "attribute_not_exists(#id)")
}

func (mdb *MintDatabase) UpdateRun(ctx context.Context, run *models.MintRun) error {
	if updated, err := mdb.putRun(ctx, run, "attribute_exists(#id)"); err != nil {
		return err
	} else if !updated {
		return fmt.Errorf("mint: run %s not found", run.Id)
	}
	return nil
}

func (mdb *MintDatabase) putRun(ctx context.Context, run *models.MintRun, condition string) (bool, error) {
	if attributeValues, err := attributevalue.MarshalMap(run); err != nil {
		return false, err
	} else {
		putItemIn := dynamodb.PutItemInput{
			TableName:                aws.String(mdb.runTable),
			ConditionExpression:      aws.String(condition),
			ExpressionAttributeNames: map[string]string{"#id": "id"},
			Item:                     attributeValues,
		}

		httpCtx, httpCancel := context.WithTimeout(ctx, common.DefaultRpcWaitTime)
		defer httpCancel()

		if _, err = mdb.client.PutItem(httpCtx, &putItemIn); err != nil {
			var condCheckErr *types.ConditionalCheckFailedException
			if errors.As(err, &condCheckErr) {
				mdb.logger.Debugf("mint: conditional write of run %s skipped: %s", run.Id, condition)
				return false, nil
			}
			return false, err
		}
		return true, nil
	}
}

func (mdb *MintDatabase) GetRun(ctx context.Context, id string) (*models.MintRun, error) {
	getItemIn := dynamodb.GetItemInput{
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		TableName:      aws.String(mdb.runTable),
		ConsistentRead: aws.Bool(true),
	}

	httpCtx, httpCancel := context.WithTimeout(ctx, common.DefaultRpcWaitTime)
	defer httpCancel()

	if getItemOut, err := mdb.client.GetItem(httpCtx, &getItemIn); err != nil {
		return nil, err
	} else if getItemOut.Item == nil {
		return nil, nil
	} else {
		run := new(models.MintRun)
		if err = attributevalue.UnmarshalMap(getItemOut.Item, run); err != nil {
			return nil, err
		}
		return run, nil
	}
}
