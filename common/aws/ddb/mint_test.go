package ddb

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/go-cmp/cmp"

	"github.com/ceramicnetwork/go-mint/common/loggers"
	"github.com/ceramicnetwork/go-mint/models"
)

type fakeDdbClient struct {
	items         map[string]map[string]types.AttributeValue
	tablesCreated int
}

func newFakeDdbClient() *fakeDdbClient {
	return &fakeDdbClient{items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeDdbClient) CreateTable(_ context.Context, _ *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.tablesCreated++
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeDdbClient) DescribeTable(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableStatus: types.TableStatusActive}}, nil
}

func (f *fakeDdbClient) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	id := in.Item["id"].(*types.AttributeValueMemberS).Value
	_, exists := f.items[id]
	switch *in.ConditionExpression {
	case "attribute_not_exists(#id)":
		if exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	case "attribute_exists(#id)":
		if !exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDdbClient) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	id := in.Key["id"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[id]}, nil
}

func TestMintDatabase(t *testing.T) {
	ctx := context.Background()
	client := newFakeDdbClient()
	mdb := NewMintDb(ctx, loggers.NewTestLogger(), client)
	if client.tablesCreated != 0 {
		t.Errorf("active table should not be recreated")
	}

	now := time.Unix(time.Now().Unix(), 0)
	run := &models.MintRun{
		Id:          "run-1",
		SessionId:   "session-1",
		Name:        "Cat",
		Description: "a cat astronaut",
		Stage:       models.Stage_Generating,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if created, err := mdb.CreateRun(ctx, run); err != nil || !created {
		t.Fatalf("create failed: %v, %v", created, err)
	}
	if created, err := mdb.CreateRun(ctx, run); err != nil || created {
		t.Errorf("duplicate create should be skipped: %v, %v", created, err)
	}

	run.Stage = models.Stage_Confirmed
	run.TokenUri = "https://ipfs.io/ipfs/bafy123/metadata.json"
	run.TxHash = "0xabc"
	if err := mdb.UpdateRun(ctx, run); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := mdb.UpdateRun(ctx, &models.MintRun{Id: "missing"}); err == nil {
		t.Errorf("update of a missing run should fail")
	}

	stored, err := mdb.GetRun(ctx, run.Id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if diff := cmp.Diff(run, stored); diff != "" {
		t.Errorf("stored run mismatch (-want +got):\n%s", diff)
	}
	if missing, err := mdb.GetRun(ctx, "missing"); err != nil || missing != nil {
		t.Errorf("missing run should be nil: %v, %v", missing, err)
	}
}
