package storage

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ceramicnetwork/go-mint"
	"github.com/ceramicnetwork/go-mint/common/loggers"
	"github.com/ceramicnetwork/go-mint/models"
)

type fakeS3Client struct {
	bucket, key, contentType string
	body                     []byte
}

func (f *fakeS3Client) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.bucket = *in.Bucket
	f.key = *in.Key
	f.contentType = *in.ContentType
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestStore(t *testing.T) {
	t.Setenv(mint.Env_Env, "dev")
	client := &fakeS3Client{}
	store := NewS3Store(loggers.NewTestLogger(), client)

	receipt := models.StorageReceipt{Cid: "bafy123", MetadataUrl: "https://ipfs.io/ipfs/bafy123/metadata.json"}
	if err := store.Store(context.Background(), RunKey("run-1"), receipt); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if client.bucket != "nft-minter-dev-mints" {
		t.Errorf("unexpected bucket %s", client.bucket)
	}
	if client.key != "mints/run-1.json" {
		t.Errorf("unexpected key %s", client.key)
	}
	if client.contentType != "application/json" {
		t.Errorf("unexpected content type %s", client.contentType)
	}
	stored := models.StorageReceipt{}
	if err := json.Unmarshal(client.body, &stored); err != nil {
		t.Fatalf("stored body is not json: %v", err)
	}
	if stored != receipt {
		t.Errorf("stored %+v, expected %+v", stored, receipt)
	}
}
