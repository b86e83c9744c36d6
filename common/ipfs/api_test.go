package ipfs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/ipfs/boxo/coreiface/options"
	"github.com/ipfs/boxo/coreiface/path"
	"github.com/ipfs/boxo/files"
	"github.com/ipfs/go-cid"

	"github.com/ceramicnetwork/go-mint/common/loggers"
	"github.com/ceramicnetwork/go-mint/models"
)

type fakeUnixfs struct {
	mu    sync.Mutex
	added map[string][]byte
	cids  []string
	err   error
}

func (f *fakeUnixfs) Add(_ context.Context, node files.Node, _ ...options.UnixfsAddOption) (path.Resolved, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	dir, ok := node.(files.Directory)
	if !ok {
		return nil, errors.New("expected a directory")
	}
	it := dir.Entries()
	for it.Next() {
		data, err := io.ReadAll(files.ToFile(it.Node()))
		if err != nil {
			return nil, err
		}
		f.added[it.Name()] = data
	}
	c, err := cid.Prefix{Version: 1, Codec: cid.DagProtobuf, MhType: 0x12, MhLength: -1}.Sum([]byte{byte(len(f.cids))})
	if err != nil {
		return nil, err
	}
	f.cids = append(f.cids, c.String())
	return path.IpfsPath(c), nil
}

type fakeMetricService struct {
	mu     sync.Mutex
	counts map[models.MetricName]int
}

func (f *fakeMetricService) Count(_ context.Context, name models.MetricName, val int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[name] += val
	return nil
}

func (f *fakeMetricService) Distribution(_ context.Context, _ models.MetricName, _ int) error {
	return nil
}

func (f *fakeMetricService) Shutdown(_ context.Context) {}

func TestStore(t *testing.T) {
	unixfs := &fakeUnixfs{added: make(map[string][]byte)}
	metricService := &fakeMetricService{counts: make(map[models.MetricName]int)}
	ipfs := NewIpfsApiWithUnixfs(loggers.NewTestLogger(), "/ip4/127.0.0.1/tcp/5001", "ipfs.io", unixfs, metricService)

	image := &models.GeneratedImage{Data: []byte{0xff, 0xd8, 0xff}, ContentType: "image/jpeg"}
	receipt, err := ipfs.Store(context.Background(), image, "Cat", "a cat astronaut")
	if err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if len(unixfs.cids) != 2 {
		t.Fatalf("expected 2 adds, got %d", len(unixfs.cids))
	}
	imageCid, metadataCid := unixfs.cids[0], unixfs.cids[1]
	if receipt.ImageCid != imageCid || receipt.Cid != metadataCid {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
	if expectedUrl := "https://ipfs.io/ipfs/" + metadataCid + "/metadata.json"; receipt.MetadataUrl != expectedUrl {
		t.Errorf("expected %s, got %s", expectedUrl, receipt.MetadataUrl)
	}
	if string(unixfs.added["image.jpeg"]) != string(image.Data) {
		t.Errorf("image was not stored as image.jpeg")
	}
	metadata := models.NftMetadata{}
	if err = json.Unmarshal(unixfs.added["metadata.json"], &metadata); err != nil {
		t.Fatalf("invalid metadata: %v", err)
	}
	expectedMetadata := models.NftMetadata{Name: "Cat", Description: "a cat astronaut", Image: "ipfs://" + imageCid + "/image.jpeg"}
	if metadata != expectedMetadata {
		t.Errorf("expected %+v, got %+v", expectedMetadata, metadata)
	}
}

func TestStoreError(t *testing.T) {
	unixfs := &fakeUnixfs{added: make(map[string][]byte), err: errors.New("connection refused")}
	metricService := &fakeMetricService{counts: make(map[models.MetricName]int)}
	ipfs := NewIpfsApiWithUnixfs(loggers.NewTestLogger(), "/ip4/127.0.0.1/tcp/5001", "ipfs.io", unixfs, metricService)

	image := &models.GeneratedImage{Data: []byte("png"), ContentType: "image/png"}
	if _, err := ipfs.Store(context.Background(), image, "Cat", "a cat astronaut"); err == nil {
		t.Fatalf("expected an error")
	}
	if metricService.counts[models.MetricName_IpfsError] != 1 {
		t.Errorf("expected ipfs error to be counted")
	}
}

func TestImageExtension(t *testing.T) {
	tests := map[string]string{
		"image/png":                ".png",
		"image/webp":               ".webp",
		"image/gif":                ".gif",
		"image/jpeg":               ".jpeg",
		"image/png; charset=utf-8": ".png",
		"":                         ".jpeg",
	}
	for contentType, expected := range tests {
		if ext := imageExtension(contentType); ext != expected {
			t.Errorf("%q: expected %s, got %s", contentType, expected, ext)
		}
	}
}

func TestMetadataUrl(t *testing.T) {
	if url := MetadataUrl("ipfs.io", "bafy123"); url != "https://ipfs.io/ipfs/bafy123/metadata.json" {
		t.Errorf("unexpected url %s", url)
	}
}

func TestCreateCoreApi(t *testing.T) {
	tests := map[string]struct {
		addr string
	}{
		"multiaddr": {addr: "/ip4/127.0.0.1/tcp/5001"},
		"url":       {addr: "http://localhost:5001"},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			coreApi, err := createCoreApi(test.addr, "secret")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if auth := coreApi.Headers.Get("Authorization"); auth != "Bearer secret" {
				t.Errorf("unexpected auth header %q", auth)
			}
		})
	}
}
