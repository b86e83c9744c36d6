package ipfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/abevier/tsk/ratelimiter"

	"github.com/ipfs/boxo/coreiface/options"
	"github.com/ipfs/boxo/coreiface/path"
	"github.com/ipfs/boxo/files"
	"github.com/ipfs/kubo/client/rpc"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/ceramicnetwork/go-mint/models"
)

const defaultIpfsRateLimit = 4
const defaultIpfsBurstLimit = 4
const defaultIpfsLimiterMaxQueueDepth = 100
const defaultIpfsAddTimeout = 2 * time.Minute

const DefaultIpfsApiAddress = "/ip4/127.0.0.1/tcp/5001"

const metadataFileName = "metadata.json"

var _ models.MetadataStore = &IpfsApi{}

type unixfsAdder interface {
	Add(context.Context, files.Node, ...options.UnixfsAddOption) (path.Resolved, error)
}

type storeTask struct {
	image       *models.GeneratedImage
	name        string
	description string
}

type IpfsApi struct {
	unixfs        unixfsAdder
	logger        models.Logger
	addrStr       string
	gateway       string
	metricService models.MetricService
	limiter       *ratelimiter.RateLimiter[*storeTask, *models.StorageReceipt]
}

func createCoreApi(addrStr, token string) (*rpc.HttpApi, error) {
	var coreApi *rpc.HttpApi
	if addr, err := ma.NewMultiaddr(addrStr); err != nil {
		c := &http.Client{
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				DisableKeepAlives: true,
			},
		}
		if coreApi, err = rpc.NewURLApiWithClient(addrStr, c); err != nil {
			return nil, err
		}
	} else if coreApi, err = rpc.NewApi(addr); err != nil {
		return nil, err
	}
	// Hosted pinning providers expose the same RPC API behind a bearer token
	if len(token) > 0 {
		coreApi.Headers.Set("Authorization", "Bearer "+token)
	}
	return coreApi, nil
}

func NewIpfsApiWithUnixfs(logger models.Logger, addrStr, gateway string, unixfs unixfsAdder, metricService models.MetricService) *IpfsApi {
	ipfs := IpfsApi{unixfs: unixfs, logger: logger, addrStr: addrStr, gateway: gateway, metricService: metricService}
	limiterOpts := ratelimiter.Opts{
		Limit:             defaultIpfsRateLimit,
		Burst:             defaultIpfsBurstLimit,
		MaxQueueDepth:     defaultIpfsLimiterMaxQueueDepth,
		FullQueueStrategy: ratelimiter.BlockWhenFull,
	}
	ipfs.limiter = ratelimiter.New(limiterOpts, ipfs.limiterRunFunction)

	return &ipfs
}

func NewIpfsApi(logger models.Logger, addrStr, token, gateway string, metricService models.MetricService) (*IpfsApi, error) {
	coreApi, err := createCoreApi(addrStr, token)
	if err != nil {
		return nil, fmt.Errorf("error creating ipfs client at %s: %w", addrStr, err)
	}
	return NewIpfsApiWithUnixfs(logger, addrStr, gateway, coreApi.Unixfs(), metricService), nil
}

// Store adds the image and a metadata document referencing it, each wrapped in its own directory. The receipt CID is the
// metadata directory, so the token URI always ends in /metadata.json.
func (i *IpfsApi) Store(ctx context.Context, image *models.GeneratedImage, name, description string) (*models.StorageReceipt, error) {
	return i.limiter.Submit(ctx, &storeTask{image, name, description})
}

func (i *IpfsApi) limiterRunFunction(ctx context.Context, task *storeTask) (*models.StorageReceipt, error) {
	receipt, err := i.store(ctx, task)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			i.metricService.Count(ctx, models.MetricName_IpfsError, 1)
		}
		i.logger.Errorf("ipfs: error storing %q on ipfs %s: %v", task.name, i.addrStr, err)
		return nil, err
	}
	return receipt, nil
}

func (i *IpfsApi) store(ctx context.Context, task *storeTask) (*models.StorageReceipt, error) {
	imageName := "image" + imageExtension(task.image.ContentType)
	imageCid, err := i.addDirectory(ctx, imageName, task.image.Data)
	if err != nil {
		return nil, fmt.Errorf("adding image failed on ipfs instance at %s: %w", i.addrStr, err)
	}
	metadata, err := json.Marshal(models.NftMetadata{
		Name:        task.name,
		Description: task.description,
		Image:       fmt.Sprintf("ipfs://%s/%s", imageCid, imageName),
	})
	if err != nil {
		return nil, err
	}
	metadataCid, err := i.addDirectory(ctx, metadataFileName, metadata)
	if err != nil {
		return nil, fmt.Errorf("adding metadata failed on ipfs instance at %s: %w", i.addrStr, err)
	}
	i.logger.Debugf("ipfs: stored image=%s, metadata=%s", imageCid, metadataCid)
	return &models.StorageReceipt{
		Cid:         metadataCid,
		ImageCid:    imageCid,
		MetadataUrl: MetadataUrl(i.gateway, metadataCid),
	}, nil
}

func (i *IpfsApi) addDirectory(ctx context.Context, fileName string, data []byte) (string, error) {
	addCtx, addCancel := context.WithTimeout(ctx, defaultIpfsAddTimeout)
	defer addCancel()

	dir := files.NewMapDirectory(map[string]files.Node{fileName: files.NewBytesFile(data)})
	if resolved, err := i.unixfs.Add(addCtx, dir, options.Unixfs.CidVersion(1), options.Unixfs.Pin(true)); err != nil {
		return "", err
	} else {
		return resolved.Cid().String(), nil
	}
}

func MetadataUrl(gateway, cid string) string {
	return fmt.Sprintf("https://%s/ipfs/%s/%s", gateway, cid, metadataFileName)
}

func imageExtension(contentType string) string {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpeg"
	}
}
