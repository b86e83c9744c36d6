package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abevier/tsk/ratelimiter"

	"github.com/ceramicnetwork/go-mint/models"
)

const defaultInferenceRateLimit = 1
const defaultInferenceBurstLimit = 2
const defaultInferenceMaxQueueDepth = 16

// Generated images are a few hundred KB, anything much larger than this is not an image we asked for.
const maxImageBytes = 32 << 20

var _ models.ImageGenerator = &Client{}

var ErrImageTooLarge = fmt.Errorf("image larger than %d bytes", maxImageBytes)

type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inference endpoint returned %d: %s", e.StatusCode, e.Message)
}

type generateRequest struct {
	Inputs  string          `json:"inputs"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type Client struct {
	endpoint      string
	token         string
	httpClient    *http.Client
	logger        models.Logger
	metricService models.MetricService
	limiter       *ratelimiter.RateLimiter[string, *models.GeneratedImage]
}

func NewClient(logger models.Logger, endpoint, token string, timeout time.Duration, metricService models.MetricService) *Client {
	return NewClientWithHttp(logger, endpoint, token, &http.Client{Timeout: timeout}, metricService)
}

func NewClientWithHttp(logger models.Logger, endpoint, token string, httpClient *http.Client, metricService models.MetricService) *Client {
	c := &Client{
		endpoint:      endpoint,
		token:         token,
		httpClient:    httpClient,
		logger:        logger,
		metricService: metricService,
	}
	rlOpts := ratelimiter.Opts{
		Limit:             defaultInferenceRateLimit,
		Burst:             defaultInferenceBurstLimit,
		MaxQueueDepth:     defaultInferenceMaxQueueDepth,
		FullQueueStrategy: ratelimiter.BlockWhenFull,
	}
	c.limiter = ratelimiter.New(rlOpts, c.generate)
	return c
}

// Generate asks the model for an image matching the prompt. The call blocks until the model has produced the full
// image, which can take a while when the model has to be loaded first.
func (c *Client) Generate(ctx context.Context, prompt string) (*models.GeneratedImage, error) {
	return c.limiter.Submit(ctx, prompt)
}

func (c *Client) generate(ctx context.Context, prompt string) (*models.GeneratedImage, error) {
	image, err := c.doGenerate(ctx, prompt)
	if err != nil {
		c.logger.Errorf("inference: error generating image: %v", err)
		c.metricService.Count(ctx, models.MetricName_InferenceError, 1)
		return nil, err
	}
	c.logger.Debugf("inference: generated %d bytes of %s", len(image.Data), image.ContentType)
	return image, nil
}

func (c *Client) doGenerate(ctx context.Context, prompt string) (*models.GeneratedImage, error) {
	reqBody, err := json.Marshal(generateRequest{prompt, generateOptions{WaitForModel: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if len(c.token) > 0 {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(respBody) > maxImageBytes {
		return nil, ErrImageTooLarge
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{resp.StatusCode, errorMessage(respBody)}
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("unexpected content type %q: %s", contentType, errorMessage(respBody))
	}
	if len(respBody) == 0 {
		return nil, fmt.Errorf("empty image returned")
	}
	return &models.GeneratedImage{Data: respBody, ContentType: contentType}, nil
}

// errorMessage extracts the "error" field the inference API uses for failures, falling back to the raw body.
func errorMessage(body []byte) string {
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && len(apiErr.Error) > 0 {
		return apiErr.Error
	}
	const maxLen = 256
	if len(body) > maxLen {
		return string(body[:maxLen])
	}
	return string(body)
}
