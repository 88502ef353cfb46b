// Package vectorize talks to the external vector index that holds the
// embedded skill vocabulary.
package vectorize

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nicolad/nomadically.work/internal/logger"
	"github.com/nicolad/nomadically.work/internal/retriever"
	"github.com/nicolad/nomadically.work/internal/utils"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	userAgent       = "nomadically.work/skills-core"
	defaultTimeout  = 10 * time.Second
	queryPath       = "/query"
	maxErrorBody    = 512
)

// Client queries the index over HTTP.
type Client struct {
	token      string
	logger     *zap.Logger
	limiter    *rate.Limiter
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.HTTPClient.Timeout = d
		}
	}
}

// WithRateLimit caps requests per second. Non-positive rps disables the cap.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a Client for the index rooted at apiURL.
func New(log *zap.Logger, apiURL, token string, opts ...Option) (*Client, error) {
	apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
	if apiURL == "" {
		return nil, errors.New("vectorize api url is required")
	}

	c := &Client{
		token:  strings.TrimSpace(token),
		logger: logger.OrNop(log),
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter:   rate.NewLimiter(rate.Inf, 0),
		UserAgent: userAgent,
		APIURL:    apiURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type queryRequest struct {
	Vector         []float32 `json:"vector"`
	TopK           int       `json:"topK"`
	ReturnMetadata string    `json:"returnMetadata"`
}

type queryResponse struct {
	Matches []retriever.Match `json:"matches"`
	Count   int               `json:"count"`
}

// Query returns the topK nearest vocabulary entries with their metadata.
func (c *Client) Query(ctx context.Context, vector []float32, topK int) ([]retriever.Match, error) {
	if len(vector) == 0 {
		return nil, errors.New("query vector must not be empty")
	}

	var response queryResponse
	if err := c.postJSON(ctx, c.APIURL+queryPath, queryRequest{
		Vector:         vector,
		TopK:           topK,
		ReturnMetadata: "all",
	}, &response); err != nil {
		return nil, err
	}

	c.logger.Debug("got response from vector index", zap.Int("matches", len(response.Matches)), zap.Int("top_k", topK))
	return response.Matches, nil
}

func (c *Client) postJSON(ctx context.Context, url string, payload, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s: %s", resp.Status, utils.TruncateForLog(string(data), maxErrorBody))
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	return c.HTTPClient.Do(req)
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
	return req
}
