// Package dataloop is a minimal client for the Dataloop platform REST API,
// covering datasets, items and annotations.
package dataloop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/tablesync/internal/resilience"
)

// DefaultBaseURL is the public Dataloop gateway.
const DefaultBaseURL = "https://gate.dataloop.ai/api/v1"

// ErrNotFound is returned when the API answers 404.
var ErrNotFound = eris.New("dataloop: not found")

// APIError carries a non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dataloop: status %d: %s", e.StatusCode, e.Body)
}

// Client defines the Dataloop API operations used by this application.
type Client interface {
	GetDataset(ctx context.Context, datasetID string) (*Dataset, error)
	// UploadItems sends every file in one request. The API answers with a
	// single item or a list; both come back as a slice.
	UploadItems(ctx context.Context, datasetID string, files []UploadFile, overwrite bool) ([]Item, error)
	GetItem(ctx context.Context, itemID string) (*Item, error)
	DownloadItem(ctx context.Context, itemID string) ([]byte, error)
	QueryItems(ctx context.Context, datasetID string, page, pageSize int) (*ItemPage, error)
	ListAnnotations(ctx context.Context, itemID string) ([]Annotation, error)
}

// UploadFile is one file in an upload request.
type UploadFile struct {
	Name    string
	Content []byte
}

// Option configures the Dataloop client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit throttles API calls. A non-positive value disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Dataloop client authenticated with a bearer token.
// Calls are throttled to 10 req/s by default.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: DefaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends req and returns the body of a 2xx response.
func (c *httpClient) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "dataloop: rate limit")
		}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "dataloop: %s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "dataloop: read response body")
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, eris.Wrapf(ErrNotFound, "dataloop: %s %s", req.Method, req.URL.Path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resilience.FromHTTPStatus(&APIError{StatusCode: resp.StatusCode, Body: string(body)}, resp.StatusCode)
	}
	return body, nil
}

func (c *httpClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "dataloop: create request")
	}
	body, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "dataloop: unmarshal %s", path)
	}
	return nil
}

func (c *httpClient) GetDataset(ctx context.Context, datasetID string) (*Dataset, error) {
	var ds Dataset
	if err := c.getJSON(ctx, "/datasets/"+url.PathEscape(datasetID), &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (c *httpClient) GetItem(ctx context.Context, itemID string) (*Item, error) {
	var it Item
	if err := c.getJSON(ctx, "/items/"+url.PathEscape(itemID), &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *httpClient) DownloadItem(ctx context.Context, itemID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/items/"+url.PathEscape(itemID)+"/stream", nil)
	if err != nil {
		return nil, eris.Wrap(err, "dataloop: create request")
	}
	req.Header.Set("Accept", "*/*")
	return c.do(ctx, req)
}

func (c *httpClient) ListAnnotations(ctx context.Context, itemID string) ([]Annotation, error) {
	var anns []Annotation
	if err := c.getJSON(ctx, "/items/"+url.PathEscape(itemID)+"/annotations", &anns); err != nil {
		return nil, err
	}
	return anns, nil
}

func (c *httpClient) QueryItems(ctx context.Context, datasetID string, page, pageSize int) (*ItemPage, error) {
	q := itemQuery{
		Resource: "items",
		Filter: map[string]any{
			"$and": []map[string]any{{"hidden": false}, {"type": "file"}},
		},
		Page:     page,
		PageSize: pageSize,
	}
	payload, err := json.Marshal(q)
	if err != nil {
		return nil, eris.Wrap(err, "dataloop: marshal query")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/datasets/"+url.PathEscape(datasetID)+"/query", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "dataloop: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	var out ItemPage
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "dataloop: unmarshal query response")
	}
	return &out, nil
}

func (c *httpClient) UploadItems(ctx context.Context, datasetID string, files []UploadFile, overwrite bool) ([]Item, error) {
	if len(files) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("path", "/"); err != nil {
		return nil, eris.Wrap(err, "dataloop: write path field")
	}
	if err := w.WriteField("overwrite", fmt.Sprintf("%t", overwrite)); err != nil {
		return nil, eris.Wrap(err, "dataloop: write overwrite field")
	}
	for _, f := range files {
		part, err := w.CreateFormFile("file", f.Name)
		if err != nil {
			return nil, eris.Wrapf(err, "dataloop: create form file %s", f.Name)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, eris.Wrapf(err, "dataloop: write form file %s", f.Name)
		}
	}
	if err := w.Close(); err != nil {
		return nil, eris.Wrap(err, "dataloop: close multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/datasets/"+url.PathEscape(datasetID)+"/items", &buf)
	if err != nil {
		return nil, eris.Wrap(err, "dataloop: create request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	body, err := c.do(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "dataloop: upload %d items to dataset %s", len(files), datasetID)
	}
	items, err := decodeItems(body)
	if err != nil {
		return nil, eris.Wrap(err, "dataloop: unmarshal upload response")
	}
	return items, nil
}

// decodeItems accepts either a single item object or an array of items.
func decodeItems(body []byte) ([]Item, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []Item
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var item Item
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return nil, err
	}
	return []Item{item}, nil
}
