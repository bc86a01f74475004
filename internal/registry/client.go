package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxRemoteText bounds the text body read from a remote registry.
const maxRemoteText = 64 << 20

// Client fetches documents from a remote registry over HTTP. It implements
// Source so a Store can fall back to it on a miss.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	backoff    func(attempt int) time.Duration
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		backoff: Backoff,
	}
}

// outlineResponse is the body of GET /documents/{id}/outline.
type outlineResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Title    string          `json:"title,omitempty"`
	Chapters json.RawMessage `json:"chapters"`
}

// FetchDocument retrieves a document's outline and text. A missing document
// yields (nil, nil).
func (c *Client) FetchDocument(ctx context.Context, id string) (*Document, error) {
	esc := url.PathEscape(id)

	body, found, err := c.get(ctx, "/documents/"+esc+"/outline", 1<<20)
	if err != nil || !found {
		return nil, err
	}
	var out outlineResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode outline: %w", err)
	}
	chapters, err := ParseOutline(out.Chapters)
	if err != nil {
		return nil, err
	}

	text, found, err := c.get(ctx, "/documents/"+esc+"/text", maxRemoteText)
	if err != nil || !found {
		return nil, err
	}

	if out.ID == "" {
		out.ID = id
	}
	if out.Name == "" {
		out.Name = out.ID
	}
	return &Document{
		ID:       out.ID,
		Name:     out.Name,
		Title:    out.Title,
		Chapters: chapters,
		Text:     string(text),
		Source:   c.baseURL,
	}, nil
}

// get fetches path, retrying transient failures with backoff.
func (c *Client) get(ctx context.Context, path string, limit int64) ([]byte, bool, error) {
	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, false, ctx.Err()
			case <-time.After(c.backoff(attempt - 1)):
			}
		}
		data, found, err := c.getOnce(ctx, path, limit)
		if err == nil || !IsRetryable(err) {
			return data, found, err
		}
		lastErr = err
	}
	return nil, false, fmt.Errorf("get %s: giving up after %d attempts: %w", path, MaxRetries+1, lastErr)
}

func (c *Client) getOnce(ctx context.Context, path string, limit int64) ([]byte, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, false, &RetryableError{Err: fmt.Errorf("get %s: %w", path, err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("get %s: status %d: %s", path, resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, false, &RetryableError{StatusCode: resp.StatusCode, Err: err}
		}
		return nil, false, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	return data, true, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
