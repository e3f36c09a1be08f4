// Package photos is a minimal Google Photos Library API client.
package photos

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

const (
	baseURL        = "https://photoslibrary.googleapis.com"
	mediaItemsPath = "/v1/mediaItems"
	defaultPage    = 100
)

// Scope is the read-only library scope this client needs
const Scope = "https://www.googleapis.com/auth/photoslibrary.readonly"

// Client talks to the Photos Library API through an authorized HTTP client
type Client struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
}

// MediaMetadata carries the subset of item metadata we log
type MediaMetadata struct {
	CreationTime string `json:"creationTime"`
	Width        string `json:"width"`
	Height       string `json:"height"`
}

// MediaItem is one entry of the library listing
type MediaItem struct {
	ID            string        `json:"id"`
	Filename      string        `json:"filename"`
	MimeType      string        `json:"mimeType"`
	BaseURL       string        `json:"baseUrl"`
	ProductURL    string        `json:"productUrl"`
	MediaMetadata MediaMetadata `json:"mediaMetadata"`
}

// ListMediaItemsResponse is one listing page
type ListMediaItemsResponse struct {
	MediaItems    []MediaItem `json:"mediaItems"`
	NextPageToken string      `json:"nextPageToken"`
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL points the client at another endpoint
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithPageSize sets the listing page size
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewClient creates a client. httpClient must attach the bearer credential,
// e.g. one built by oauth2.NewClient.
func NewClient(httpClient *http.Client, opts ...ClientOption) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	c := &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		pageSize:   defaultPage,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListMediaItems fetches one page of the library
func (c *Client) ListMediaItems(ctx context.Context, pageToken string) (*ListMediaItemsResponse, error) {
	q := url.Values{}
	q.Set("pageSize", fmt.Sprintf("%d", c.pageSize))
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+mediaItemsPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list media items: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list failed with status %d: %s", resp.StatusCode, string(body))
	}

	var listResp ListMediaItemsResponse
	if err := json.Unmarshal(body, &listResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &listResp, nil
}

// Download streams the content at rawURL into w and returns the byte count
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("download failed with status %d: %s", resp.StatusCode, string(body))
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to copy content: %w", err)
	}
	return n, nil
}

// DownloadURL returns the original-quality download URL for an item
func DownloadURL(item MediaItem) string {
	if strings.HasPrefix(strings.ToLower(item.MimeType), "video/") {
		return item.BaseURL + "=dv"
	}
	return item.BaseURL + "=d"
}
