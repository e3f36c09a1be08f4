// Package telegram is a minimal Bot API client for posting media to one chat.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	baseURL = "https://api.telegram.org"

	// MaxCaptionLength is the Bot API caption limit in characters
	MaxCaptionLength = 1024

	// DefaultMaxRetryAfter is the longest flood-control wait honoured before
	// a send is reported as failed
	DefaultMaxRetryAfter = 30 * time.Second
)

// APIError is a non-ok Bot API response
type APIError struct {
	Method      string
	StatusCode  int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s failed with status %d: %s", e.Method, e.StatusCode, e.Description)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	return msg
}

// ErrUnauthorized is returned when the bot token is rejected
var ErrUnauthorized = errors.New("bot token rejected")

type apiResponse struct {
	OK          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// User is the subset of getMe we care about
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Client sends to a single chat through one bot
type Client struct {
	token         string
	chatID        string
	httpClient    *http.Client
	baseURL       string
	maxRetryAfter time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL points the client at another Bot API server
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMaxRetryAfter caps the flood-control wait. Zero disables the retry.
func WithMaxRetryAfter(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetryAfter = d
	}
}

// NewClient creates a client for chatID
func NewClient(token, chatID string, opts ...ClientOption) *Client {
	c := &Client{
		token:  token,
		chatID: chatID,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		baseURL:       baseURL,
		maxRetryAfter: DefaultMaxRetryAfter,
		sleep:         sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetMe checks the token
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	result, err := c.do(ctx, "getMe", func() (io.Reader, string, error) {
		return nil, "", nil
	})
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal(result, &u); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &u, nil
}

// SendPhoto uploads path as a compressed chat photo
func (c *Client) SendPhoto(ctx context.Context, path, caption string) error {
	return c.sendFile(ctx, "sendPhoto", "photo", path, caption, nil)
}

// SendVideo uploads path as a streamable video
func (c *Client) SendVideo(ctx context.Context, path, caption string) error {
	return c.sendFile(ctx, "sendVideo", "video", path, caption, map[string]string{"supports_streaming": "true"})
}

// SendAnimation uploads path as an animation so GIFs keep playing
func (c *Client) SendAnimation(ctx context.Context, path, caption string) error {
	return c.sendFile(ctx, "sendAnimation", "animation", path, caption, nil)
}

// SendDocument uploads path as an uncompressed file
func (c *Client) SendDocument(ctx context.Context, path, caption string) error {
	return c.sendFile(ctx, "sendDocument", "document", path, caption, nil)
}

// SendMessage posts plain text
func (c *Client) SendMessage(ctx context.Context, text string) error {
	_, err := c.do(ctx, "sendMessage", func() (io.Reader, string, error) {
		body, err := json.Marshal(map[string]string{"chat_id": c.chatID, "text": text})
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(body), "application/json", nil
	})
	return err
}

func (c *Client) sendFile(ctx context.Context, method, field, path, caption string, extra map[string]string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}

	_, err := c.do(ctx, method, func() (io.Reader, string, error) {
		file, err := os.Open(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open file: %w", err)
		}
		defer file.Close()

		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)

		fields := map[string]string{"chat_id": c.chatID}
		if caption != "" {
			fields["caption"] = TruncateCaption(caption)
		}
		for k, v := range extra {
			fields[k] = v
		}
		for k, v := range fields {
			if err := writer.WriteField(k, v); err != nil {
				return nil, "", fmt.Errorf("failed to write field %s: %w", k, err)
			}
		}

		part, err := writer.CreateFormFile(field, filepath.Base(path))
		if err != nil {
			return nil, "", fmt.Errorf("failed to create file field: %w", err)
		}
		if _, err := io.Copy(part, file); err != nil {
			return nil, "", fmt.Errorf("failed to copy file content: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, "", err
		}
		return &buf, writer.FormDataContentType(), nil
	})
	return err
}

// do calls method, retrying once when the server asks for a short pause.
// body is rebuilt for each attempt.
func (c *Client) do(ctx context.Context, method string, body func() (io.Reader, string, error)) (json.RawMessage, error) {
	result, err := c.call(ctx, method, body)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests &&
		apiErr.RetryAfter > 0 && apiErr.RetryAfter <= c.maxRetryAfter {
		if err := c.sleep(ctx, apiErr.RetryAfter); err != nil {
			return nil, err
		}
		return c.call(ctx, method, body)
	}
	return result, err
}

func (c *Client) call(ctx context.Context, method string, body func() (io.Reader, string, error)) (json.RawMessage, error) {
	r, contentType, err := body()
	if err != nil {
		return nil, err
	}

	httpMethod := http.MethodPost
	if r == nil {
		httpMethod = http.MethodGet
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, httpMethod, endpoint, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the URL carries the token
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return nil, &APIError{Method: method, StatusCode: resp.StatusCode, Description: snippet(raw)}
	}

	if !apiResp.OK || resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Method: method, StatusCode: resp.StatusCode, Description: apiResp.Description}
		if apiResp.Parameters != nil && apiResp.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(apiResp.Parameters.RetryAfter) * time.Second
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
		}
		return nil, apiErr
	}

	return apiResp.Result, nil
}

// TruncateCaption shortens s to the Bot API caption limit
func TruncateCaption(s string) string {
	if utf8.RuneCountInString(s) <= MaxCaptionLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxCaptionLength-1]) + "…"
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
