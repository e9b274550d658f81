// Package client talks to the highlight backend over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abiiranathan/pdfhighlight/database"
	"github.com/abiiranathan/pdfhighlight/highlight"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client: %d %s: %s", e.Code, http.StatusText(e.Code), e.Message)
}

// Is matches database.ErrNotFound for 404 responses.
func (e *StatusError) Is(target error) bool {
	return e.Code == http.StatusNotFound && target == database.ErrNotFound
}

// LocateRequest is the body of a locate call.
type LocateRequest struct {
	Fragments []string `json:"fragments"`
	Scale     float64  `json:"scale,omitempty"`
}

// Client is a backend client. It implements viewer.Persister.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for the backend at baseURL. A nil httpClient uses a
// client with a 30 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), http: httpClient}
}

func (c *Client) Readings(ctx context.Context) ([]database.Reading, error) {
	var readings []database.Reading
	err := c.do(ctx, http.MethodGet, "/readings", nil, &readings)
	return readings, err
}

func (c *Client) LoadHighlights(ctx context.Context, readingID int) ([]highlight.Record, error) {
	var records []highlight.Record
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/readings/%d/highlights", readingID), nil, &records)
	return records, err
}

func (c *Client) SaveHighlights(ctx context.Context, readingID int, records []highlight.Record) error {
	if records == nil {
		records = []highlight.Record{}
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/readings/%d/highlights", readingID), records, nil)
}

// Locate asks the backend to locate fragments in a reading and store the
// result.
func (c *Client) Locate(ctx context.Context, readingID int, req LocateRequest) ([]highlight.Record, error) {
	var records []highlight.Record
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/readings/%d/locate", readingID), req, &records)
	return records, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var msg struct {
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(io.LimitReader(res.Body, 1<<16))
		if json.Unmarshal(data, &msg) != nil || msg.Message == "" {
			msg.Message = strings.TrimSpace(string(data))
		}
		return &StatusError{Code: res.StatusCode, Message: msg.Message}
	}

	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}
