// Package backend fetches the pending verification orders from the
// conference backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"conferencia/painel/internal/types"
)

const pendingPath = "/api/conferencia/pedidos-pendentes"

type Client interface {
	FetchPending(ctx context.Context) ([]types.Order, error)
}

type HTTPClient struct {
	http *http.Client
	base string
}

func NewClient(base string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		http: &http.Client{Timeout: timeout},
		base: base,
	}
}

func (c *HTTPClient) BaseURL() string { return c.base }

// FetchPending returns the current pending list. An empty or non-array
// body is an empty list; transport failures and non-2xx statuses are errors.
func (c *HTTPClient) FetchPending(ctx context.Context) ([]types.Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+pendingPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("backend FetchPending: %s: %s", resp.Status, string(b))
	}
	if resp.StatusCode == http.StatusNoContent {
		return []types.Order{}, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend FetchPending: read body: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []types.Order{}, nil
	}
	if body[0] != '[' {
		log.Printf("[backend] pending list is not an array, treating as empty")
		return []types.Order{}, nil
	}
	var orders []types.Order
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("backend FetchPending: decode: %w", err)
	}
	if orders == nil {
		orders = []types.Order{}
	}
	return orders, nil
}

// Ping checks that the backend answers at all. Used by readiness checks.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.base+pendingPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("backend ping: %s", resp.Status)
	}
	return nil
}
