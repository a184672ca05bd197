package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/clipsqueeze/clipsqueeze/internal/pipeline"
)

// Client talks to a running daemon over its control socket.
type Client struct {
	http *http.Client
}

// NewClient returns a client for the control socket at socketPath. Requests
// fail fast when no daemon is listening.
func NewClient(socketPath string) *Client {
	return &Client{
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
			Timeout: 5 * time.Second,
		},
	}
}

// Revert asks the daemon to restore the pre-optimization clipboard image.
// ErrNoOriginal is returned when the daemon has nothing to restore.
func (c *Client) Revert(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/v1/revert", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusConflict:
		return pipeline.ErrNoOriginal
	default:
		return apiError(resp)
	}
}

// Hide asks the daemon to broadcast a hide-progress event to subscribers.
func (c *Client) Hide(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/v1/hide", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

// Status fetches runtime and journal information from the daemon.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/status", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var out StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("control: decode status: %w", err)
	}
	return &out, nil
}

// Autostart reports whether the login item is enabled.
func (c *Client) Autostart(ctx context.Context) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/autostart", nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, apiError(resp)
	}
	var out struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("control: decode autostart: %w", err)
	}
	return out.Enabled, nil
}

// SetAutostart enables or disables the login item through the daemon.
func (c *Client) SetAutostart(ctx context.Context, enabled bool) error {
	body, err := json.Marshal(map[string]bool{"enabled": enabled})
	if err != nil {
		return fmt.Errorf("control: encode autostart: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPut, "/v1/autostart", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rd *bytes.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, "http://clipsqueeze"+path, rd)
	if err != nil {
		return nil, fmt.Errorf("control: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("control: %s %s: %w", method, path, err)
	}
	return resp, nil
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("control: daemon answered %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("control: daemon answered %d", resp.StatusCode)
}
