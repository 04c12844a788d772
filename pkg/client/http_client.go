package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient represents an HTTP connection to pixeld
type HTTPClient struct {
	logger  *slog.Logger
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTP creates a new HTTP client
func NewHTTP(logger *slog.Logger, baseURL string, apiKey string) *HTTPClient {
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &HTTPClient{
		logger:  logger,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// request performs an HTTP request and decodes the JSON response
func (c *HTTPClient) request(method, path string, body any, resp any) error {
	url := c.baseURL + path
	c.logger.Debug("HTTP request", "method", method, "url", url)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	httpResp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err)
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		c.logger.Error("HTTP error response", "status", httpResp.StatusCode, "body", string(respBody))
		return fmt.Errorf("HTTP error %d: %s", httpResp.StatusCode, string(respBody))
	}

	if resp != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, resp); err != nil {
			c.logger.Error("Failed to decode response", "error", err, "body", string(respBody))
			return fmt.Errorf("failed to decode response: %w", err)
		}
		c.logger.Debug("Received response", "response", resp)
	}

	return nil
}

func areaPath(ref string, suffix ...string) string {
	return "/api/v1/areas/" + url.PathEscape(ref) + strings.Join(suffix, "")
}

// GetVersion returns the running daemon's version information.
func (c *HTTPClient) GetVersion() (Version, error) {
	var resp Version
	err := c.request(http.MethodGet, "/api/v1/version", nil, &resp)
	return resp, err
}

// ListAreas returns every defined area.
func (c *HTTPClient) ListAreas() ([]Area, error) {
	var resp []Area
	if err := c.request(http.MethodGet, "/api/v1/areas", nil, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		return []Area{}, nil
	}
	return resp, nil
}

// GetArea returns one area by name or id.
func (c *HTTPClient) GetArea(ref string) (Area, error) {
	var resp Area
	err := c.request(http.MethodGet, areaPath(ref), nil, &resp)
	return resp, err
}

// SetArea applies a partial command to an area.
func (c *HTTPClient) SetArea(ref string, cmd Command) (State, error) {
	var resp State
	err := c.request(http.MethodPost, areaPath(ref, "/state"), cmd, &resp)
	return resp, err
}

// SetEffect binds an effect to an area.
func (c *HTTPClient) SetEffect(ref string, eff Effect) (State, error) {
	var resp State
	err := c.request(http.MethodPost, areaPath(ref, "/effect"), eff, &resp)
	return resp, err
}

// ListStrips returns the strip layout.
func (c *HTTPClient) ListStrips() (Layout, error) {
	var resp Layout
	err := c.request(http.MethodGet, "/api/v1/strips", nil, &resp)
	return resp, err
}

// GetLogLevel returns the daemon's log level.
func (c *HTTPClient) GetLogLevel() (string, error) {
	var resp struct {
		Level string `json:"level"`
	}
	err := c.request(http.MethodGet, "/api/v1/logging/level", nil, &resp)
	return resp.Level, err
}

// SetLogLevel changes the daemon's log level.
func (c *HTTPClient) SetLogLevel(level string) (string, error) {
	var resp struct {
		Level string `json:"level"`
	}
	err := c.request(http.MethodPut, "/api/v1/logging/level", map[string]any{"level": level}, &resp)
	return resp.Level, err
}
