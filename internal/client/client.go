// Package client implements the HTTP client for the collector API.
// It posts host descriptors to /check_register and metric samples to
// /metrics/{server_id}. Retry policy lives with the callers; every request
// here is a single attempt bounded by the configured timeout.
package client

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-monitor/agent/internal/models"
)

const (
	registerPath = "/check_register"
	metricsPath  = "/metrics/"

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 1 << 20
)

// Config holds the client settings.
type Config struct {
	BaseURL        string
	Token          string
	RequestTimeout time.Duration
	Compress       bool
	UserAgent      string
}

// Client talks to the collector. It owns its http.Client.
type Client struct {
	http   *http.Client
	cfg    Config
	logger *zap.Logger
}

// New creates a new Client.
func New(cfg Config, logger *zap.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = "atlas-agent"
	}
	return &Client{
		http: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		cfg:    cfg,
		logger: logger.Named("client"),
	}
}

// Register posts the host descriptor and returns the server id from the
// response body.
func (c *Client) Register(ctx context.Context, host models.HostDescriptor) (models.ServerID, error) {
	status, body, err := c.post(ctx, registerPath, host)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &StatusError{Op: "register", StatusCode: status, Body: snippet(body)}
	}

	id, err := parseServerID(body)
	if err != nil {
		return "", &DecodeError{Op: "register", Err: err}
	}
	return id, nil
}

// Report posts a metric sample for id.
func (c *Client) Report(ctx context.Context, id models.ServerID, sample models.MetricSample) error {
	status, body, err := c.post(ctx, metricsPath+url.PathEscape(id.String()), sample)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &StatusError{Op: "report", StatusCode: status, Body: snippet(body)}
	}
	c.logger.Debug("Metrics sent successfully",
		zap.String("server_id", id.String()),
		zap.Float64("cpu", sample.CPUUsage),
		zap.Float64("memory", sample.MemoryUsage),
		zap.Float64("disk", sample.DiskUsage))
	return nil
}

// post performs a single JSON POST and returns the status and body.
func (c *Client) post(ctx context.Context, path string, payload interface{}) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal payload: %w", err)
	}

	var body io.Reader = bytes.NewReader(data)
	if c.cfg.Compress {
		var compressed bytes.Buffer
		gz := gzip.NewWriter(&compressed)
		if _, err := gz.Write(data); err != nil {
			return 0, nil, fmt.Errorf("compress payload: %w", err)
		}
		if err := gz.Close(); err != nil {
			return 0, nil, fmt.Errorf("finalize gzip compression: %w", err)
		}
		body = &compressed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.cfg.Compress {
		req.Header.Set("Content-Encoding", "gzip")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, &TransportError{Op: path, Err: fmt.Errorf("read response: %w", err)}
	}
	return resp.StatusCode, respBody, nil
}

// parseServerID extracts "id" from a registration response. Numeric ids
// are accepted and rendered in decimal.
func parseServerID(body []byte) (models.ServerID, error) {
	var resp struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.ID) == 0 || string(resp.ID) == "null" {
		return "", errMissingID
	}

	var s string
	if err := json.Unmarshal(resp.ID, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return "", errMissingID
		}
		return models.ServerID(s), nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(resp.ID))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("id is neither string nor number: %s", resp.ID)
	}
	return models.ServerID(n.String()), nil
}

func snippet(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
