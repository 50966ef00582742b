// Package icinga2 queries the Icinga 2 REST API for object check results.
package icinga2

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
)

// maxBodySize caps how much of a response body is read
const maxBodySize = 10 << 20

// ClientConfig holds everything needed to reach the api
type ClientConfig struct {
	BaseURL  string
	Username string
	Password string

	// Insecure skips certificate verification, CAFile is added to the system roots
	Insecure bool
	CAFile   string

	Timeout time.Duration
	Logger  *slog.Logger
}

// Client performs requests against the Icinga 2 api
type Client struct {
	baseURL    string
	username   string
	password   string
	timeout    time.Duration
	httpClient *http.Client
	transport  *http.Transport
	logger     *slog.Logger
}

// NewClient creates an api client.
// - If Insecure is set, the certificate of the api is not verified
// - If CAFile is set, its certificates are trusted in addition to the system roots
func NewClient(cfg ClientConfig) (*Client, error) {
	tlsConfig, err := newTLSConfig(cfg.Insecure, cfg.CAFile)
	if err != nil {
		return nil, err
	}

	transport := cleanhttp.DefaultTransport()
	transport.TLSClientConfig = tlsConfig

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Transport: transport},
		transport:  transport,
		logger:     logger.With("component", "icinga2_client"),
	}, nil
}

func newTLSConfig(insecure bool, caFile string) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA file %s", caFile)
		}
		tlsConfig.RootCAs = pool
	}

	if insecure {
		tlsConfig.InsecureSkipVerify = true // #nosec G402 -- opted in with --insecure
	}

	return tlsConfig, nil
}

// Endpoint returns the objects URL for ref.
// Host and service names are escaped separately, the ! separator stays literal.
func (c *Client) Endpoint(ref ObjectRef) string {
	if ref.IsService() {
		return fmt.Sprintf("%s/v1/objects/services?service=%s!%s",
			c.baseURL, escapeName(ref.Host), escapeName(ref.Service))
	}
	return fmt.Sprintf("%s/v1/objects/hosts?host=%s", c.baseURL, escapeName(ref.Host))
}

func escapeName(name string) string {
	return strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}

// LastCheckResult fetches the last check result of ref
func (c *Client) LastCheckResult(ctx context.Context, ref ObjectRef) (*CheckResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint := c.Endpoint(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	req.SetBasicAuth(c.username, c.password)

	logger := c.logger.With("request_id", requestID, "object", ref.String())
	logger.Debug("Requesting last check result", "endpoint", endpoint)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("api request timed out after %v", c.timeout)
		}
		return nil, fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read api response: %w", err)
	}

	logger.Debug("Received api response",
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed objectsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse api response: %w", err)
	}

	return parsed.toCheckResult(ref)
}

// Close releases idle connections of the underlying transport
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}
