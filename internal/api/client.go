// Package api implements the client for the storage management REST API.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/openvstorage/vpool-wizard/internal/config"
	"github.com/openvstorage/vpool-wizard/internal/constants"
	"github.com/openvstorage/vpool-wizard/internal/http"
)

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct{}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	log.Printf("[RETRY ERROR] %s %v", msg, keysAndValues)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Only log errors and warnings, not all info
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	// Only log errors and warnings
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	log.Printf("[RETRY WARN] %s %v", msg, keysAndValues)
}

// ConnectionParams selects the installation a request is served by.
//
// With UseLocal set, the request goes straight to the configured local
// installation. Otherwise the local installation relays the call to the
// remote one: the path gains a "relay/" prefix and the remote coordinates
// travel as query parameters. Credentials are whitespace-stripped before
// transmission.
type ConnectionParams struct {
	UseLocal     bool
	Host         string
	Port         int
	ClientID     string
	ClientSecret string
}

// Client represents the management API client.
type Client struct {
	httpClient *nethttp.Client
	config     *config.Config
	baseURL    string
	authHeader string
}

// NewClient creates a new API client for the configured local installation.
func NewClient(cfg *config.Config) (*Client, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("management host is empty - check the [platform] section of the wizardconfig")
	}

	httpClient, err := http.ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = constants.APIRetryMax
	retryClient.RetryWaitMin = constants.APIRetryWaitMin
	retryClient.RetryWaitMax = constants.APIRetryWaitMax
	retryClient.Logger = &retryLogger{}

	return &Client{
		httpClient: retryClient.StandardClient(),
		config:     cfg,
		baseURL:    cfg.BaseURL(),
		authHeader: basicAuth(cfg.ClientID, cfg.ClientSecret),
	}, nil
}

// GetConfig returns the configuration used by this API client.
func (c *Client) GetConfig() *config.Config {
	return c.config
}

// SetBaseURL overrides the management API base URL. Used by tests and when
// the wizard is pointed at an installation other than the configured one.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
}

// basicAuth builds the Authorization header value the API expects:
// base64("client_id:client_secret"), as the original simple client does.
func basicAuth(clientID, clientSecret string) string {
	creds := fmt.Sprintf("%s:%s", strings.TrimSpace(clientID), strings.TrimSpace(clientSecret))
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}

// buildPath prefixes the endpoint with "relay/" for remote installations and
// merges the relay coordinates into the query parameters.
func buildPath(endpoint string, conn ConnectionParams, query url.Values) string {
	if conn.UseLocal {
		return "/api/" + endpoint
	}
	query.Set("ip", strings.TrimSpace(conn.Host))
	query.Set("port", fmt.Sprintf("%d", conn.Port))
	query.Set("client_id", strings.TrimSpace(conn.ClientID))
	query.Set("client_secret", strings.TrimSpace(conn.ClientSecret))
	return "/api/relay/" + endpoint
}

// doRequest performs a GET against the management API and decodes the JSON
// response into out.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values, out interface{}) error {
	reqURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json; version=*")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
