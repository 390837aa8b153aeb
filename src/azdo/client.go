// Package azdo provides a client for the Azure DevOps build service REST API.
package azdo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pipeline-agent/src/credential"
	"pipeline-agent/src/logger"
	"pipeline-agent/src/provider"
)

const (
	// DefaultBaseURL is the public Azure DevOps host.
	DefaultBaseURL = "https://dev.azure.com"
	// DefaultOrganization and DefaultProject address the public .NET CI.
	DefaultOrganization = "dnceng-public"
	DefaultProject      = "public"
	// APIVersion is sent with every request.
	APIVersion = "7.1"
	// DefaultFanOut bounds concurrent per-run requests when FanOut is unset.
	DefaultFanOut = 8
	// requestTimeout bounds JSON calls end to end. Downloads only bound the
	// wait for response headers; the body is limited by the caller's context.
	requestTimeout = 60 * time.Second
)

// Config locates a project. Building a Config performs no I/O.
type Config struct {
	BaseURL      string
	Organization string
	Project      string
	HTTPClient   *http.Client
	Logger       logger.Logger
	FanOut       int
}

// Client is an Azure DevOps build service client. It implements
// provider.BuildQueries.
type Client struct {
	baseURL      string
	organization string
	project      string
	token        string
	httpClient   *http.Client
	downloads    *http.Client
	log          logger.Logger
	fanOut       int
}

var _ provider.BuildQueries = (*Client)(nil)

// New creates a client around an already-acquired bearer token.
func New(cfg Config, token string) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		organization: cfg.Organization,
		project:      cfg.Project,
		token:        token,
		httpClient:   cfg.HTTPClient,
		log:          logger.OrSilent(cfg.Logger),
		fanOut:       cfg.FanOut,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.organization == "" {
		c.organization = DefaultOrganization
	}
	if c.project == "" {
		c.project = DefaultProject
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: requestTimeout}
		c.downloads = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: requestTimeout,
		}}
	} else {
		// Same transport, no overall deadline.
		dl := *c.httpClient
		dl.Timeout = 0
		c.downloads = &dl
	}
	if c.fanOut < 1 {
		c.fanOut = DefaultFanOut
	}
	return c
}

// Connect exchanges credentials for a build service token once and returns
// a client that uses it for its whole lifetime.
func Connect(ctx context.Context, cfg Config, tokens credential.TokenProvider) (*Client, error) {
	token, err := tokens.Token(ctx, credential.AzdoAudience)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire build service token: %w", err)
	}
	return New(cfg, token), nil
}

// BuildURI is the web page of a build. It is derived, never read from the API.
func (c *Client) BuildURI(buildID int) string {
	return fmt.Sprintf("%s/%s/%s/_build/results?buildId=%d",
		c.baseURL, url.PathEscape(c.organization), url.PathEscape(c.project), buildID)
}

func (c *Client) apiURL(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", APIVersion)
	return fmt.Sprintf("%s/%s/%s/_apis/%s?%s",
		c.baseURL, url.PathEscape(c.organization), url.PathEscape(c.project), path, query.Encode())
}

// do issues an authenticated GET with hc and returns the response when the
// status is 2xx. The caller closes the body.
func (c *Client) do(ctx context.Context, hc *http.Client, operation, target, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to create request: %w", operation, target, err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("Accept", accept)

	c.log.Debug("GET %s", rawURL)
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", operation, target, provider.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, provider.NewStatusError(operation, target, resp.StatusCode, body)
	}
	return resp, nil
}

// getJSON fetches rawURL and decodes the body into out. A body that is
// empty, null or not JSON is a decode error, distinct from a status error.
func (c *Client) getJSON(ctx context.Context, operation, target, rawURL string, out interface{}) error {
	resp, err := c.do(ctx, c.httpClient, operation, target, rawURL, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: %w: failed to read response: %w", operation, target, provider.ErrTransport, err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("%s %s: %w: empty response body", operation, target, provider.ErrDecode)
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%s %s: %w: %w", operation, target, provider.ErrDecode, err)
	}
	return nil
}

// getList fetches a {count, value} envelope and returns its value.
func getList[T any](ctx context.Context, c *Client, operation, target, rawURL string) ([]T, error) {
	var envelope listEnvelope[T]
	if err := c.getJSON(ctx, operation, target, rawURL, &envelope); err != nil {
		return nil, err
	}
	if envelope.Value == nil {
		return nil, fmt.Errorf("%s %s: %w: response has no value list", operation, target, provider.ErrDecode)
	}
	return *envelope.Value, nil
}

// stream copies the body at rawURL into dst without buffering it. The copy
// runs for as long as ctx allows.
func (c *Client) stream(ctx context.Context, operation, target, rawURL string, dst io.Writer) (int64, error) {
	resp, err := c.do(ctx, c.downloads, operation, target, rawURL, "application/octet-stream")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%s %s: failed after %d bytes: %w", operation, target, n, err)
	}
	return n, nil
}
