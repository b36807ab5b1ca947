// ABOUTME: HTTP client for the site version service API
// ABOUTME: Performs version checks and fetches the current version and changelog

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/2389/sitever/internal/versionstore"
)

var (
	// ErrNetwork is returned when the service could not be reached.
	ErrNetwork = errors.New("version service unreachable")
	// ErrProtocol is returned when the service answered with a non-2xx
	// status, an undecodable body or success=false.
	ErrProtocol = errors.New("version service protocol error")
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 10 * time.Second

// CheckRequest is the body of POST /api/version/check.
type CheckRequest struct {
	ClientVersion string `json:"clientVersion"`
}

// CheckResult is the service's answer to a version check.
type CheckResult struct {
	Success         bool   `json:"success"`
	ClientVersion   string `json:"clientVersion"`
	LatestVersion   string `json:"latestVersion"`
	UpdateAvailable bool   `json:"updateAvailable"`
	Message         string `json:"message"`
}

// VersionInfo is the body of GET /api/version.
type VersionInfo struct {
	Success     bool   `json:"success"`
	Version     string `json:"version"`
	ReleaseDate string `json:"releaseDate"`
	Timestamp   string `json:"timestamp"`
}

type changelogResponse struct {
	Success   bool                          `json:"success"`
	Changelog []versionstore.ChangelogEntry `json:"changelog"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Client talks to the version service.
type Client struct {
	checkURL     string
	versionURL   string
	changelogURL string
	http         *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client from the absolute URL of the check endpoint, e.g.
// http://localhost:3000/api/version/check. The version and changelog URLs
// are derived from it.
func New(checkEndpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(checkEndpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("endpoint must be absolute: %q", checkEndpoint)
	}

	versionPath := "/api/version"
	if p := strings.TrimSuffix(u.Path, "/"); strings.HasSuffix(p, "/check") {
		versionPath = strings.TrimSuffix(p, "/check")
	}
	changelogPath := path.Join(path.Dir(versionPath), "changelog")

	origin := u.Scheme + "://" + u.Host
	c := &Client{
		checkURL:     u.String(),
		versionURL:   origin + versionPath,
		changelogURL: origin + changelogPath,
		http:         &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Origin returns scheme://host of the service.
func (c *Client) Origin() string {
	u, _ := url.Parse(c.checkURL)
	return u.Scheme + "://" + u.Host
}

// CheckVersion asks the service whether clientVersion is behind.
func (c *Client) CheckVersion(ctx context.Context, clientVersion string) (*CheckResult, error) {
	body, err := json.Marshal(CheckRequest{ClientVersion: clientVersion})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var result CheckResult
	if err := c.do(ctx, http.MethodPost, c.checkURL, bytes.NewReader(body), &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("%w: check returned success=false", ErrProtocol)
	}
	return &result, nil
}

// GetVersion fetches the currently published version.
func (c *Client) GetVersion(ctx context.Context) (*VersionInfo, error) {
	var info VersionInfo
	if err := c.do(ctx, http.MethodGet, c.versionURL, nil, &info); err != nil {
		return nil, err
	}
	if !info.Success {
		return nil, fmt.Errorf("%w: version returned success=false", ErrProtocol)
	}
	return &info, nil
}

// GetChangelog fetches the changelog, newest entry first.
func (c *Client) GetChangelog(ctx context.Context) ([]versionstore.ChangelogEntry, error) {
	var resp changelogResponse
	if err := c.do(ctx, http.MethodGet, c.changelogURL, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: changelog returned success=false", ErrProtocol)
	}
	if resp.Changelog == nil {
		resp.Changelog = []versionstore.ChangelogEntry{}
	}
	return resp.Changelog, nil
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %w", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleErrorResponse(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrProtocol, err)
	}
	return nil
}

// handleErrorResponse extracts the service's error message from a non-2xx body.
func handleErrorResponse(status int, body []byte) error {
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		if errResp.Message != "" {
			return fmt.Errorf("%w: status %d: %s: %s", ErrProtocol, status, errResp.Error, errResp.Message)
		}
		return fmt.Errorf("%w: status %d: %s", ErrProtocol, status, errResp.Error)
	}
	return fmt.Errorf("%w: status %d", ErrProtocol, status)
}
