package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout       = 5 * time.Minute
	maxAttempts          = 3
	maxRequestsPerSecond = 10
	maxBurstSize         = 20
)

// ErrReleaseNotFound is returned when no release exists for a tag
var ErrReleaseNotFound = errors.New("release not found")

// Config for the release API client
type Config struct {
	APIBase    string
	UploadBase string
	Owner      string
	Repo       string
	Token      string
	Timeout    time.Duration
}

// Client talks to the GitHub Releases REST API. Outbound calls go through a
// rate limiter and a circuit breaker, and retriable failures are retried
// with capped exponential backoff.
type Client struct {
	httpClient *http.Client
	cfg        Config
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Entry
}

// NewClient creates a release API client
func NewClient(cfg Config) (*Client, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("release repository owner and name are required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("release access token is required")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.github.com"
	}
	if cfg.UploadBase == "" {
		cfg.UploadBase = "https://uploads.github.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	log := logrus.WithFields(logrus.Fields{
		"component": "github-client",
		"repo":      cfg.Owner + "/" + cfg.Repo,
	})

	// Circuit breaker configuration
	breakerSettings := gobreaker.Settings{
		Name:    "release-api-breaker",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("Circuit breaker state changed from %v to %v", from, to)
		},
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Limit(maxRequestsPerSecond), maxBurstSize),
		breaker:    gobreaker.NewCircuitBreaker(breakerSettings),
		logger:     log,
	}, nil
}

// GetReleaseByTag fetches the release for a tag, ErrReleaseNotFound when
// none exists
func (c *Client) GetReleaseByTag(ctx context.Context, tag string) (*Release, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s",
		c.cfg.APIBase, c.cfg.Owner, c.cfg.Repo, url.PathEscape(tag))

	var release Release
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, "", &release); err != nil {
		return nil, err
	}
	return &release, nil
}

// CreateRelease creates a release. When the API rejects the request because
// a release already exists for the tag, the existing release is returned.
func (c *Client) CreateRelease(ctx context.Context, req *NewRelease) (*Release, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases", c.cfg.APIBase, c.cfg.Owner, c.cfg.Repo)

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal release request: %w", err)
	}

	var release Release
	err = c.doJSON(ctx, http.MethodPost, endpoint, payload, "application/json", &release)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusUnprocessableEntity {
			// Tag already has a release, reuse it
			c.logger.WithField("tag", req.TagName).Info("Release already exists, reusing")
			return c.GetReleaseByTag(ctx, req.TagName)
		}
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"tag": release.TagName,
		"id":  release.ID,
	}).Info("Release created")
	return &release, nil
}

// EnsureRelease returns the release for the tag, creating it when missing.
// The release is named after the tag, matching the tag-push contract.
func (c *Client) EnsureRelease(ctx context.Context, tag, body string, draft, prerelease bool) (*Release, error) {
	release, err := c.GetReleaseByTag(ctx, tag)
	if err == nil {
		return release, nil
	}
	if !errors.Is(err, ErrReleaseNotFound) {
		return nil, err
	}

	return c.CreateRelease(ctx, &NewRelease{
		TagName:    tag,
		Name:       tag,
		Body:       body,
		Draft:      draft,
		Prerelease: prerelease,
	})
}

// UploadAsset attaches a file to a release
func (c *Client) UploadAsset(ctx context.Context, releaseID int64, path string) (*Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset file: %w", err)
	}

	name := filepath.Base(path)
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases/%d/assets?name=%s",
		c.cfg.UploadBase, c.cfg.Owner, c.cfg.Repo, releaseID, url.QueryEscape(name))

	c.logger.WithFields(logrus.Fields{
		"asset": name,
		"size":  len(data),
	}).Info("Uploading release asset")

	var asset Asset
	if err := c.doJSON(ctx, http.MethodPost, endpoint, data, contentTypeFor(name), &asset); err != nil {
		return nil, fmt.Errorf("failed to upload asset %s: %w", name, err)
	}
	return &asset, nil
}

// ListAssets returns the assets attached to a release
func (c *Client) ListAssets(ctx context.Context, releaseID int64) ([]Asset, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases/%d/assets",
		c.cfg.APIBase, c.cfg.Owner, c.cfg.Repo, releaseID)

	var assets []Asset
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, "", &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// statusError carries a non-2xx API response
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("api returned status %d: %s", e.code, e.message)
	}
	return fmt.Sprintf("api returned status %d", e.code)
}

// retriable reports whether a request should be retried: network failures
// and 5xx responses are, 4xx responses are not
func retriable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	return true
}

// doJSON performs one API call through the limiter and the breaker,
// retrying retriable failures, and decodes the JSON response into out
func (c *Client) doJSON(ctx context.Context, method, endpoint string, body []byte, contentType string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := c.breaker.Execute(func() (any, error) {
			return c.roundTrip(ctx, method, endpoint, body, contentType)
		})
		if err == nil {
			if out == nil {
				return nil
			}
			return json.Unmarshal(result.([]byte), out)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrReleaseNotFound) || !retriable(err) {
			return err
		}

		lastErr = err
		if attempt < maxAttempts {
			c.logger.Warnf("Request failed (attempt %d/%d), retrying: %v", attempt, maxAttempts, err)
			// Exponential backoff
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second * time.Duration(1<<uint(attempt-1))):
			}
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", maxAttempts, lastErr)
}

// roundTrip performs a single HTTP exchange and returns the response body
func (c *Client) roundTrip(ctx context.Context, method, endpoint string, body []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if body != nil {
		req.ContentLength = int64(len(body))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrReleaseNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		_ = json.Unmarshal(data, &apiErr)
		return nil, &statusError{code: resp.StatusCode, message: apiErr.Message}
	}

	return data, nil
}

// contentTypeFor maps an asset name to its upload content type
func contentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".zip"):
		return "application/zip"
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return "application/gzip"
	case strings.HasSuffix(name, ".sha256"), strings.HasSuffix(name, ".txt"):
		return "text/plain"
	case strings.HasSuffix(name, ".exe"):
		return "application/vnd.microsoft.portable-executable"
	default:
		return "application/octet-stream"
	}
}
