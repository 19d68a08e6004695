package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/oshokin/mcserver-manager/internal/config"
	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/logger"
)

const (
	defaultRetryInterval = 500 * time.Millisecond
	downloadFileMode     = 0o644
)

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Client performs upstream HTTP calls with the configured identity, timeouts and retries.
type Client struct {
	// httpClient carries the transport; deadlines come from contexts.
	httpClient *http.Client
	// userAgent is sent with every request.
	userAgent string

	metadataTimeout time.Duration
	downloadTimeout time.Duration

	// retries is the number of additional attempts after a transient failure. Zero disables retrying.
	retries       int
	retryInterval time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithMetadataTimeout sets the timeout of JSON metadata calls.
func WithMetadataTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.metadataTimeout = timeout
		}
	}
}

// WithDownloadTimeout sets the timeout of binary downloads.
func WithDownloadTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.downloadTimeout = timeout
		}
	}
}

// WithRetries enables exponential backoff retries for transient failures.
func WithRetries(retries int) Option {
	return func(c *Client) {
		if retries > 0 {
			c.retries = retries
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient creates a client with default timeouts and no retries.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient:      &http.Client{},
		userAgent:       config.DefaultUserAgent,
		metadataTimeout: config.DefaultMetadataTimeout,
		downloadTimeout: config.DefaultDownloadTimeout,
		retryInterval:   defaultRetryInterval,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// GetJSON fetches url and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.retry(ctx, url, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.metadataTimeout)
		defer cancel()

		response, err := c.get(callCtx, url)
		if err != nil {
			return err
		}

		defer response.Body.Close() //nolint:errcheck // Read-only body.

		if err := json.NewDecoder(response.Body).Decode(out); err != nil {
			if callCtx.Err() != nil {
				return install.NewError(install.KindNetwork, "read "+url, err)
			}

			return install.NewError(install.KindResolution, "decode "+url, err)
		}

		return nil
	})
}

// DownloadFile streams url into path, truncating any previous attempt, and returns the byte count.
func (c *Client) DownloadFile(ctx context.Context, url, path string) (int64, error) {
	var written int64

	err := c.retry(ctx, url, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
		defer cancel()

		response, err := c.get(callCtx, url)
		if err != nil {
			return err
		}

		defer response.Body.Close() //nolint:errcheck // Read-only body.

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:mnd // Directory permissions.
			return install.NewError(install.KindFilesystem, "create download directory", err)
		}

		file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, downloadFileMode)
		if err != nil {
			return install.NewError(install.KindFilesystem, "create download file", err)
		}

		written, err = io.Copy(file, response.Body)

		closeErr := file.Close()

		switch {
		case err != nil:
			return install.NewError(install.KindNetwork, "download "+url, err)
		case closeErr != nil:
			return install.NewError(install.KindFilesystem, "close download file", closeErr)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.DebugKV(ctx, "Downloaded artifact", "url", url, "bytes", written)

	return written, nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, install.NewError(install.KindConfig, "build request", err)
	}

	request.Header.Set("User-Agent", c.userAgent)
	request.Header.Set("Accept", "application/json, */*")

	logger.DebugKV(ctx, "Upstream request", "url", url)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, install.NewError(install.KindNetwork, "GET "+url, err)
	}

	if response.StatusCode != http.StatusOK {
		//nolint:errcheck // Body content is not used for non-200 responses.
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, 4096))
		response.Body.Close() //nolint:errcheck,gosec // See above.

		return nil, install.NewError(install.KindNetwork, "GET "+url, &StatusError{URL: url, StatusCode: response.StatusCode})
	}

	return response, nil
}

// retry runs call once, then up to c.retries more times while the failure is transient.
func (c *Client) retry(ctx context.Context, url string, call func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval

	//nolint:gosec // retries is validated as non-negative.
	bounded := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.retries)), ctx)

	return backoff.RetryNotify(func() error {
		err := call()
		if err != nil && !c.isTransient(ctx, err) {
			return backoff.Permanent(err)
		}

		return err
	}, bounded, func(err error, wait time.Duration) {
		logger.WarnKV(ctx, "Upstream call failed, retrying", "url", url, "wait", wait, "error", err)
	})
}

func (c *Client) isTransient(ctx context.Context, err error) bool {
	if c.retries == 0 || ctx.Err() != nil || install.KindOf(err) != install.KindNetwork {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError ||
			statusErr.StatusCode == http.StatusTooManyRequests
	}

	return true
}

// ClientForConfig creates a client tuned by the [http] section and user agent of cfg.
// Extra options are applied last.
func ClientForConfig(cfg *config.Config, extra ...Option) *Client {
	opts := []Option{
		WithUserAgent(cfg.UserAgent),
		WithMetadataTimeout(cfg.HTTP.MetadataTimeout.Duration),
		WithDownloadTimeout(cfg.HTTP.DownloadTimeout.Duration),
		WithRetries(cfg.HTTP.Retries),
	}

	return NewClient(append(opts, extra...)...)
}
