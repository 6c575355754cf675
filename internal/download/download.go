// Package download fetches remote documents and files over HTTP(S), with retries and progress reporting.
package download

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lxc/incus/v6/shared/revert"
)

// DefaultUserAgent is sent with every request unless overridden.
const DefaultUserAgent = "TCYClientUpdater/1.0"

// chunkSize is the amount of data copied between two progress updates.
const chunkSize = 128 * 1024

var (
	// ErrHTTPStatus is returned when the server replies with anything but 200.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrTransport is returned when the request couldn't be performed at all.
	ErrTransport = errors.New("transport error")

	// ErrSameFile is returned when a file:// source is the download target itself.
	ErrSameFile = errors.New("source and target are the same file")
)

// ProgressFunc receives the number of bytes written so far and the expected total, -1 if unknown.
type ProgressFunc func(done int64, total int64)

// Options configures a Client.
type Options struct {
	UserAgent          string
	InsecureSkipVerify bool
	Timeout            time.Duration

	// Attempts is the total number of tries for each request, including the first one.
	Attempts int
	Interval time.Duration
}

// Client downloads documents and files.
type Client struct {
	http      *http.Client
	userAgent string
	attempts  int
	interval  time.Duration
}

// New returns a configured Client.
func New(opts Options) *Client {
	transport, _ := http.DefaultTransport.(*http.Transport)
	transport = transport.Clone()

	if opts.InsecureSkipVerify {
		// #nosec G402
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}

	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		userAgent: opts.UserAgent,
		attempts:  opts.Attempts,
		interval:  opts.Interval,
	}
}

// HTTPClient returns the underlying HTTP client, for use by API clients.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// UserAgent returns the User-Agent sent with every request.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// GetJSON fetches a JSON document and decodes it into target.
func (c *Client) GetJSON(ctx context.Context, rawURL string, target any) error {
	return c.retry(ctx, rawURL, func() error {
		body, _, err := c.open(ctx, rawURL)
		if err != nil {
			return err
		}

		defer body.Close()

		err = json.NewDecoder(body).Decode(target)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("invalid JSON from %q: %w", rawURL, err))
		}

		return nil
	})
}

// Get fetches a document and passes its body to the provided function.
func (c *Client) Get(ctx context.Context, rawURL string, fn func(io.Reader) error) error {
	return c.retry(ctx, rawURL, func() error {
		body, _, err := c.open(ctx, rawURL)
		if err != nil {
			return err
		}

		defer body.Close()

		err = fn(body)
		if err != nil {
			return backoff.Permanent(err)
		}

		return nil
	})
}

// File downloads rawURL into target, reporting progress along the way. On failure, any partially
// written target is removed. The number of bytes written is returned.
func (c *Client) File(ctx context.Context, rawURL string, target string, progressFunc ProgressFunc) (int64, error) {
	// Creating the target would truncate the source.
	src, ok := LocalPath(rawURL)
	if ok && sameFile(src, target) {
		return 0, fmt.Errorf("%w: %s", ErrSameFile, target)
	}

	var written int64

	err := c.retry(ctx, rawURL, func() error {
		var err error

		written, err = c.file(ctx, rawURL, target, progressFunc)

		return err
	})
	if err != nil {
		return 0, err
	}

	return written, nil
}

func (c *Client) file(ctx context.Context, rawURL string, target string, progressFunc ProgressFunc) (int64, error) {
	reverter := revert.New()
	defer reverter.Fail()

	body, total, err := c.open(ctx, rawURL)
	if err != nil {
		return 0, err
	}

	defer body.Close()

	// Create the target path.
	// #nosec G304
	fd, err := os.Create(target)
	if err != nil {
		return 0, backoff.Permanent(err)
	}

	reverter.Add(func() { _ = os.Remove(target) })

	defer fd.Close()

	// Copy in chunks so progress can be reported.
	count := int64(0)

	for {
		n, err := io.CopyN(fd, body, chunkSize)
		count += n

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return 0, fmt.Errorf("%w: reading %q: %w", ErrTransport, rawURL, err)
		}

		if progressFunc != nil {
			progressFunc(count, total)
		}
	}

	if total > 0 && count != total {
		return 0, fmt.Errorf("%w: short read from %q (%d of %d bytes)", ErrTransport, rawURL, count, total)
	}

	err = fd.Close()
	if err != nil {
		return 0, backoff.Permanent(err)
	}

	if progressFunc != nil {
		progressFunc(count, max(total, count))
	}

	reverter.Success()

	return count, nil
}

// open returns a reader for the URL along with its expected length.
func (c *Client) open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, backoff.Permanent(fmt.Errorf("invalid URL %q: %w", rawURL, err))
	}

	if u.Scheme == "file" {
		return openLocal(localPath(u))
	}

	// Prepare the request.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, backoff.Permanent(fmt.Errorf("unable to create http request: %w", err))
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()

		err := fmt.Errorf("%w: %s from %q", ErrHTTPStatus, resp.Status, rawURL)

		// Client errors won't go away by retrying.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, 0, backoff.Permanent(err)
		}

		return nil, 0, err
	}

	return resp.Body, resp.ContentLength, nil
}

// LocalPath returns the filesystem path of a file:// URL.
func LocalPath(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "file" {
		return "", false
	}

	return localPath(u), true
}

func localPath(u *url.URL) string {
	path := filepath.FromSlash(u.Path)
	if runtime.GOOS == "windows" {
		path = strings.TrimPrefix(path, `\`)
	}

	return path
}

func sameFile(a string, b string) bool {
	aInfo, err := os.Stat(a)
	if err != nil {
		return false
	}

	bInfo, err := os.Stat(b)
	if err != nil {
		return false
	}

	return os.SameFile(aInfo, bInfo)
}

func openLocal(path string) (io.ReadCloser, int64, error) {
	// #nosec G304
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, backoff.Permanent(err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()

		return nil, 0, backoff.Permanent(err)
	}

	return f, info.Size(), nil
}

func (c *Client) retry(ctx context.Context, rawURL string, op backoff.Operation) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ExponentialBackOff{
		InitialInterval:     c.interval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         10 * c.interval,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}, uint64(c.attempts-1)), ctx) //nolint:gosec

	return backoff.RetryNotify(op, policy, func(err error, next time.Duration) {
		slog.WarnContext(ctx, "Download attempt failed, retrying", "url", rawURL, "err", err, "next", next)
	})
}

// FileURL returns a file:// URL for a local path.
func FileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	abs = filepath.ToSlash(abs)
	if !strings.HasPrefix(abs, "/") {
		abs = "/" + abs
	}

	return (&url.URL{Scheme: "file", Path: abs}).String()
}
