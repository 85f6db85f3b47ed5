// Package fetch downloads a remote resource to a local file. Supported URL
// schemes are http, https, ftp (anonymous) and gs (public objects only).
//
// The body is streamed to a hidden sibling staging file and renamed into
// place once complete, so an interrupted transfer never leaves a truncated
// archive under the requested name. Callers must not run concurrent fetches
// targeting the same file name.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/slipguard/pkg/domain/interfaces"
	"github.com/m-mizutani/slipguard/pkg/domain/model"
	"github.com/m-mizutani/slipguard/pkg/domain/types"
	"google.golang.org/api/option"
)

// transport opens a remote resource. size is -1 when unknown.
type transport interface {
	Open(ctx context.Context, u *url.URL) (body io.ReadCloser, size int64, err error)
}

// config holds internal fetcher configuration
type config struct {
	retries    int
	backoff    time.Duration
	timeout    time.Duration
	userAgent  string
	progress   io.Writer
	httpClient *http.Client
	gcsOptions []option.ClientOption
}

// Option is a functional option for Fetcher configuration
type Option func(*config)

// WithRetry sets how many times a failed download is retried. The wait
// before the first retry is backoff and doubles after every attempt.
func WithRetry(retries int, backoff time.Duration) Option {
	return func(c *config) {
		c.retries = retries
		c.backoff = backoff
	}
}

// WithTimeout bounds every single download attempt
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header for HTTP downloads
func WithUserAgent(userAgent string) Option {
	return func(c *config) {
		c.userAgent = userAgent
	}
}

// WithProgress renders a byte progress bar to w
func WithProgress(w io.Writer) Option {
	return func(c *config) {
		c.progress = w
	}
}

// WithHTTPClient replaces the HTTP client used for http and https URLs
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

// WithGCSClientOptions appends options for the Cloud Storage client
func WithGCSClientOptions(opts ...option.ClientOption) Option {
	return func(c *config) {
		c.gcsOptions = append(c.gcsOptions, opts...)
	}
}

// Fetcher implements interfaces.Fetcher
type Fetcher struct {
	cfg        *config
	transports map[string]transport
}

// New creates a Fetcher. By default a download is attempted once with no
// timeout beyond what the transport provides.
func New(opts ...Option) *Fetcher {
	cfg := &config{
		userAgent:  types.AppName + "/" + types.Version,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	httpT := &httpTransport{client: cfg.httpClient, userAgent: cfg.userAgent}
	return &Fetcher{
		cfg: cfg,
		transports: map[string]transport{
			"http":  httpT,
			"https": httpT,
			"ftp":   &ftpTransport{timeout: cfg.timeout},
			"gs":    &gcsTransport{options: cfg.gcsOptions},
		},
	}
}

// Fetch downloads rawURL to destFileName, overwriting it
func (f *Fetcher) Fetch(ctx context.Context, rawURL, destFileName string) error {
	logger := ctxlog.From(ctx)

	u, err := url.Parse(rawURL)
	if err != nil {
		return goerr.Wrap(fmt.Errorf("%w: %w", model.ErrDownload, err), "malformed url", goerr.V("url", rawURL))
	}
	t, ok := f.transports[u.Scheme]
	if !ok {
		return goerr.Wrap(model.ErrDownload, "unsupported url scheme",
			goerr.V("url", rawURL),
			goerr.V("scheme", u.Scheme),
		)
	}

	backoff := f.cfg.backoff
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= f.cfg.retries; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying download",
				"url", rawURL,
				"attempt", attempt+1,
				"backoff", backoff.String(),
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return goerr.Wrap(fmt.Errorf("%w: %w", model.ErrDownload, ctx.Err()), "download cancelled",
					goerr.V("url", rawURL),
				)
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		attempts++
		size, err := f.fetchOnce(ctx, t, u, destFileName)
		if err == nil {
			logger.Info("Download complete",
				"url", rawURL,
				"file_name", destFileName,
				"size_bytes", size,
				"attempts", attempts,
			)
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	return goerr.Wrap(fmt.Errorf("%w: %w", model.ErrDownload, lastErr), "failed to download "+rawURL,
		goerr.V("url", rawURL),
		goerr.V("attempts", attempts),
	)
}

func (f *Fetcher) fetchOnce(ctx context.Context, t transport, u *url.URL, dest string) (int64, error) {
	if f.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.timeout)
		defer cancel()
	}

	body, size, err := t.Open(ctx, u)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	staging := stagingPath(dest)
	out, err := os.OpenFile(staging, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to create staging file", goerr.V("path", staging))
	}

	var w io.Writer = out
	if f.cfg.progress != nil {
		bar := newProgressBar(f.cfg.progress, size, filepath.Base(dest))
		defer func() { _ = bar.Finish() }()
		w = io.MultiWriter(out, bar)
	}

	written, err := io.Copy(w, body)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(staging)
		return 0, goerr.Wrap(err, "transfer interrupted", goerr.V("written", written))
	}
	if size >= 0 && written != size {
		_ = out.Close()
		_ = os.Remove(staging)
		return 0, goerr.New("transfer incomplete",
			goerr.V("written", written),
			goerr.V("expected", size),
		)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(staging)
		return 0, goerr.Wrap(err, "failed to close staging file", goerr.V("path", staging))
	}

	if err := os.Rename(staging, dest); err != nil {
		_ = os.Remove(staging)
		return 0, goerr.Wrap(err, "failed to move staging file into place",
			goerr.V("staging", staging),
			goerr.V("dest", dest),
		)
	}

	return written, nil
}

// stagingPath returns a unique hidden sibling of dest
func stagingPath(dest string) string {
	return filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+"."+uuid.NewString()+".part")
}

var _ interfaces.Fetcher = (*Fetcher)(nil)
