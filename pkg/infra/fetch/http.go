package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/m-mizutani/goerr/v2"
)

type httpTransport struct {
	client    *http.Client
	userAgent string
}

func (t *httpTransport) Open(ctx context.Context, u *url.URL) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to create download request", goerr.V("url", u.String()))
	}
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to send download request", goerr.V("url", u.String()))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, 0, goerr.New("unexpected status code",
			goerr.V("url", u.String()),
			goerr.V("status", resp.StatusCode),
		)
	}

	return resp.Body, resp.ContentLength, nil
}
