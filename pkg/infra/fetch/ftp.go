package fetch

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/m-mizutani/goerr/v2"
)

const defaultFTPPort = "21"

// ftpTransport logs in anonymously; credentials in the URL are ignored
type ftpTransport struct {
	timeout time.Duration
}

func (t *ftpTransport) Open(ctx context.Context, u *url.URL) (io.ReadCloser, int64, error) {
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), defaultFTPPort)
	}

	opts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if t.timeout > 0 {
		opts = append(opts, ftp.DialWithTimeout(t.timeout))
	}

	conn, err := ftp.Dial(addr, opts...)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to connect to ftp server", goerr.V("addr", addr))
	}

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		_ = conn.Quit()
		return nil, 0, goerr.Wrap(err, "anonymous ftp login failed", goerr.V("addr", addr))
	}

	size := int64(-1)
	if s, err := conn.FileSize(u.Path); err == nil {
		size = s
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		_ = conn.Quit()
		return nil, 0, goerr.Wrap(err, "ftp retrieve failed", goerr.V("path", u.Path))
	}

	return &ftpBody{Response: resp, conn: conn}, size, nil
}

type ftpBody struct {
	*ftp.Response
	conn *ftp.ServerConn
}

func (b *ftpBody) Close() error {
	err := b.Response.Close()
	_ = b.conn.Quit()
	return err
}
