package fetch

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
)

// gcsTransport reads public objects from gs://bucket/object without
// credentials
type gcsTransport struct {
	options []option.ClientOption
}

func (t *gcsTransport) Open(ctx context.Context, u *url.URL) (io.ReadCloser, int64, error) {
	bucket := u.Host
	object := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || object == "" {
		return nil, 0, goerr.New("gs url must name a bucket and an object", goerr.V("url", u.String()))
	}

	opts := append([]option.ClientOption{option.WithoutAuthentication()}, t.options...)
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to create storage client")
	}

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		_ = client.Close()
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, 0, goerr.Wrap(err, "object not found", goerr.V("bucket", bucket), goerr.V("object", object))
		}
		return nil, 0, goerr.Wrap(err, "failed to open object", goerr.V("bucket", bucket), goerr.V("object", object))
	}

	return &gcsBody{Reader: r, client: client}, r.Attrs.Size, nil
}

type gcsBody struct {
	*storage.Reader
	client *storage.Client
}

func (b *gcsBody) Close() error {
	err := b.Reader.Close()
	_ = b.client.Close()
	return err
}
