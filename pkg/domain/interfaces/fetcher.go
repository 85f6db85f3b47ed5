package interfaces

import "context"

// Fetcher retrieves a remote resource to a local file
type Fetcher interface {
	// Fetch stores the resource at url as destFileName, overwriting any
	// existing file. It does not create the extraction directory.
	Fetch(ctx context.Context, url, destFileName string) error
}
