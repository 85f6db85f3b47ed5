package model

import (
	"net/url"
	"os"
	"path/filepath"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/slipguard/pkg/utils/safepath"
)

const (
	DefaultFileName = "data.zip"
	DefaultDataPath = "data"
)

// SupportedSchemes lists URL schemes the fetcher can handle
var SupportedSchemes = []string{"http", "https", "ftp", "gs"}

// DownloadRequest is built once per invocation from command-line input and
// must not be modified afterwards.
type DownloadRequest struct {
	URL      string // Remote resource to fetch
	FileName string // Staged archive path, relative to the working directory
	DataPath string // Extraction directory
}

// Validate checks the URL is well formed and that FileName stays inside the
// current working directory.
func (r *DownloadRequest) Validate() error {
	if r.URL == "" {
		return goerr.Wrap(ErrInvalidRequest, "url is required")
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return goerr.Wrap(ErrInvalidRequest, "malformed url",
			goerr.V("url", r.URL),
			goerr.V("parse_error", err.Error()),
		)
	}
	if !slices.Contains(SupportedSchemes, u.Scheme) {
		return goerr.Wrap(ErrInvalidRequest, "unsupported url scheme",
			goerr.V("url", r.URL),
			goerr.V("scheme", u.Scheme),
		)
	}
	if u.Host == "" {
		return goerr.Wrap(ErrInvalidRequest, "url has no host", goerr.V("url", r.URL))
	}

	if r.FileName == "" {
		return goerr.Wrap(ErrInvalidRequest, "file name is required")
	}
	if r.DataPath == "" {
		return goerr.Wrap(ErrInvalidRequest, "data path is required")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return goerr.Wrap(err, "failed to get working directory")
	}
	if safepath.IsAbsName(r.FileName) {
		return goerr.Wrap(ErrInvalidRequest, "file name must be relative to the working directory",
			goerr.V("file_name", r.FileName),
		)
	}

	base, err := safepath.Resolve(cwd)
	if err != nil {
		return goerr.Wrap(err, "failed to resolve working directory", goerr.V("cwd", cwd))
	}
	target, err := safepath.Resolve(filepath.Join(cwd, r.FileName))
	if err != nil {
		return goerr.Wrap(err, "failed to resolve file name", goerr.V("file_name", r.FileName))
	}
	if target == base || !safepath.Within(base, target) {
		return goerr.Wrap(ErrInvalidRequest, "file name resolves outside the working directory",
			goerr.V("file_name", r.FileName),
			goerr.V("resolved", target),
		)
	}

	return nil
}

// Format classifies FileName
func (r *DownloadRequest) Format() ArchiveFormat {
	return Classify(r.FileName)
}
