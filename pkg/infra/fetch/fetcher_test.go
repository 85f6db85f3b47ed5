package fetch_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/slipguard/pkg/domain/model"
	"github.com/m-mizutani/slipguard/pkg/infra/fetch"
)

// listDir returns the names in dir, used to catch leftover staging files
func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	gt.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestFetcher_Fetch_Success(t *testing.T) {
	payload := []byte("archive bytes")
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/zip")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "data.zip")

	f := fetch.New(fetch.WithUserAgent("slipguard-test"))
	gt.NoError(t, f.Fetch(context.Background(), server.URL+"/data.zip", dest))

	content, err := os.ReadFile(dest)
	gt.NoError(t, err)
	gt.Value(t, content).Equal(payload)
	gt.String(t, userAgent).Equal("slipguard-test")

	// Only the final file remains
	gt.Value(t, listDir(t, dir)).Equal([]string{"data.zip"})
}

func TestFetcher_Fetch_OverwritesExistingFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("new"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "data.zip")
	gt.NoError(t, os.WriteFile(dest, []byte("old content that is longer"), 0o644))

	gt.NoError(t, fetch.New().Fetch(context.Background(), server.URL, dest))

	content, err := os.ReadFile(dest)
	gt.NoError(t, err)
	gt.String(t, string(content)).Equal("new")
}

func TestFetcher_Fetch_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "data.zip")
	url := server.URL + "/missing.zip"

	err := fetch.New().Fetch(context.Background(), url, dest)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrDownload))
	gt.String(t, err.Error()).Contains(url)
	gt.String(t, err.Error()).Contains("unexpected status code")

	_, statErr := os.Stat(dest)
	gt.True(t, os.IsNotExist(statErr))
	gt.Number(t, len(listDir(t, dir))).Equal(0)
}

func TestFetcher_Fetch_Retry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		dest := filepath.Join(t.TempDir(), "data.tar")
		f := fetch.New(fetch.WithRetry(2, time.Millisecond))
		gt.NoError(t, f.Fetch(context.Background(), server.URL, dest))
		gt.Number(t, hits.Load()).Equal(int32(3))
	})

	t.Run("gives up after the configured count", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		dest := filepath.Join(t.TempDir(), "data.tar")
		f := fetch.New(fetch.WithRetry(1, time.Millisecond))
		err := f.Fetch(context.Background(), server.URL, dest)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrDownload))
		gt.Number(t, hits.Load()).Equal(int32(2))
	})

	t.Run("single attempt by default", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		err := fetch.New().Fetch(context.Background(), server.URL, filepath.Join(t.TempDir(), "a.zip"))
		gt.Error(t, err)
		gt.Number(t, hits.Load()).Equal(int32(1))
	})
}

func TestFetcher_Fetch_TruncatedTransfer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("short"))
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "data.zip")

	err := fetch.New().Fetch(context.Background(), server.URL, dest)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrDownload))
	gt.Number(t, len(listDir(t, dir))).Equal(0)
}

func TestFetcher_Fetch_UnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := fetch.New().Fetch(context.Background(), url, filepath.Join(t.TempDir(), "a.zip"))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrDownload))
	gt.String(t, err.Error()).Contains(url)
}

func TestFetcher_Fetch_UnsupportedScheme(t *testing.T) {
	err := fetch.New().Fetch(context.Background(), "file:///etc/passwd", filepath.Join(t.TempDir(), "a.zip"))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrDownload))
}

func TestFetcher_Fetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	f := fetch.New(fetch.WithTimeout(50 * time.Millisecond))
	err := f.Fetch(context.Background(), server.URL, filepath.Join(t.TempDir(), "a.zip"))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrDownload))
}

func TestFetcher_Fetch_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := fetch.New(fetch.WithRetry(5, time.Hour))
	err := f.Fetch(ctx, server.URL, filepath.Join(t.TempDir(), "a.zip"))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrDownload))
}

func TestFetcher_Fetch_Progress(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	var buf bytes.Buffer
	f := fetch.New(fetch.WithProgress(&buf))
	gt.NoError(t, f.Fetch(context.Background(), server.URL, filepath.Join(t.TempDir(), "progress.zip")))
	gt.True(t, strings.Contains(buf.String(), "progress.zip"))
}
