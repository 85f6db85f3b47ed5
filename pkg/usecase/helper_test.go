package usecase_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/slipguard/pkg/domain/model"
)

type entryKind int

const (
	kindFile entryKind = iota
	kindDir
	kindSymlink
	kindHardlink
)

// testEntry describes one member of a generated archive
type testEntry struct {
	name string
	body string
	kind entryKind
	link string
}

func file(name, body string) testEntry { return testEntry{name: name, body: body, kind: kindFile} }
func dir(name string) testEntry        { return testEntry{name: name, kind: kindDir} }
func symlink(name, target string) testEntry {
	return testEntry{name: name, kind: kindSymlink, link: target}
}
func hardlink(name, target string) testEntry {
	return testEntry{name: name, kind: kindHardlink, link: target}
}

var allFormats = []model.ArchiveFormat{model.FormatZip, model.FormatTarPlain, model.FormatTarGzip}

// archiveName returns a file name whose suffix classifies as format
func archiveName(base string, format model.ArchiveFormat) string {
	return base + "." + format.String()
}

func buildArchive(t *testing.T, format model.ArchiveFormat, entries []testEntry) []byte {
	t.Helper()
	switch format {
	case model.FormatZip:
		return buildZip(t, entries)
	case model.FormatTarPlain:
		return buildTar(t, entries)
	case model.FormatTarGzip:
		var buf bytes.Buffer
		gzw := gzip.NewWriter(&buf)
		_, err := gzw.Write(buildTar(t, entries))
		gt.NoError(t, err)
		gt.NoError(t, gzw.Close())
		return buf.Bytes()
	}
	t.Fatalf("unsupported format %v", format)
	return nil
}

func writeArchive(t *testing.T, path string, format model.ArchiveFormat, entries []testEntry) {
	t.Helper()
	gt.NoError(t, os.WriteFile(path, buildArchive(t, format, entries), 0o644))
}

func buildZip(t *testing.T, entries []testEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, e := range entries {
		header := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		body := e.body
		switch e.kind {
		case kindDir:
			header.SetMode(fs.ModeDir | 0o755)
			if header.Name[len(header.Name)-1] != '/' {
				header.Name += "/"
			}
		case kindSymlink:
			header.SetMode(fs.ModeSymlink | 0o777)
			body = e.link
		case kindHardlink:
			t.Fatal("zip has no hardlinks")
		default:
			header.SetMode(0o644)
		}

		w, err := zw.CreateHeader(header)
		gt.NoError(t, err)
		_, err = w.Write([]byte(body))
		gt.NoError(t, err)
	}

	gt.NoError(t, zw.Close())
	return buf.Bytes()
}

func buildTar(t *testing.T, entries []testEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	for _, e := range entries {
		header := &tar.Header{Name: e.name, Mode: 0o644}
		switch e.kind {
		case kindDir:
			header.Typeflag = tar.TypeDir
			header.Mode = 0o755
		case kindSymlink:
			header.Typeflag = tar.TypeSymlink
			header.Linkname = e.link
		case kindHardlink:
			header.Typeflag = tar.TypeLink
			header.Linkname = e.link
		default:
			header.Typeflag = tar.TypeReg
			header.Size = int64(len(e.body))
		}

		gt.NoError(t, tw.WriteHeader(header))
		if e.kind == kindFile {
			_, err := tw.Write([]byte(e.body))
			gt.NoError(t, err)
		}
	}

	gt.NoError(t, tw.Close())
	return buf.Bytes()
}

func sorted(names []string) []string {
	out := slices.Clone(names)
	slices.Sort(out)
	return out
}

// tree returns every path under root relative to root, sorted
func tree(t *testing.T, root string) []string {
	t.Helper()
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	gt.NoError(t, err)
	slices.Sort(paths)
	return paths
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
