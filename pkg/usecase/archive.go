package usecase

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"io"
	"io/fs"
	"math"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/slipguard/pkg/domain/model"
)

// maxLinkTargetSize bounds how much of a zip symlink entry is read as its target
const maxLinkTargetSize = 4096

// memberSource enumerates the members of an archive and streams their content
// in archive order. Indices passed to walk match the slice from members.
type memberSource interface {
	members() ([]model.ArchiveMember, error)
	walk(fn func(idx int, r io.Reader) error) error
	Close() error
}

func openSource(archivePath string, format model.ArchiveFormat) (memberSource, error) {
	switch format {
	case model.FormatZip:
		// Non-local names are reported by our own validation with the member
		// name attached, so the reader's ErrInsecurePath is not fatal here
		r, err := zip.OpenReader(archivePath)
		if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && r != nil) {
			return nil, goerr.Wrap(err, "failed to open zip archive", goerr.V("archive", archivePath))
		}
		return &zipSource{reader: r}, nil

	case model.FormatTarPlain, model.FormatTarGzip:
		if _, err := os.Stat(archivePath); err != nil {
			return nil, goerr.Wrap(err, "failed to open tar archive", goerr.V("archive", archivePath))
		}
		return &tarSource{path: archivePath, gzipped: format == model.FormatTarGzip}, nil

	default:
		return nil, goerr.Wrap(model.ErrUnsupportedFormat, "refusing to open archive",
			goerr.V("archive", archivePath),
			goerr.V("format", format.String()),
		)
	}
}

type zipSource struct {
	reader *zip.ReadCloser
}

func (s *zipSource) members() ([]model.ArchiveMember, error) {
	members := make([]model.ArchiveMember, 0, len(s.reader.File))
	for _, f := range s.reader.File {
		mode := f.Mode()
		m := model.ArchiveMember{
			RelativePath: f.Name,
			Mode:         mode,
		}

		if f.UncompressedSize64 > math.MaxInt64 {
			m.Size = math.MaxInt64
		} else {
			m.Size = int64(f.UncompressedSize64)
		}

		switch {
		case f.FileInfo().IsDir():
			m.Kind = model.MemberDirectory
			m.IsDirectory = true
		case mode&fs.ModeSymlink != 0:
			target, err := readZipLink(f)
			if err != nil {
				return nil, err
			}
			m.Kind = model.MemberSymlink
			m.LinkTarget = target
		case mode.IsRegular():
			m.Kind = model.MemberRegular
		default:
			m.Kind = model.MemberOther
		}

		members = append(members, m)
	}
	return members, nil
}

// readZipLink returns the target of a zip symlink entry, which is stored as
// the entry content
func readZipLink(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", goerr.Wrap(err, "failed to open symlink entry", goerr.V("member", f.Name))
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxLinkTargetSize+1))
	if err != nil {
		return "", goerr.Wrap(err, "failed to read symlink entry", goerr.V("member", f.Name))
	}
	if len(data) > maxLinkTargetSize {
		return "", goerr.New("symlink target too long", goerr.V("member", f.Name))
	}
	return string(data), nil
}

func (s *zipSource) walk(fn func(idx int, r io.Reader) error) error {
	for idx, f := range s.reader.File {
		if err := s.visit(idx, f, fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *zipSource) visit(idx int, f *zip.File, fn func(idx int, r io.Reader) error) error {
	rc, err := f.Open()
	if err != nil {
		return goerr.Wrap(err, "failed to open zip entry", goerr.V("member", f.Name))
	}
	defer rc.Close()

	return fn(idx, rc)
}

func (s *zipSource) Close() error {
	return s.reader.Close()
}

// tarSource re-reads the file for every pass since tar is a stream format
type tarSource struct {
	path    string
	gzipped bool
}

func (s *tarSource) open() (*tar.Reader, func(), error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to open tar archive", goerr.V("archive", s.path))
	}

	if !s.gzipped {
		return tar.NewReader(f), func() { _ = f.Close() }, nil
	}

	gzr, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, goerr.Wrap(err, "failed to create gzip reader", goerr.V("archive", s.path))
	}
	return tar.NewReader(gzr), func() {
		_ = gzr.Close()
		_ = f.Close()
	}, nil
}

func (s *tarSource) members() ([]model.ArchiveMember, error) {
	var members []model.ArchiveMember
	err := s.each(func(_ int, header *tar.Header, _ io.Reader) error {
		members = append(members, tarMember(header))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (s *tarSource) walk(fn func(idx int, r io.Reader) error) error {
	return s.each(func(idx int, _ *tar.Header, r io.Reader) error {
		return fn(idx, r)
	})
}

func (s *tarSource) each(fn func(idx int, header *tar.Header, r io.Reader) error) error {
	tr, closer, err := s.open()
	if err != nil {
		return err
	}
	defer closer()

	for idx := 0; ; idx++ {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil && !(errors.Is(err, tar.ErrInsecurePath) && header != nil) {
			return goerr.Wrap(err, "failed to read tar header", goerr.V("archive", s.path), goerr.V("index", idx))
		}
		if err := fn(idx, header, tr); err != nil {
			return err
		}
	}
}

func (s *tarSource) Close() error {
	return nil
}

func tarMember(header *tar.Header) model.ArchiveMember {
	m := model.ArchiveMember{
		RelativePath: header.Name,
		LinkTarget:   header.Linkname,
		Size:         header.Size,
		Mode:         header.FileInfo().Mode(),
	}

	switch header.Typeflag {
	case tar.TypeDir:
		m.Kind = model.MemberDirectory
		m.IsDirectory = true
	case tar.TypeSymlink:
		m.Kind = model.MemberSymlink
	case tar.TypeLink:
		m.Kind = model.MemberHardlink
	case tar.TypeReg:
		m.Kind = model.MemberRegular
	default:
		if header.FileInfo().Mode().IsRegular() && header.Typeflag != tar.TypeXGlobalHeader {
			m.Kind = model.MemberRegular
		} else {
			m.Kind = model.MemberOther
		}
	}
	return m
}
