package usecase

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/slipguard/pkg/domain/interfaces"
	"github.com/m-mizutani/slipguard/pkg/domain/model"
	"github.com/m-mizutani/slipguard/pkg/utils/safepath"
)

// DefaultMaxFileSize is the default per-member decompression limit (10GB)
const DefaultMaxFileSize int64 = 10 * 1024 * 1024 * 1024

// ExtractOption is a functional option for Extractor
type ExtractOption func(*extractor)

// WithMaxFileSize sets the per-member decompression limit. Zero disables it.
func WithMaxFileSize(limit int64) ExtractOption {
	return func(x *extractor) {
		x.maxFileSize = limit
	}
}

type extractor struct {
	maxFileSize int64
}

// NewExtractor creates an Extractor that validates every member of an
// archive before writing any of them.
func NewExtractor(opts ...ExtractOption) interfaces.Extractor {
	x := &extractor{
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// plannedMember is a member that passed validation together with its resolved
// output location
type plannedMember struct {
	model.ArchiveMember
	target     string // Resolved absolute path the member is written to
	linkSource string // Hardlink: resolved path of the existing file
}

// ExtractSafely extracts archivePath into destDir. All members are enumerated
// and checked against destDir first; if any member fails, nothing is written
// and the destination directory is not created.
func (x *extractor) ExtractSafely(ctx context.Context, archivePath string, format model.ArchiveFormat, destDir string) (*model.ExtractionResult, error) {
	logger := ctxlog.From(ctx)

	if format == model.FormatUnsupported {
		return nil, goerr.Wrap(model.ErrUnsupportedFormat, "refusing to extract archive",
			goerr.V("archive", archivePath),
		)
	}

	src, err := openSource(archivePath, format)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	members, err := src.members()
	if err != nil {
		return nil, err
	}

	logger.Info("Validating archive members",
		"archive", archivePath,
		"format", format.String(),
		"dest", destDir,
		"member_count", len(members),
	)

	resolvedDest, err := safepath.Resolve(destDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve destination directory", goerr.V("dest", destDir))
	}

	plan, err := x.plan(ctx, members, resolvedDest)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(resolvedDest, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create destination directory", goerr.V("dest", resolvedDest))
	}

	result := &model.ExtractionResult{
		ExtractedDirectory: destDir,
	}

	// Directories and regular files first, in archive order
	err = src.walk(func(idx int, r io.Reader) error {
		if err := ctx.Err(); err != nil {
			return goerr.Wrap(err, "extraction cancelled")
		}

		p := plan[idx]
		switch p.Kind {
		case model.MemberDirectory:
			if err := os.MkdirAll(p.target, dirMode(p.Mode)); err != nil {
				return goerr.Wrap(err, "failed to create directory", goerr.V("member", p.RelativePath))
			}
		case model.MemberRegular:
			written, err := x.writeFile(p, r)
			if err != nil {
				return err
			}
			result.FileCount++
			result.TotalSize += written
		case model.MemberOther:
			logger.Debug("Skipping special archive member", "member", p.RelativePath, "mode", p.Mode.String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Links last so that no write above goes through a link from this archive
	for _, p := range plan {
		if p.Kind != model.MemberSymlink && p.Kind != model.MemberHardlink {
			continue
		}
		if err := writeLink(p); err != nil {
			return nil, err
		}
	}

	entries, err := os.ReadDir(resolvedDest)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list destination directory", goerr.V("dest", resolvedDest))
	}
	result.Entries = make([]string, 0, len(entries))
	for _, entry := range entries {
		result.Entries = append(result.Entries, entry.Name())
	}

	logger.Info("Extracted archive",
		"dest", destDir,
		"file_count", result.FileCount,
		"total_size_bytes", result.TotalSize,
	)

	return result, nil
}

// plan validates every member against resolvedDest. It returns the first
// violation; no file system changes are made.
func (x *extractor) plan(ctx context.Context, members []model.ArchiveMember, resolvedDest string) ([]plannedMember, error) {
	plan := make([]plannedMember, 0, len(members))
	symlinks := make(map[string]bool)

	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return nil, goerr.Wrap(err, "validation cancelled")
		}

		target, err := resolveMember(m, resolvedDest)
		if err != nil {
			return nil, err
		}
		if target == resolvedDest && m.Kind != model.MemberDirectory {
			return nil, traversal(m, target, resolvedDest, "member resolves to the destination directory itself")
		}
		if m.Kind == model.MemberSymlink {
			symlinks[target] = true
		}

		plan = append(plan, plannedMember{ArchiveMember: m, target: target})
	}

	for i := range plan {
		p := &plan[i]

		switch p.Kind {
		case model.MemberRegular:
			if x.maxFileSize > 0 && p.Size > x.maxFileSize {
				return nil, goerr.Wrap(model.ErrFileTooLarge, "archive member too large",
					goerr.V("member", p.RelativePath),
					goerr.V("size", p.Size),
					goerr.V("limit", x.maxFileSize),
				)
			}

		case model.MemberSymlink:
			if _, err := checkLink(p.ArchiveMember, filepath.Dir(p.target), resolvedDest, symlinks); err != nil {
				return nil, err
			}

		case model.MemberHardlink:
			linked, err := checkLink(p.ArchiveMember, resolvedDest, resolvedDest, symlinks)
			if err != nil {
				return nil, err
			}
			if linked == resolvedDest {
				return nil, traversal(p.ArchiveMember, linked, resolvedDest, "hardlink target is the destination directory")
			}
			p.linkSource = linked
		}
	}

	return plan, nil
}

// checkLink resolves the target of a link member relative to base and
// rejects it if it lands outside resolvedDest or climbs out of another
// symlink of the same archive with "..".
func checkLink(m model.ArchiveMember, base, resolvedDest string, symlinks map[string]bool) (string, error) {
	if m.LinkTarget == "" || safepath.IsAbsName(m.LinkTarget) {
		return "", traversal(m, m.LinkTarget, resolvedDest, "link target must be a relative path")
	}

	rel := normalizeName(m.LinkTarget)
	if climbsThroughLink(base, rel, symlinks) {
		return "", traversal(m, m.LinkTarget, resolvedDest, "link target climbs out of another symlink")
	}

	linked, err := safepath.Resolve(filepath.Join(base, rel))
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve link target", goerr.V("member", m.RelativePath))
	}
	if !safepath.Within(resolvedDest, linked) {
		return "", traversal(m, linked, resolvedDest, "link target escapes destination")
	}
	return linked, nil
}

// climbsThroughLink walks rel from base and reports whether a ".." component
// follows a path that is a symlink, either a member of this archive or one
// already on disk. Lexical cleaning would otherwise hide where the kernel
// actually ends up.
func climbsThroughLink(base, rel string, symlinks map[string]bool) bool {
	cur := base
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		switch part {
		case "", ".":
		case "..":
			if symlinks[cur] || isSymlink(cur) {
				return true
			}
			cur = filepath.Dir(cur)
		default:
			cur = filepath.Join(cur, part)
		}
	}
	return false
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&fs.ModeSymlink != 0
}

// resolveMember computes the resolved output path of m under resolvedDest and
// rejects absolute names and anything that lands outside.
func resolveMember(m model.ArchiveMember, resolvedDest string) (string, error) {
	if safepath.IsAbsName(m.RelativePath) {
		return "", traversal(m, m.RelativePath, resolvedDest, "absolute member path")
	}

	candidate := filepath.Join(resolvedDest, normalizeName(m.RelativePath))

	// An existing non-directory entry is replaced rather than written through,
	// so only the parent of such a member is resolved on disk
	var resolved string
	var err error
	if m.Kind == model.MemberDirectory {
		resolved, err = safepath.Resolve(candidate)
	} else {
		var parent string
		parent, err = safepath.Resolve(filepath.Dir(candidate))
		resolved = filepath.Join(parent, filepath.Base(candidate))
	}
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve member path", goerr.V("member", m.RelativePath))
	}
	if !safepath.Within(resolvedDest, resolved) {
		return "", traversal(m, resolved, resolvedDest, "member path escapes destination")
	}
	return resolved, nil
}

// normalizeName treats backslashes as separators so that "..\\x" is caught on
// every platform
func normalizeName(name string) string {
	return filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
}

func traversal(m model.ArchiveMember, target, dest, reason string) error {
	return goerr.Wrap(&model.PathTraversalError{
		Member:      m.RelativePath,
		Target:      target,
		Destination: dest,
		Reason:      reason,
	}, "unsafe archive member", goerr.V("member", m.RelativePath))
}

func (x *extractor) writeFile(p plannedMember, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(p.target), 0o755); err != nil {
		return 0, goerr.Wrap(err, "failed to create parent directory", goerr.V("member", p.RelativePath))
	}
	if err := removeNonDir(p.target); err != nil {
		return 0, goerr.Wrap(err, "failed to replace existing entry", goerr.V("member", p.RelativePath))
	}

	out, err := os.OpenFile(p.target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode(p.Mode))
	if err != nil {
		return 0, goerr.Wrap(err, "failed to create file", goerr.V("member", p.RelativePath))
	}

	src := r
	if x.maxFileSize > 0 {
		src = io.LimitReader(r, x.maxFileSize+1)
	}
	written, err := io.Copy(out, src)
	if err != nil {
		_ = out.Close()
		return 0, goerr.Wrap(err, "failed to write file", goerr.V("member", p.RelativePath))
	}
	if err := out.Close(); err != nil {
		return 0, goerr.Wrap(err, "failed to close file", goerr.V("member", p.RelativePath))
	}

	// Declared size can lie; the limit applies to what was actually decompressed
	if x.maxFileSize > 0 && written > x.maxFileSize {
		_ = os.Remove(p.target)
		return 0, goerr.Wrap(model.ErrFileTooLarge, "decompressed size exceeds limit",
			goerr.V("member", p.RelativePath),
			goerr.V("limit", x.maxFileSize),
		)
	}

	return written, nil
}

func writeLink(p plannedMember) error {
	if err := os.MkdirAll(filepath.Dir(p.target), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create parent directory", goerr.V("member", p.RelativePath))
	}
	if err := removeNonDir(p.target); err != nil {
		return goerr.Wrap(err, "failed to replace existing entry", goerr.V("member", p.RelativePath))
	}

	if p.Kind == model.MemberHardlink {
		if err := os.Link(p.linkSource, p.target); err != nil {
			return goerr.Wrap(err, "failed to create hardlink", goerr.V("member", p.RelativePath))
		}
		return nil
	}

	if err := os.Symlink(normalizeName(p.LinkTarget), p.target); err != nil {
		return goerr.Wrap(err, "failed to create symlink", goerr.V("member", p.RelativePath))
	}
	return nil
}

// removeNonDir removes an existing file or symlink at path so that a new
// entry never writes through a link left by a previous run
func removeNonDir(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return os.Remove(path)
}

func fileMode(mode fs.FileMode) fs.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		return 0o644
	}
	return perm | 0o600
}

func dirMode(mode fs.FileMode) fs.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		return 0o755
	}
	return perm | 0o700
}
