package usecase

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/slipguard/pkg/domain/interfaces"
	"github.com/m-mizutani/slipguard/pkg/domain/model"
	"github.com/m-mizutani/slipguard/pkg/utils/safepath"
)

// NewInspector creates an Inspector applying the same checks as the
// extractor built with the same options
func NewInspector(opts ...ExtractOption) interfaces.Inspector {
	x := &extractor{
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Inspect reports a verdict for every member instead of stopping at the
// first violation. Only operational failures are returned as errors.
func (x *extractor) Inspect(ctx context.Context, archivePath string, format model.ArchiveFormat, destDir string) ([]model.MemberVerdict, error) {
	if format == model.FormatUnsupported {
		return nil, goerr.Wrap(model.ErrUnsupportedFormat, "refusing to inspect archive",
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

	resolvedDest, err := safepath.Resolve(destDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve destination directory", goerr.V("dest", destDir))
	}

	verdicts := make([]model.MemberVerdict, len(members))
	symlinks := make(map[string]bool)

	for i, m := range members {
		if err := ctx.Err(); err != nil {
			return nil, goerr.Wrap(err, "inspection cancelled")
		}

		verdicts[i].Member = m
		target, err := resolveMember(m, resolvedDest)
		if err != nil {
			if reject(&verdicts[i], err) {
				continue
			}
			return nil, err
		}
		verdicts[i].Target = target
		verdicts[i].Safe = true

		if target == resolvedDest && m.Kind != model.MemberDirectory {
			verdicts[i].Safe = false
			verdicts[i].Reason = "member resolves to the destination directory itself"
			continue
		}
		if m.Kind == model.MemberSymlink {
			symlinks[target] = true
		}
	}

	for i := range verdicts {
		v := &verdicts[i]
		if !v.Safe {
			continue
		}

		switch v.Member.Kind {
		case model.MemberRegular:
			if x.maxFileSize > 0 && v.Member.Size > x.maxFileSize {
				v.Safe = false
				v.Reason = model.ErrFileTooLarge.Error()
			}

		case model.MemberSymlink:
			if _, err := checkLink(v.Member, filepath.Dir(v.Target), resolvedDest, symlinks); err != nil && !reject(v, err) {
				return nil, err
			}

		case model.MemberHardlink:
			linked, err := checkLink(v.Member, resolvedDest, resolvedDest, symlinks)
			if err != nil {
				if !reject(v, err) {
					return nil, err
				}
				continue
			}
			if linked == resolvedDest {
				v.Safe = false
				v.Reason = "hardlink target is the destination directory"
			}
		}
	}

	return verdicts, nil
}

// reject marks v unsafe if err is a traversal error and reports whether it was
func reject(v *model.MemberVerdict, err error) bool {
	var pte *model.PathTraversalError
	if !errors.As(err, &pte) {
		return false
	}
	v.Safe = false
	v.Target = pte.Target
	v.Reason = pte.Reason
	return true
}
