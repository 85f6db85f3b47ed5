package usecase

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/slipguard/pkg/domain/interfaces"
	"github.com/m-mizutani/slipguard/pkg/domain/model"
)

type finalizer struct{}

// NewFinalizer creates a Finalizer that logs the listing and deletes the staged archive
func NewFinalizer() interfaces.Finalizer {
	return &finalizer{}
}

// Finalize logs the extraction listing and removes archivePath. Cleanup
// problems are logged and swallowed: extraction already succeeded and must
// not be reported as a failure.
func (f *finalizer) Finalize(ctx context.Context, archivePath string, result *model.ExtractionResult) error {
	logger := ctxlog.From(ctx)

	if result != nil {
		logger.Info("Result",
			"dest", result.ExtractedDirectory,
			"entries", result.Entries,
		)
	}

	logger.Info("Removing staged archive", "archive", archivePath)

	info, err := os.Lstat(archivePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Error("Staged archive is missing",
				"error", goerr.Wrap(model.ErrMissingArchive, "nothing to remove", goerr.V("archive", archivePath)),
			)
			return nil
		}
		logger.Error("Failed to stat staged archive", "error", err, "archive", archivePath)
		return nil
	}
	if info.IsDir() {
		logger.Error("Staged archive path is a directory, leaving it in place", "archive", archivePath)
		return nil
	}

	if err := os.Remove(archivePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Error("Staged archive is missing",
				"error", goerr.Wrap(model.ErrMissingArchive, "nothing to remove", goerr.V("archive", archivePath)),
			)
			return nil
		}
		logger.Error("Failed to remove staged archive", "error", err, "archive", archivePath)
		return nil
	}

	logger.Info("Finished")
	return nil
}
