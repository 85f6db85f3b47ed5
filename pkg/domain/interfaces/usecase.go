package interfaces

import (
	"context"

	"github.com/m-mizutani/slipguard/pkg/domain/model"
)

// Extractor extracts a staged archive into a destination directory
type Extractor interface {
	// ExtractSafely validates every member against destDir before writing any
	// of them and returns the resulting top-level listing
	ExtractSafely(ctx context.Context, archivePath string, format model.ArchiveFormat, destDir string) (*model.ExtractionResult, error)
}

// Finalizer reports the extraction result and removes the staged archive
type Finalizer interface {
	// Finalize never fails the run because of a missing archive
	Finalize(ctx context.Context, archivePath string, result *model.ExtractionResult) error
}

// PipelineUseCase runs fetch, classify, extract and finalize in sequence
type PipelineUseCase interface {
	Run(ctx context.Context, req *model.DownloadRequest) (*model.ExtractionResult, error)
}

// Inspector checks every member of an archive against a destination
// directory without writing anything
type Inspector interface {
	Inspect(ctx context.Context, archivePath string, format model.ArchiveFormat, destDir string) ([]model.MemberVerdict, error)
}
