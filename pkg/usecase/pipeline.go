package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/slipguard/pkg/domain/interfaces"
	"github.com/m-mizutani/slipguard/pkg/domain/model"
	"github.com/m-mizutani/slipguard/pkg/utils/async"
)

// notifyTimeout bounds a failure notification, which also runs after the
// run context was cancelled
const notifyTimeout = 10 * time.Second

// PipelineOption is a functional option for the pipeline use case
type PipelineOption func(*pipeline)

// WithExtractor replaces the default extractor
func WithExtractor(extractor interfaces.Extractor) PipelineOption {
	return func(p *pipeline) {
		p.extractor = extractor
	}
}

// WithFinalizer replaces the default finalizer
func WithFinalizer(finalizer interfaces.Finalizer) PipelineOption {
	return func(p *pipeline) {
		p.finalizer = finalizer
	}
}

// WithNotifier sets a notifier that is called when a run fails
func WithNotifier(notifier interfaces.Notifier) PipelineOption {
	return func(p *pipeline) {
		p.notifier = notifier
	}
}

type pipeline struct {
	fetcher   interfaces.Fetcher
	extractor interfaces.Extractor
	finalizer interfaces.Finalizer
	notifier  interfaces.Notifier
}

// NewPipeline creates the download-and-extract use case
func NewPipeline(fetcher interfaces.Fetcher, opts ...PipelineOption) interfaces.PipelineUseCase {
	p := &pipeline{
		fetcher:   fetcher,
		extractor: NewExtractor(),
		finalizer: NewFinalizer(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run fetches req.URL to req.FileName, extracts it into req.DataPath and
// removes the staged archive. Stages run strictly in sequence; the first
// failure aborts the run and is returned as a *model.StageError.
func (uc *pipeline) Run(ctx context.Context, req *model.DownloadRequest) (*model.ExtractionResult, error) {
	logger := ctxlog.From(ctx)

	if err := req.Validate(); err != nil {
		return nil, uc.fail(ctx, req, model.StageValidate, err)
	}

	logger.Info("Downloading from URL", "url", req.URL)
	logger.Info("Downloading to persistent volume", "file_name", req.FileName)

	if err := uc.fetcher.Fetch(ctx, req.URL, req.FileName); err != nil {
		return nil, uc.fail(ctx, req, model.StageFetch, err)
	}

	logger.Info("Downloaded", "file_name", req.FileName)

	format := req.Format()
	if format == model.FormatUnsupported {
		return nil, uc.fail(ctx, req, model.StageClassify,
			goerr.Wrap(model.ErrUnsupportedFormat, "file name must end with .zip, .tar.gz or .tar",
				goerr.V("file_name", req.FileName),
			),
		)
	}

	logger.Info("Extracting",
		"dest", req.DataPath,
		"format", format.String(),
	)

	result, err := uc.extractor.ExtractSafely(ctx, req.FileName, format, req.DataPath)
	if err != nil {
		return nil, uc.fail(ctx, req, model.StageExtract, err)
	}

	if err := uc.finalizer.Finalize(ctx, req.FileName, result); err != nil {
		logger.Error("Cleanup failed",
			"stage", string(model.StageFinalize),
			"error", err,
			"archive", req.FileName,
		)
	}

	return result, nil
}

func (uc *pipeline) fail(ctx context.Context, req *model.DownloadRequest, stage model.Stage, cause error) error {
	logger := ctxlog.From(ctx)

	err := goerr.Wrap(&model.StageError{Stage: stage, Err: cause}, "pipeline aborted",
		goerr.V("stage", string(stage)),
		goerr.V("url", req.URL),
		goerr.V("file_name", req.FileName),
		goerr.V("data_path", req.DataPath),
	)

	if uc.notifier != nil {
		nerr := async.RunDetached(ctx, notifyTimeout, func(ctx context.Context) error {
			return uc.notifier.NotifyFailure(ctx, req, stage, err)
		})
		if nerr != nil {
			logger.Warn("Failed to send failure notification", "error", nerr)
		}
	}

	return err
}
