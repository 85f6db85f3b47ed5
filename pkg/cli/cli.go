package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/slipguard/pkg/cli/config"
	"github.com/m-mizutani/slipguard/pkg/domain/model"
	"github.com/m-mizutani/slipguard/pkg/domain/types"
	"github.com/m-mizutani/slipguard/pkg/infra/fetch"
	"github.com/m-mizutani/slipguard/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Run runs the CLI application
func Run(ctx context.Context, args []string) error {
	app, state := newApp()

	if err := app.Run(ctx, args); err != nil {
		logger := state.logger
		if logger == nil {
			logger = slog.Default()
		}

		attrs := []any{slog.Any("error", err)}
		if stage, ok := model.StageOf(err); ok {
			attrs = append(attrs, slog.String("stage", string(stage)))
		}
		logger.Error("CLI execution failed", attrs...)
		state.sentryCfg.Report(err, logger)
		return err
	}

	return nil
}

// New returns the root command
func New() *cli.Command {
	app, _ := newApp()
	return app
}

// appState is shared by the root command and its subcommands
type appState struct {
	loggerCfg  config.Logger
	fileCfg    config.File
	requestCfg config.Request
	fetchCfg   config.Fetch
	extractCfg config.Extract
	sentryCfg  config.Sentry
	slackCfg   config.Slack

	logger *slog.Logger
}

func newApp() (*cli.Command, *appState) {
	s := &appState{}

	var flags []cli.Flag
	flags = append(flags, s.loggerCfg.Flags()...)
	flags = append(flags, s.fileCfg.Flags()...)
	flags = append(flags, s.requestCfg.Flags()...)
	flags = append(flags, s.fetchCfg.Flags()...)
	flags = append(flags, s.extractCfg.Flags()...)
	flags = append(flags, s.sentryCfg.Flags()...)
	flags = append(flags, s.slackCfg.Flags()...)

	app := &cli.Command{
		Name:    types.AppName,
		Usage:   "Download an archive and extract it without letting any member escape the target directory",
		Version: types.Version,
		Description: "Runs fetch, classify, extract and cleanup in sequence. " +
			"Do not run two invocations against the same --fileName or --dataPath at once.",
		Flags:  flags,
		Before: s.before,
		Action: s.runPipeline,
		Commands: []*cli.Command{
			cmdInspect(s),
		},
	}

	return app, s
}

func (s *appState) before(ctx context.Context, c *cli.Command) (context.Context, error) {
	err := s.fileCfg.Apply(c, config.Settings{
		Logger:  &s.loggerCfg,
		Fetch:   &s.fetchCfg,
		Extract: &s.extractCfg,
		Sentry:  &s.sentryCfg,
		Slack:   &s.slackCfg,
	})
	if err != nil {
		return nil, err
	}

	logger, err := s.loggerCfg.Configure()
	if err != nil {
		return nil, err
	}
	s.logger = logger

	slog.SetDefault(logger)
	ctx = ctxlog.With(ctx, logger)

	if err := s.sentryCfg.Configure(); err != nil {
		return nil, err
	}

	return ctx, nil
}

func (s *appState) runPipeline(ctx context.Context, c *cli.Command) error {
	var opts []usecase.PipelineOption
	opts = append(opts, usecase.WithExtractor(usecase.NewExtractor(s.extractCfg.Options()...)))
	if notifier := s.slackCfg.Notifier(); notifier != nil {
		opts = append(opts, usecase.WithNotifier(notifier))
	}

	uc := usecase.NewPipeline(fetch.New(s.fetchCfg.Options()...), opts...)

	result, err := uc.Run(ctx, s.requestCfg.DownloadRequest())
	if err != nil {
		return goerr.Wrap(err, "download and extract failed")
	}

	ctxlog.From(ctx).Debug("Run completed",
		"entries", len(result.Entries),
		"file_count", result.FileCount,
	)
	return nil
}
