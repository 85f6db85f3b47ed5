package config

import (
	"github.com/m-mizutani/slipguard/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Extract holds extraction limits
type Extract struct {
	MaxFileSize int64
}

// Flags returns CLI flags for extraction configuration
func (c *Extract) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "max-file-size",
			Usage:       "Largest decompressed size of a single member in bytes (0 for no limit)",
			Value:       usecase.DefaultMaxFileSize,
			Destination: &c.MaxFileSize,
			Sources:     cli.EnvVars("SLIPGUARD_MAX_FILE_SIZE"),
		},
	}
}

// Options converts the configuration into extractor options
func (c *Extract) Options() []usecase.ExtractOption {
	return []usecase.ExtractOption{
		usecase.WithMaxFileSize(c.MaxFileSize),
	}
}
