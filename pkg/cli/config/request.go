package config

import (
	"github.com/m-mizutani/slipguard/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// Request holds the pipeline input
type Request struct {
	URL      string
	FileName string
	DataPath string
}

// Flags returns CLI flags for the download request. They are inherited by
// subcommands. The camelCase names match existing pipeline definitions.
func (c *Request) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "url",
			Usage:       "URL of the archive to download (http, https, ftp or gs)",
			Destination: &c.URL,
			Sources:     cli.EnvVars("SLIPGUARD_URL"),
		},
		c.fileNameFlag(),
		c.dataPathFlag(),
	}
}

func (c *Request) fileNameFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "fileName",
		Usage:       "Local file name the archive is stored as; the suffix selects the format (.zip, .tar.gz, .tar)",
		Value:       model.DefaultFileName,
		Destination: &c.FileName,
		Sources:     cli.EnvVars("SLIPGUARD_FILE_NAME"),
	}
}

func (c *Request) dataPathFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "dataPath",
		Usage:       "Directory the archive is extracted into",
		Value:       model.DefaultDataPath,
		Destination: &c.DataPath,
		Sources:     cli.EnvVars("SLIPGUARD_DATA_PATH"),
	}
}

// DownloadRequest returns the request as given. Validation is left to the
// pipeline so that a bad input is reported as a validate stage failure.
func (c *Request) DownloadRequest() *model.DownloadRequest {
	return &model.DownloadRequest{
		URL:      c.URL,
		FileName: c.FileName,
		DataPath: c.DataPath,
	}
}
