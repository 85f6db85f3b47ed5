package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/slipguard/pkg/domain/model"
	"github.com/m-mizutani/slipguard/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdInspect(s *appState) *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Aliases:   []string{"i"},
		Usage:     "Check every member of a local archive against --dataPath without extracting it",
		ArgsUsage: " ",
		Action: func(ctx context.Context, c *cli.Command) error {
			fileName := s.requestCfg.FileName
			format := model.Classify(fileName)

			inspector := usecase.NewInspector(s.extractCfg.Options()...)
			verdicts, err := inspector.Inspect(ctx, fileName, format, s.requestCfg.DataPath)
			if err != nil {
				return goerr.Wrap(err, "failed to inspect archive", goerr.V("file_name", fileName))
			}

			w := c.Root().Writer
			if w == nil {
				w = os.Stdout
			}

			unsafe := printVerdicts(w, fileName, format, verdicts)
			if unsafe > 0 {
				return goerr.Wrap(model.ErrPathTraversal, "archive contains unsafe members",
					goerr.V("file_name", fileName),
					goerr.V("unsafe", unsafe),
				)
			}
			return nil
		},
	}
}

// printVerdicts writes one line per member and returns the unsafe count
func printVerdicts(w io.Writer, fileName string, format model.ArchiveFormat, verdicts []model.MemberVerdict) int {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "%s (%s)\n", cyan(fileName), format.String())

	unsafe := 0
	for _, v := range verdicts {
		name := v.Member.RelativePath
		if v.Member.LinkTarget != "" {
			name += " -> " + v.Member.LinkTarget
		}

		if v.Safe {
			fmt.Fprintf(w, "  %s %-8s %s\n", green("OK    "), v.Member.Kind.String(), name)
			continue
		}
		unsafe++
		fmt.Fprintf(w, "  %s %-8s %s %s\n", red("UNSAFE"), v.Member.Kind.String(), name, gray("("+v.Reason+")"))
	}

	fmt.Fprintf(w, "%d members, %d unsafe\n", len(verdicts), unsafe)
	return unsafe
}
