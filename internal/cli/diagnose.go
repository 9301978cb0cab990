package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rusenback/erpmon/internal/diagnose"
	"github.com/rusenback/erpmon/internal/model"
	"github.com/rusenback/erpmon/internal/monitor"
)

// diagnoseOutput is what the diagnose command prints.
type diagnoseOutput struct {
	ExitCode  int                   `json:"exitCode"`
	Diagnosis *model.ErrorDiagnosis `json:"diagnosis"`
}

func (a *app) newDiagnoseCmd() *cobra.Command {
	var (
		exitCode int
		echo     bool
	)
	cmd := &cobra.Command{
		Use:   "diagnose [file]",
		Short: "Explain a failed deployment from its output",
		Long: `diagnose reads deployment output from a file, or stdin when no file
is given, and prints the network failure it recognizes as JSON. The
diagnosis is null when the output matches no known failure or the
exit code is zero.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open output file: %w", err)
				}
				defer f.Close()
				r = f
			}

			w := monitor.NewDeployWatcher(diagnose.NewClassifier(a.cfg.Ports), nil, a.logger, monitor.DefaultMaxLines)
			if echo {
				errOut := cmd.ErrOrStderr()
				w.OnLine = func(line string) { fmt.Fprintln(errOut, line) }
			}
			res, err := w.Watch(cmd.Context(), r, monitor.ExitCode(exitCode))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(diagnoseOutput{ExitCode: res.ExitCode, Diagnosis: res.Diagnosis})
		},
	}
	cmd.Flags().IntVarP(&exitCode, "exit-code", "e", 1, "exit code of the deployment")
	cmd.Flags().BoolVar(&echo, "echo", false, "copy the output to stderr while reading it")
	return cmd
}
