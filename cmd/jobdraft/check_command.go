package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"jobdraft/internal/preflight"
	"jobdraft/internal/providers"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var (
		live       bool
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check directories and provider configuration",
		Long: "Check verifies the data and log directories and reports which providers are\n" +
			"usable. With --live each active provider receives a tiny completion request.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := preflight.Options{Live: live}
			if live {
				logger, err := ctx.logger()
				if err != nil {
					return err
				}
				opts.Client = providers.NewClients(providers.WithLogger(logger))
			}
			results := preflight.RunAll(cmd.Context(), cfg, opts)
			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					state := "ok"
					if !r.Passed {
						state = "FAIL"
					}
					rows = append(rows, []string{r.Name, state, r.Detail})
				}
				fmt.Fprintln(out, renderTable(out, []string{"Check", "Result", "Detail"}, rows, nil))
			}
			if !preflight.Passed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "Send a test request to every active provider")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
