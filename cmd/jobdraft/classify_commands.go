package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"jobdraft/internal/api"
	"jobdraft/internal/classify"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Show how a submission would be understood",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := ctx.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			classifier := stack.Orchestrator.Classifier()
			cls := classifier.Classify(joinArgs(args))
			view := api.FromAdvice(cls, classifier.Advise(cls, classify.AdviseOptions{}))
			if jsonOutput {
				return writeJSON(cmd, view)
			}
			printClassification(cmd.OutOrStdout(), view)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newFollowUpsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var includeOptional bool
	cmd := &cobra.Command{
		Use:   "followups <text>",
		Short: "List follow-up questions for a brief",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := ctx.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			classifier := stack.Orchestrator.Classifier()
			cls := classifier.Classify(joinArgs(args))
			advice := classifier.Advise(cls, classify.AdviseOptions{IncludeOptional: includeOptional})
			view := api.FromAdvice(cls, advice)
			if jsonOutput {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			if view.Clarification != "" {
				fmt.Fprintln(out, view.Clarification)
				return nil
			}
			if len(view.Questions) == 0 {
				fmt.Fprintln(out, "No follow-up questions; the brief covers the standard fields.")
				return nil
			}
			for i, q := range view.Questions {
				fmt.Fprintf(out, "%d. %s\n", i+1, q)
			}
			missing := make([]string, 0, len(advice.Missing))
			for _, id := range advice.Missing {
				missing = append(missing, fmt.Sprintf("%s (%s)", classifier.FieldLabel(id), id))
			}
			if len(missing) > 0 {
				fmt.Fprintf(out, "\nMissing: %s\n", strings.Join(missing, ", "))
				fmt.Fprintln(out, "Answer with: jobdraft submit --answer <field>=<answer> ...")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&includeOptional, "optional", false, "Also ask about optional fields such as compensation")
	return cmd
}

func printClassification(out io.Writer, view api.AdviceView) {
	cls := view.Classification
	rows := [][]string{
		{"Mode", cls.Mode},
		{"Confidence", strconv.FormatFloat(cls.Confidence, 'f', 2, 64)},
		{"Reliable", yesNo(cls.Reliable)},
	}
	if cls.URL != "" {
		rows = append(rows, []string{"URL", cls.URL})
	}
	if view.Clarification != "" {
		rows = append(rows, []string{"Clarify", view.Clarification})
	}
	if len(view.Missing) > 0 {
		rows = append(rows, []string{"Missing", strings.Join(view.Missing, ", ")})
	}
	fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, nil))
}
