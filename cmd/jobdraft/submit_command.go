package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"jobdraft/internal/api"
	"jobdraft/internal/extract"
	"jobdraft/internal/orchestrator"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		owner           string
		conversation    string
		ask             bool
		includeOptional bool
		answers         map[string]string
		jsonOutput      bool
	)
	cmd := &cobra.Command{
		Use:   "submit <text>",
		Short: "Generate a job description from a brief or reference link",
		Long: "Submit classifies the text, asks for clarification when it is not understood,\n" +
			"and otherwise creates a draft and generates it with the configured providers.\n" +
			"With --ask, missing brief fields are returned as questions before any draft is created.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := ctx.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			out, err := stack.Orchestrator.Submit(cmd.Context(), orchestrator.Submission{
				OwnerID:         owner,
				ConversationID:  conversation,
				Text:            joinArgs(args),
				AskFollowUps:    ask,
				IncludeOptional: includeOptional,
				Answers:         answers,
			})
			if out != nil {
				if jsonOutput {
					if encErr := writeJSON(cmd, api.FromOutcome(out)); encErr != nil {
						return encErr
					}
				} else {
					printOutcome(cmd.OutOrStdout(), out)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner recorded on the draft")
	cmd.Flags().StringVar(&conversation, "conversation", "", "Conversation the draft belongs to")
	cmd.Flags().BoolVar(&ask, "ask", false, "Ask follow-up questions before drafting when fields are missing")
	cmd.Flags().BoolVar(&includeOptional, "optional", false, "Include optional fields in follow-up questions")
	cmd.Flags().StringToStringVar(&answers, "answer", nil, "Answer to a follow-up field (field=answer, repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printOutcome(out io.Writer, outcome *orchestrator.Outcome) {
	switch {
	case outcome.Clarification != "":
		fmt.Fprintln(out, outcome.Clarification)
		return
	case len(outcome.FollowUps) > 0:
		fmt.Fprintln(out, "A few details would improve the draft:")
		for i, q := range outcome.FollowUps {
			fmt.Fprintf(out, "%d. %s\n", i+1, q)
		}
		return
	case outcome.Draft == nil:
		return
	}

	draft := outcome.Draft
	if outcome.Document == nil {
		fmt.Fprintf(out, "Draft %s is %s", draft.ID, draft.Status)
		if draft.FailureKind != "" {
			fmt.Fprintf(out, " (%s)", draft.FailureKind)
		}
		if draft.ErrorMessage != "" {
			fmt.Fprintf(out, ": %s", draft.ErrorMessage)
		}
		fmt.Fprintln(out)
		return
	}
	fmt.Fprintf(out, "Draft %s generated by %s\n\n", draft.ID, outcome.Provider)
	fmt.Fprint(out, extract.Markdown(*outcome.Document))
	printScores(out, *outcome.Document)
}

func printScores(out io.Writer, doc extract.Document) {
	fmt.Fprintf(out, "\nClarity %d · Inclusive language %d · Readability %d\n",
		doc.Scores.Clarity, doc.Scores.DEIFriendliness, doc.Scores.ReadingLevel)
}
