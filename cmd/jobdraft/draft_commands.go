package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"jobdraft/internal/api"
	"jobdraft/internal/daemonctl"
	"jobdraft/internal/drafts"
	"jobdraft/internal/extract"
)

const draftTimeLayout = "2006-01-02 15:04"

func newDraftCommand(ctx *commandContext) *cobra.Command {
	draftCmd := &cobra.Command{
		Use:     "draft",
		Aliases: []string{"drafts"},
		Short:   "Inspect and manage drafts",
	}
	draftCmd.AddCommand(newDraftListCommand(ctx))
	draftCmd.AddCommand(newDraftShowCommand(ctx))
	draftCmd.AddCommand(newDraftRetryCommand(ctx))
	draftCmd.AddCommand(newDraftCancelCommand(ctx))
	draftCmd.AddCommand(newDraftRemoveCommand(ctx))
	return draftCmd
}

func newDraftListCommand(ctx *commandContext) *cobra.Command {
	var (
		statusFlags  []string
		owner        string
		conversation string
		limit        uint64
		jsonOutput   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List drafts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := drafts.ListFilter{OwnerID: owner, ConversationID: conversation, Limit: limit}
			for _, value := range statusFlags {
				status, ok := drafts.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q (valid: %s)", value, validStatuses())
				}
				filter.Statuses = append(filter.Statuses, status)
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			views, err := api.NewDraftService(store).List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, api.DraftListResponse{Drafts: views})
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No drafts found")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, view := range views {
				rows = append(rows, []string{
					view.ID,
					view.Status,
					view.FailureKind,
					view.InputType,
					strconv.Itoa(view.Attempts),
					view.Title,
				})
			}
			headers := []string{"ID", "Status", "Failure", "Input", "Attempts", "Input Text"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}
			fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (pending, processing, completed, failed)")
	cmd.Flags().StringVar(&owner, "owner", "", "Filter by owner")
	cmd.Flags().StringVar(&conversation, "conversation", "", "Filter by conversation")
	cmd.Flags().Uint64Var(&limit, "limit", 0, "Maximum number of drafts")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func validStatuses() string {
	names := make([]string, 0, len(drafts.AllStatuses()))
	for _, status := range drafts.AllStatuses() {
		names = append(names, string(status))
	}
	return strings.Join(names, ", ")
}

func newDraftShowCommand(ctx *commandContext) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a draft and its document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := ctx.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			draft, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var doc *extract.Document
			if draft.Status == drafts.StatusCompleted {
				extracted := stack.Orchestrator.Extractor().Extract(draft.GeneratedText)
				doc = &extracted
			}

			out := cmd.OutOrStdout()
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "", "text":
				printDraftDetails(cmd, draft, doc)
				return nil
			case "json":
				payload := struct {
					Draft    api.DraftView     `json:"draft"`
					Document *api.DocumentView `json:"document,omitempty"`
				}{Draft: api.FromDraft(draft)}
				if doc != nil {
					view := api.FromDocument(draft.ID, doc)
					view.Markdown = extract.Markdown(*doc)
					payload.Document = &view
				}
				return writeJSON(cmd, payload)
			case "markdown", "md":
				if doc == nil {
					return fmt.Errorf("draft %s is %s; no document yet", draft.ID, draft.Status)
				}
				fmt.Fprint(out, extract.Markdown(*doc))
				return nil
			case "html":
				if doc == nil {
					return fmt.Errorf("draft %s is %s; no document yet", draft.ID, draft.Status)
				}
				rendered, err := extract.HTML(*doc)
				if err != nil {
					return err
				}
				fmt.Fprint(out, rendered)
				return nil
			default:
				return fmt.Errorf("unknown format %q (valid: text, json, markdown, html)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, markdown, html")
	return cmd
}

func printDraftDetails(cmd *cobra.Command, draft *drafts.Draft, doc *extract.Document) {
	out := cmd.OutOrStdout()
	rows := [][]string{
		{"ID", draft.ID},
		{"Status", string(draft.Status)},
		{"Input type", draft.InputType},
		{"Owner", draft.OwnerID},
		{"Attempts", strconv.Itoa(draft.Attempts)},
		{"Created", draft.CreatedAt.Local().Format(draftTimeLayout)},
		{"Updated", draft.UpdatedAt.Local().Format(draftTimeLayout)},
	}
	if draft.ConversationID != "" {
		rows = append(rows, []string{"Conversation", draft.ConversationID})
	}
	if draft.Provider != "" {
		rows = append(rows, []string{"Provider", draft.Provider})
	}
	if draft.FailureKind != "" {
		rows = append(rows, []string{"Failure", string(draft.FailureKind)})
	}
	if draft.ErrorMessage != "" {
		rows = append(rows, []string{"Error", draft.ErrorMessage})
	}
	fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, nil))
	fmt.Fprintf(out, "\nInput:\n%s\n", draft.RawInput)
	if doc == nil {
		if draft.Retryable() && draft.Status == drafts.StatusFailed {
			fmt.Fprintf(out, "\nRetry with: jobdraft draft retry %s\n", draft.ID)
		}
		return
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, extract.Markdown(*doc))
	printScores(out, *doc)
}

func newDraftRetryCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "retry <id>",
		Short: "Generate a failed draft again",
		Long: "Retry runs a new attempt for a failed draft. When the daemon is running the\n" +
			"attempt is scheduled there; otherwise it runs in this process.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := daemonctl.Connect(cmd.Context(), cfg)
			switch {
			case err == nil:
				view, err := client.Retry(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.DraftResponse{Draft: *view})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retry of draft %s scheduled in the daemon\n", view.ID)
				return nil
			case !errors.Is(err, daemonctl.ErrUnavailable):
				return err
			}

			stack, err := ctx.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			out, err := stack.Orchestrator.Retry(cmd.Context(), args[0])
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
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newDraftCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Abandon a generation running in the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := daemonctl.Connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			cancelled, err := client.Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cancelled {
				fmt.Fprintf(out, "Draft %s cancelled\n", args[0])
			} else {
				fmt.Fprintf(out, "Draft %s has no running generation\n", args[0])
			}
			return nil
		},
	}
}

func newDraftRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete drafts",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range args {
				if err := store.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed draft %s\n", id)
			}
			return nil
		},
	}
}
