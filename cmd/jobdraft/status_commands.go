package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jobdraft/internal/api"
	"jobdraft/internal/daemonctl"
	"jobdraft/internal/drafts"
	"jobdraft/internal/providers"
)

func newProvidersCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List configured providers and whether they are usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			views := api.FromDiagnostics(providers.NewRegistryFromConfig(cfg).Diagnostics())
			if jsonOutput {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No providers configured")
				return nil
			}
			fmt.Fprintln(out, renderProviders(out, views))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderProviders(out io.Writer, views []api.ProviderView) string {
	rows := make([][]string, 0, len(views))
	for _, p := range views {
		state := "active"
		if !p.Valid {
			state = "excluded: " + p.Reason
		}
		rows = append(rows, []string{strconv.Itoa(p.Priority), p.Name, p.Kind, p.Model, p.Credential, state})
	}
	headers := []string{"Priority", "Name", "Kind", "Model", "Credential", "State"}
	aligns := []columnAlignment{alignRight}
	return renderTable(out, headers, rows, aligns)
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show providers, cooldown, and draft counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var status *api.StatusView
			client, err := daemonctl.Connect(cmd.Context(), cfg)
			switch {
			case err == nil:
				status, err = client.Status(cmd.Context())
				if err != nil {
					return err
				}
			case errors.Is(err, daemonctl.ErrUnavailable):
				status, err = localStatus(cmd, ctx)
				if err != nil {
					return err
				}
			default:
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, status)
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func localStatus(cmd *cobra.Command, ctx *commandContext) (*api.StatusView, error) {
	store, err := ctx.openStore()
	if err != nil {
		return nil, err
	}
	stats, err := api.NewDraftService(store).Stats(cmd.Context())
	if err != nil {
		return nil, err
	}
	state, err := store.LoadRateLimitState(cmd.Context())
	if err != nil {
		return nil, err
	}
	return &api.StatusView{
		Running:      false,
		DatabasePath: store.Path(),
		LockFilePath: ctx.config.LockPath(),
		Providers:    api.FromDiagnostics(providers.NewRegistryFromConfig(ctx.config).Diagnostics()),
		Cooldown:     api.FromRateLimitState(state, time.Now()),
		InFlight:     []string{},
		DraftStats:   stats,
	}, nil
}

func printStatus(out io.Writer, status *api.StatusView) {
	daemonLine := "not running"
	if status.Running {
		daemonLine = fmt.Sprintf("running (pid %d)", status.PID)
	}
	fmt.Fprintf(out, "Daemon:   %s\n", daemonLine)
	fmt.Fprintf(out, "Database: %s\n", status.DatabasePath)

	cooldown := "none"
	if status.Cooldown.Active {
		cooldown = fmt.Sprintf("active, %ds remaining (until %s)", status.Cooldown.RemainingSeconds, status.Cooldown.ResetAt)
	}
	fmt.Fprintf(out, "Cooldown: %s\n", cooldown)
	if len(status.InFlight) > 0 {
		fmt.Fprintf(out, "Running:  %s\n", strings.Join(status.InFlight, ", "))
	}

	counts := make([]string, 0, len(drafts.AllStatuses()))
	for _, s := range drafts.AllStatuses() {
		counts = append(counts, fmt.Sprintf("%s %d", s, status.DraftStats[string(s)]))
	}
	fmt.Fprintf(out, "Drafts:   %s\n\n", strings.Join(counts, " · "))
	if len(status.Providers) == 0 {
		fmt.Fprintln(out, "No providers configured")
		return
	}
	fmt.Fprintln(out, renderProviders(out, status.Providers))
}

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      uint64
		kind       string
		draftID    string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent provider, fetch, and draft events",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			events, err := api.NewDraftService(store).Events(cmd.Context(), drafts.EventFilter{Kind: kind, DraftID: draftID, Limit: limit})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, api.EventListResponse{Events: events})
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No events recorded")
				return nil
			}
			rows := make([][]string, 0, len(events))
			for _, ev := range events {
				rows = append(rows, []string{ev.CreatedAt, ev.Kind, ev.Source, ev.DraftID, ev.Message})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Time", "Kind", "Source", "Draft", "Message"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().Uint64VarP(&limit, "limit", "n", 20, "Maximum number of events")
	cmd.Flags().StringVar(&kind, "kind", "", "Filter by event kind")
	cmd.Flags().StringVar(&draftID, "draft", "", "Filter by draft id")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
