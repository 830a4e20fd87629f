package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	dublang "dubber/internal/language"
	"dubber/internal/runstore"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "status [run-id]",
		Short: "Show recent dubbing runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openStore(cfg)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				return printRunDetail(cmd, store, args[0])
			}
			return printRunList(cmd, store, limitFlag)
		},
	}

	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 10, "Number of runs to show")
	return cmd
}

func printRunList(cmd *cobra.Command, store *runstore.Store, limit int) error {
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Run", "Input", "Lang", "Status", "Started"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignLeft},
		{Number: 5, Align: text.AlignRight},
	})

	title := cases.Title(language.English)
	for _, run := range runs {
		tw.AppendRow(table.Row{
			shortID(run.ID),
			filepath.Base(run.InputPath),
			run.TargetLang,
			title.String(run.Status),
			relativeTime(run.CreatedAt),
		})
	}
	fmt.Fprintln(out, tw.Render())
	return nil
}

func printRunDetail(cmd *cobra.Command, store *runstore.Store, runID string) error {
	ctx := cmd.Context()
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Run %s\n", run.ID)
	fmt.Fprintf(out, "  Input:    %s\n", run.InputPath)
	fmt.Fprintf(out, "  Language: %s (%s)\n", dublang.DisplayName(run.TargetLang), run.TargetLang)
	fmt.Fprintf(out, "  Status:   %s\n", run.Status)
	if run.OutputPath != "" {
		fmt.Fprintf(out, "  Output:   %s\n", run.OutputPath)
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:    %s\n", run.ErrorMessage)
	}

	history, err := store.StageHistory(ctx, run.ID)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		tw := table.NewWriter()
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"Stage", "Status", "Detail"})
		for _, t := range history {
			tw.AppendRow(table.Row{t.Stage, t.Status, t.Detail})
		}
		fmt.Fprintln(out, tw.Render())
	}

	outcomes, err := store.SegmentOutcomes(ctx, run.ID)
	if err != nil {
		return err
	}
	if len(outcomes) > 0 {
		fallbacks, dropped := 0, 0
		for _, o := range outcomes {
			switch o.Status {
			case "fallback_original":
				fallbacks++
			case "dropped":
				dropped++
			}
		}
		fmt.Fprintf(out, "Segments: %d total, %d original-audio fallbacks, %d dropped\n",
			len(outcomes), fallbacks, dropped)
	}
	return nil
}

func shortID(id string) string {
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	return id
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
