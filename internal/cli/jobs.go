package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/Siddharth-vip/teasergen/internal/jobs"
)

func newJobsCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List queued and finished jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			store, err := jobs.Open(cfg.Paths.DataDir)
			if err != nil {
				return err
			}
			defer store.Close()

			list, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no jobs")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderJobsTable(list))
			return nil
		},
	}
	return cmd
}

func renderJobsTable(list []*jobs.Job) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "STATUS", "SOURCE", "TONE", "LEN", "PROGRESS", "UPDATED"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	for _, j := range list {
		progress := fmt.Sprintf("%.0f%%", j.ProgressPercent)
		if j.ProgressStage != "" && !j.Status.Terminal() {
			progress = fmt.Sprintf("%s %.0f%%", j.ProgressStage, j.ProgressPercent)
		}
		tw.AppendRow(table.Row{
			shortID(j.ID),
			string(j.Status),
			truncateSource(j.Source, 48),
			string(j.Tone),
			fmt.Sprintf("%ds", j.DurationSec),
			progress,
			j.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	return tw.Render()
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func truncateSource(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "…" + s[len(s)-max+1:]
}
