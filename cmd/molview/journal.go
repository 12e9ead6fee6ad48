package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/philipparndt/gomol/internal/journal"
	"github.com/spf13/cobra"
)

var errNoJournal = errors.New("no journal configured (use --journal or GOMOL_JOURNAL)")

func newJournalCmd(opts *globalOptions) *cobra.Command {
	var (
		limit int
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recorded measurements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if cfg.JournalPath == "" {
				return errNoJournal
			}
			store, err := journal.Open(cfg.JournalPath)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			if clearAll {
				if err := store.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(w, "Journal cleared")
				return nil
			}

			entries, err := store.List(ctx, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(w, "No measurements recorded")
				return nil
			}

			table := tablewriter.NewWriter(w)
			table.SetHeader([]string{"Time", "Source", "Kind", "Value", "Atoms"})
			table.SetBorder(false)
			table.SetCenterSeparator("")
			table.SetAutoWrapText(false)
			table.SetColumnAlignment([]int{
				tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
				tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
			})
			for _, e := range entries {
				table.Append([]string{
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					e.Source,
					string(e.Kind),
					fmt.Sprintf("%.3f %s", e.Value, e.Unit),
					strings.Join(e.Atoms, " | "),
				})
			}
			table.SetFooter([]string{"", "", "", "Total", fmt.Sprintf("%d", len(entries))})
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries, newest first (0 for all)")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete every recorded measurement")
	return cmd
}
