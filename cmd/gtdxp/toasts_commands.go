package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/gtdxp-os/internal/store"
)

func newToastsCommand(ctx *commandContext) *cobra.Command {
	toastsCmd := &cobra.Command{
		Use:   "toasts",
		Short: "Inspect notification history",
	}

	toastsCmd.AddCommand(newToastsHistoryCommand(ctx))
	toastsCmd.AddCommand(newToastsPruneCommand(ctx))

	return toastsCmd
}

func newToastsHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent notifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			records, err := s.ListNotifications(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No notifications recorded")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, r := range records {
				dismissed := "-"
				if r.DismissedAt != nil {
					dismissed = r.DismissedAt.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{
					shortID(r.ID),
					r.Kind,
					r.Title,
					r.CreatedAt.Local().Format(time.DateTime),
					strconv.FormatInt(r.DurationMS, 10),
					dismissed,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Kind", "Title", "Created", "Duration (ms)", "Dismissed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultListLimit, "Maximum number of entries")
	return cmd
}

func newToastsPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old notification history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			s, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			n, err := s.PruneNotifications(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d notifications\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Remove entries created before this age")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
