package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"dupscan/internal/api"
	"dupscan/internal/session"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored detection sessions",
	}

	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsShowCommand(ctx))
	sessionsCmd.AddCommand(newSessionsDeleteCommand(ctx))
	sessionsCmd.AddCommand(newSessionsStatsCommand(ctx))

	return sessionsCmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var modeFlag string
	var limitFlag int
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			sessions, err := api.ListSessions(cmd.Context(), api.ListSessionsRequest{
				Config: cfg,
				Status: statusFlag,
				Mode:   modeFlag,
				Limit:  limitFlag,
			})
			if err != nil {
				return err
			}

			if jsonFlag {
				return writeJSON(cmd, sessions)
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions stored")
				return nil
			}

			colorize := shouldColorize(out)
			headers := []string{"Session", "Mode", "Status", "Files", "Groups", "Duplicates", "Took", "Created"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft}
			rows := make([][]string, 0, len(sessions))
			for _, sess := range sessions {
				rows = append(rows, []string{
					sess.ID,
					sess.Mode,
					colorizeStatus(sess.Status, colorize),
					formatCount(sess.TotalFiles),
					formatCount(sess.TotalGroups),
					formatCount(sess.TotalDuplicates),
					formatDurationMs(sess.DetectionTimeMs),
					formatTimestamp(sess.CreatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "",
		fmt.Sprintf("Filter by status (%s)", strings.Join(session.StatusNames(), ", ")))
	cmd.Flags().StringVar(&modeFlag, "mode", "", "Filter by detection mode")
	cmd.Flags().IntVar(&limitFlag, "limit", 0, "Maximum sessions to list (0 = all)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit sessions as JSON")
	return cmd
}

func newSessionsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session with its duplicate groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			result, err := api.GetSessionResult(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}

			if jsonFlag {
				return writeJSON(cmd, result)
			}

			printSessionDetail(cmd, result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit the session as JSON")
	return cmd
}

func printSessionDetail(cmd *cobra.Command, result *api.SessionResult) {
	out := cmd.OutOrStdout()
	sess := result.Session
	colorize := shouldColorize(out)

	fmt.Fprintf(out, "Session:     %s\n", sess.ID)
	fmt.Fprintf(out, "Mode:        %s\n", sess.Mode)
	fmt.Fprintf(out, "Status:      %s\n", colorizeStatus(sess.Status, colorize))
	fmt.Fprintf(out, "Created:     %s\n", formatTimestamp(sess.CreatedAt))
	fmt.Fprintf(out, "Completed:   %s\n", formatTimestamp(sess.CompletedAt))
	fmt.Fprintf(out, "Files:       %s\n", formatCount(sess.TotalFiles))
	fmt.Fprintf(out, "Groups:      %s\n", formatCount(sess.TotalGroups))
	fmt.Fprintf(out, "Duplicates:  %s (%s of files)\n",
		formatCount(sess.TotalDuplicates), formatPercent(sess.DuplicatePercentage()))
	fmt.Fprintf(out, "Took:        %s\n", formatDurationMs(sess.DetectionTimeMs))
	fmt.Fprintf(out, "Success:     %s\n", formatPercent(sess.SuccessRate()))

	if len(sess.Performance) > 0 {
		fmt.Fprintln(out)
		headers := []string{"Detector", "Processed", "Skipped", "Groups", "Took", "Rate", "Errored"}
		aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}
		rows := make([][]string, 0, len(sess.Performance))
		for _, perf := range sess.Performance {
			rows = append(rows, []string{
				perf.Detector,
				formatCount(perf.FilesProcessed),
				formatCount(perf.FilesSkipped),
				formatCount(perf.GroupsFound),
				perf.Elapsed.String(),
				fmt.Sprintf("%.0f/s", perf.FilesPerSecond()),
				yesNo(perf.Errored),
			})
		}
		fmt.Fprintln(out, renderTable(headers, rows, aligns))
	}

	for _, warning := range sess.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", warning)
	}
	for _, errText := range sess.Errors {
		fmt.Fprintf(out, "Error: %s\n", errText)
	}

	if len(result.Groups) == 0 {
		fmt.Fprintln(out, "\nNo duplicate groups found")
		return
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderGroupsTable(result.Groups))

	for _, group := range result.Groups {
		fmt.Fprintf(out, "\nGroup %s (%s, confidence %s):\n",
			shortID(group.ID), joinMethods(group.Methods), formatPercent(group.Confidence))
		for _, file := range group.Files {
			marker := " "
			if file.IsOriginal {
				marker = "*"
			}
			fmt.Fprintf(out, "  %s %s (%s", marker, file.Path, formatSize(file.Size))
			if len(file.Reasons) > 0 {
				fmt.Fprintf(out, ", %s", strings.Join(file.Reasons, ", "))
			}
			fmt.Fprintln(out, ")")
		}
		if group.FileCount > len(group.Files) {
			fmt.Fprintf(out, "  ... %d more files not shown\n", group.FileCount-len(group.Files))
		}
	}
}

func newSessionsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a stored session and its groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := api.DeleteSession(cmd.Context(), cfg, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
			return nil
		},
	}
}

func newSessionsStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate statistics across stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stats, err := api.GetStatistics(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			if jsonFlag {
				return writeJSON(cmd, stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sessions:        %s\n", formatCount(stats.TotalSessions))
			fmt.Fprintf(out, "Files scanned:   %s\n", formatCount(stats.TotalFilesScanned))
			fmt.Fprintf(out, "Groups found:    %s\n", formatCount(stats.TotalGroups))
			fmt.Fprintf(out, "Duplicates:      %s\n", formatCount(stats.TotalDuplicates))
			fmt.Fprintf(out, "Avg detection:   %s\n", formatDurationMs(int64(stats.AverageDetectionMs)))
			fmt.Fprintf(out, "Latest session:  %s\n", formatTimestamp(stats.LatestSessionAt))
			if len(stats.SessionsByStatus) > 0 {
				fmt.Fprintln(out, "By status:")
				for _, status := range session.StatusNames() {
					if count, ok := stats.SessionsByStatus[status]; ok {
						fmt.Fprintf(out, "  %-22s %s\n", status, formatCount(count))
					}
				}
			}
			if len(stats.SessionsByMode) > 0 {
				fmt.Fprintln(out, "By mode:")
				modes := make([]string, 0, len(stats.SessionsByMode))
				for mode := range stats.SessionsByMode {
					modes = append(modes, mode)
				}
				sort.Strings(modes)
				for _, mode := range modes {
					fmt.Fprintf(out, "  %-22s %s\n", mode, formatCount(stats.SessionsByMode[mode]))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit statistics as JSON")
	return cmd
}
