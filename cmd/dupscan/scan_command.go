package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"dupscan/internal/api"
	"dupscan/internal/detect"
	"dupscan/internal/session"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string
	var thresholdFlag float64
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "scan [roots...]",
		Short: "Scan directories for duplicate files",
		Long: "Scan catalogs the given directories, runs the enabled detection " +
			"algorithms, and stores the result as a new session. Interrupting " +
			"the scan (Ctrl-C) cancels it cooperatively and keeps partial findings.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("threshold") {
				cfg.Detection.SimilarityThreshold = thresholdFlag
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := api.StartDetection(runCtx, api.StartDetectionRequest{
				Config: cfg,
				Logger: logger,
				Roots:  args,
				Mode:   modeFlag,
			})
			if err != nil {
				return err
			}

			if jsonFlag {
				return writeJSON(cmd, scanPayload{
					Session:          result.Session,
					Groups:           result.Groups,
					CatalogTruncated: result.CatalogTruncated,
				})
			}

			printScanSummary(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&modeFlag, "mode", "m", string(detect.ModeComprehensive),
		fmt.Sprintf("Detection mode (%s)", strings.Join(detect.ModeNames(), ", ")))
	cmd.Flags().Float64VarP(&thresholdFlag, "threshold", "t", detect.DefaultSimilarityThreshold,
		"Perceptual similarity threshold (0-100) for this scan")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit the session and groups as JSON")
	return cmd
}

type scanPayload struct {
	Session          *session.Session         `json:"session"`
	Groups           []session.DuplicateGroup `json:"groups"`
	CatalogTruncated bool                     `json:"catalog_truncated"`
}

func printScanSummary(cmd *cobra.Command, result *api.StartDetectionResult) {
	out := cmd.OutOrStdout()
	sess := result.Session
	colorize := shouldColorize(out)

	fmt.Fprintf(out, "Session %s finished with status %s\n", sess.ID, colorizeStatus(sess.Status, colorize))
	fmt.Fprintf(out, "Scanned %s files in %s; %s duplicate groups covering %s files\n",
		formatCount(sess.TotalFiles),
		formatDurationMs(sess.DetectionTimeMs),
		formatCount(sess.TotalGroups),
		formatCount(sess.TotalDuplicates),
	)
	if result.CatalogTruncated {
		fmt.Fprintln(out, "Note: catalog hit the max_files cap; not every file was scanned")
	}
	for _, warning := range sess.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", warning)
	}
	for _, errText := range sess.Errors {
		fmt.Fprintf(out, "Error: %s\n", errText)
	}

	if len(result.Groups) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderGroupsTable(result.Groups))
	}

	fmt.Fprintf(out, "\nInspect details with: dupscan sessions show %s\n", sess.ID)
}

func renderGroupsTable(groups []session.DuplicateGroup) string {
	headers := []string{"#", "Group", "Methods", "Confidence", "Files", "Size", "Original", "Verify"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft}

	rows := make([][]string, 0, len(groups))
	for _, group := range groups {
		original := "-"
		if file := group.SuggestedOriginal(); file != nil {
			original = file.Path
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", group.Rank),
			shortID(group.ID),
			joinMethods(group.Methods),
			formatPercent(group.Confidence),
			formatCount(group.FileCount),
			formatSize(group.TotalSize),
			original,
			yesNo(group.NeedsVerification),
		})
	}
	return renderTable(headers, rows, aligns)
}
