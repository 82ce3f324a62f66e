package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/silkgen/internal/batch"
	"github.com/spf13/cobra"
)

func newBatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [flags] PATH...",
		Short: "Convert many images in parallel",
		Long: `Discover image files in the given files and directories and convert them
with a pool of workers. Footprints are written next to each input unless
--output-dir is set; repeated names get a numeric suffix.

Examples:
  silkgen batch assets/
  silkgen batch assets/ --recursive --include '*.png' --exclude 'draft_*'
  silkgen batch a.png b.png --workers 2 --summary json --summary-file report.json`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, args)
		},
	}

	addFootprintFlags(cmd)
	f := cmd.Flags()
	f.BoolP("recursive", "r", false, "descend into subdirectories")
	f.StringSlice("include", nil, "glob patterns of file names to include")
	f.StringSlice("exclude", nil, "glob patterns of file names to skip")
	f.IntP("workers", "w", 4, "number of files converted at once")
	f.Bool("continue-on-error", false, "keep converting after a file fails")
	f.String("summary", "text", "summary format (text, json, csv)")
	f.String("summary-file", "", "write the summary to this file instead of stdout")
	f.Bool("progress", false, "show a progress bar on stderr")
	f.BoolP("quiet", "q", false, "suppress the summary and statistics")
	f.Bool("stats", false, "print aggregate statistics after the summary")

	for flag, key := range map[string]string{
		"recursive":         "batch.recursive",
		"include":           "batch.include",
		"exclude":           "batch.exclude",
		"workers":           "batch.workers",
		"continue-on-error": "batch.continue_on_error",
		"summary":           "batch.summary",
		"summary-file":      "batch.summary_file",
	} {
		bindFlag(f, flag, key)
	}
	return cmd
}

func (a *app) runBatch(cmd *cobra.Command, args []string) error {
	bcfg, err := a.config.ToBatchConfig()
	if err != nil {
		return err
	}
	bcfg.ShowProgress, _ = cmd.Flags().GetBool("progress")
	bcfg.Quiet, _ = cmd.Flags().GetBool("quiet")

	res, err := batch.ProcessBatch(cmd.Context(), args, bcfg)
	if res != nil && !bcfg.Quiet {
		if saveErr := res.SaveResults(cmd.OutOrStdout(), a.config.Batch.Summary, a.config.Batch.SummaryFile); saveErr != nil {
			return saveErr
		}
		if stats, _ := cmd.Flags().GetBool("stats"); stats {
			res.PrintStats(cmd.OutOrStdout())
		}
	}
	if err != nil {
		return err
	}
	if n := res.Failed(); n > 0 {
		return fmt.Errorf("%d of %d files failed", n, len(res.Files))
	}
	return nil
}
