package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/MeKo-Tech/silkgen/internal/batch"
	"github.com/MeKo-Tech/silkgen/internal/pipeline"
	"github.com/MeKo-Tech/silkgen/internal/utils"
	"github.com/spf13/cobra"
)

// stdoutPath selects standard output for --output.
const stdoutPath = "-"

func newImageCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image [flags] FILE...",
		Short: "Convert image files into footprints",
		Long: `Convert one or more PNG, JPEG, GIF, BMP, TIFF or WebP images into footprints.

Without --output each footprint is written to <name>.kicad_mod in the output
directory (default: the current directory). The footprint name is the file
stem unless --name is given.

Examples:
  silkgen image logo.png
  silkgen image logo.png --pitch 0.2mm --clearance 0.05mm -o Logo.kicad_mod
  silkgen image logo.png --format json --output -`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImage(cmd, args)
		},
	}

	addFootprintFlags(cmd)
	cmd.Flags().String("name", "", "footprint name (default: file stem; single input only)")
	cmd.Flags().StringP("output", "o", "", "output file, - for stdout (single input only)")
	cmd.Flags().Int("workers", 0, "row workers per image (0 = one per CPU)")
	cmd.Flags().Bool("progress", false, "show a row progress bar on stderr")
	bindFlag(cmd.Flags(), "output", "output.file")
	bindFlag(cmd.Flags(), "workers", "pipeline.workers")
	return cmd
}

func (a *app) runImage(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	output := a.config.Output.File
	if len(args) > 1 && (name != "" || output != "") {
		return errors.New("--name and --output need exactly one input file")
	}

	bcfg, err := a.config.ToBatchConfig()
	if err != nil {
		return err
	}
	if bcfg.OutputDir == "" {
		bcfg.OutputDir = "."
	}

	pcfg := bcfg.Pipeline
	if show, _ := cmd.Flags().GetBool("progress"); show {
		pcfg.Parallel.ProgressCallback = pipeline.NewConsoleProgressCallback(cmd.ErrOrStderr(), "Converting: ", "rows")
	}
	conv, err := pipeline.New(pcfg)
	if err != nil {
		return err
	}

	for _, path := range args {
		fpName := utils.FootprintName(path)
		if name != "" {
			fpName = utils.SanitizeName(name)
		}
		if err := convertImageFile(cmd, conv, bcfg, path, fpName, output); err != nil {
			return err
		}
	}
	return nil
}

func convertImageFile(cmd *cobra.Command, conv *pipeline.Converter, bcfg *batch.Config, path, name, output string) error {
	img, err := batch.LoadImage(path, bcfg)
	if err != nil {
		return err
	}

	if output == stdoutPath {
		res, err := conv.ConvertImage(cmd.Context(), img)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return batch.Encode(cmd.OutOrStdout(), name, res, conv.Config(), bcfg)
	}

	target := batch.TargetFor(bcfg, path, name)
	if output != "" {
		target.Output = output
		if target.Preview != "" {
			target.Preview = filepath.Join(filepath.Dir(output), name+batch.PreviewSuffix)
		}
	}

	res, err := batch.WriteFootprint(cmd.Context(), conv, img, target, bcfg)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("Footprint written", "input", path, "output", target.Output, "records", len(res.Records))
	printWritten(cmd.OutOrStdout(), target, res.Stats)
	return nil
}

func printWritten(w io.Writer, t batch.Target, stats pipeline.Stats) {
	_, _ = fmt.Fprintf(w, "Wrote %s (%d polygons, %d light / %d dark pixels)\n",
		t.Output, stats.Polygons, stats.LightPixels, stats.DarkPixels)
	if t.Preview != "" {
		_, _ = fmt.Fprintf(w, "Wrote %s\n", t.Preview)
	}
}
