package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/silkgen/internal/batch"
	"github.com/MeKo-Tech/silkgen/internal/pdf"
	"github.com/MeKo-Tech/silkgen/internal/pipeline"
	"github.com/MeKo-Tech/silkgen/internal/utils"
	"github.com/spf13/cobra"
)

// extractImages is replaced in tests.
var extractImages = pdf.ExtractImages

func newPDFCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdf [flags] FILE.pdf...",
		Short: "Convert the images embedded in PDF files into footprints",
		Long: `Extract the raster images embedded in PDF documents and convert each into
a footprint named <stem>_p<page>_<n>, where n counts the images on a page.

Examples:
  silkgen pdf artwork.pdf
  silkgen pdf artwork.pdf --pages 2-3 --output-dir footprints
  silkgen pdf locked.pdf --password secret`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPDF(cmd, args)
		},
	}

	addFootprintFlags(cmd)
	cmd.Flags().String("pages", "", "page range to extract, e.g. 1-3,5 (default: all pages)")
	cmd.Flags().String("password", "", "user password for encrypted PDFs")
	cmd.Flags().String("owner-password", "", "owner password for encrypted PDFs")
	cmd.Flags().Int("workers", 0, "row workers per image (0 = one per CPU)")
	bindFlag(cmd.Flags(), "workers", "pipeline.workers")
	return cmd
}

func (a *app) runPDF(cmd *cobra.Command, args []string) error {
	pages, _ := cmd.Flags().GetString("pages")
	userPW, _ := cmd.Flags().GetString("password")
	ownerPW, _ := cmd.Flags().GetString("owner-password")
	opts := pdf.Options{Pages: pages, UserPassword: userPW, OwnerPassword: ownerPW}

	bcfg, err := a.config.ToBatchConfig()
	if err != nil {
		return err
	}
	conv, err := pipeline.New(bcfg.Pipeline)
	if err != nil {
		return err
	}

	for _, path := range args {
		if err := convertPDFFile(cmd, conv, bcfg, path, opts); err != nil {
			return err
		}
	}
	return nil
}

func convertPDFFile(cmd *cobra.Command, conv *pipeline.Converter, bcfg *batch.Config, path string, opts pdf.Options) error {
	images, err := extractImages(path, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	slog.Info("Extracted PDF images", "file", path, "images", len(images))

	stem := utils.SanitizeName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	for _, pi := range images {
		name := pi.Name(stem)
		img, err := batch.PrepareImage(pi.Image, bcfg)
		if err != nil {
			return fmt.Errorf("%s page %d image %d: %w", path, pi.Page, pi.Index, err)
		}
		target := batch.TargetFor(bcfg, path, name)
		res, err := batch.WriteFootprint(cmd.Context(), conv, img, target, bcfg)
		if err != nil {
			return fmt.Errorf("%s page %d image %d: %w", path, pi.Page, pi.Index, err)
		}
		printWritten(cmd.OutOrStdout(), target, res.Stats)
	}
	return nil
}
