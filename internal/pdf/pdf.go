// Package pdf pulls embedded raster images out of PDF documents so they can
// be converted like standalone image files.
package pdf

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/silkgen/internal/utils"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNoImages is returned when the selected pages contain no decodable images.
var ErrNoImages = errors.New("no images found in PDF")

// Options controls extraction.
type Options struct {
	// Pages selects pages like "1-3,5". Empty means all pages.
	Pages string
	// UserPassword and OwnerPassword open encrypted documents.
	UserPassword  string
	OwnerPassword string
}

// PageImage is one embedded image. Index counts from 1 within its page.
type PageImage struct {
	Page  int
	Index int
	Image image.Image
}

// Name returns "<stem>_p<page>_<index>".
func (p PageImage) Name(stem string) string {
	return fmt.Sprintf("%s_p%d_%d", stem, p.Page, p.Index)
}

// ExtractImages extracts the embedded images of a PDF file, ordered by page
// and then by extraction order.
func ExtractImages(filename string, opts Options) ([]PageImage, error) {
	pageNumbers, err := parsePageRange(opts.Pages)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", opts.Pages, err)
	}

	tempDir, err := os.MkdirTemp("", "silkgen-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var pageStrings []string
	if len(pageNumbers) > 0 {
		pageStrings = make([]string, len(pageNumbers))
		for i, pageNum := range pageNumbers {
			pageStrings[i] = strconv.Itoa(pageNum)
		}
	}

	if err := api.ExtractImagesFile(filename, tempDir, pageStrings, newConfiguration(opts)); err != nil {
		if IsPasswordError(err) {
			return nil, fmt.Errorf("PDF is encrypted, check the password: %w", err)
		}
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	images, err := collectExtractedImages(tempDir, documentStem(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	return images, nil
}

func newConfiguration(opts Options) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	if opts.UserPassword != "" {
		conf.UserPW = opts.UserPassword
	}
	if opts.OwnerPassword != "" {
		conf.OwnerPW = opts.OwnerPassword
	}
	return conf
}

// documentStem is the prefix pdfcpu puts in front of extracted file names.
func documentStem(filename string) string {
	return strings.TrimSuffix(filepath.Base(filename), ".pdf")
}

// collectExtractedImages reads the files pdfcpu wrote to dir. Files are
// named "<stem>_<page>[_<resource>].<ext>".
func collectExtractedImages(dir, stem string) ([]PageImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	// ReadDir sorts by name, so images keep a stable order within a page.
	var images []PageImage
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		page, err := parsePageFromFilename(entry.Name(), stem)
		if err != nil {
			slog.Debug("Skipping extracted file", "file", entry.Name(), "error", err)
			continue
		}
		img, meta, err := utils.LoadImage(filepath.Join(dir, entry.Name()), nil)
		if err != nil {
			slog.Warn("Skipping undecodable PDF image", "file", entry.Name(), "page", page, "error", err)
			continue
		}
		slog.Debug("Extracted PDF image", "file", entry.Name(), "page", page,
			"format", meta.Format, "width", meta.Width, "height", meta.Height)
		images = append(images, PageImage{Page: page, Image: img})
	}

	sort.SliceStable(images, func(i, j int) bool { return images[i].Page < images[j].Page })
	for i := range images {
		if i > 0 && images[i-1].Page == images[i].Page {
			images[i].Index = images[i-1].Index + 1
		} else {
			images[i].Index = 1
		}
	}
	return images, nil
}

// parsePageFromFilename extracts the page number from an extracted file name.
func parsePageFromFilename(filename, stem string) (int, error) {
	rest, ok := strings.CutPrefix(filename, stem+"_")
	if !ok {
		return 0, errors.New("not a page file")
	}
	end := strings.IndexAny(rest, "_.")
	if end <= 0 {
		return 0, errors.New("invalid filename format")
	}
	pageNum, err := strconv.Atoi(rest[:end])
	if err != nil || pageNum < 1 {
		return 0, errors.New("invalid page number")
	}
	return pageNum, nil
}

// parsePageRange parses a page range string like "1-5" or "1,3,5".
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range token (e.g., "1-5").
func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := parsePage(rangeParts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
		}
		end, err := parsePage(rangeParts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := parsePage(part)
	if err != nil {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}

func parsePage(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.New("pages start at 1")
	}
	return n, nil
}

// IsPasswordError reports whether err looks like an encryption failure.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, keyword := range []string{"password", "encrypted", "decrypt"} {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}
