package cmd

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/silkgen/internal/pdf"
	"github.com/MeKo-Tech/silkgen/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExtract replaces PDF extraction for the duration of a test.
func stubExtract(t *testing.T, fn func(string, pdf.Options) ([]pdf.PageImage, error)) {
	t.Helper()
	prev := extractImages
	extractImages = fn
	t.Cleanup(func() { extractImages = prev })
}

func TestPDFCommandConvertsEveryImage(t *testing.T) {
	dir := isolate(t)
	var got pdf.Options
	stubExtract(t, func(_ string, opts pdf.Options) ([]pdf.PageImage, error) {
		got = opts
		return []pdf.PageImage{
			{Page: 1, Index: 1, Image: testutil.ImageFromRows("o#")},
			{Page: 1, Index: 2, Image: testutil.ImageFromRows("##")},
			{Page: 3, Index: 1, Image: testutil.ImageFromRows("#")},
		}, nil
	})

	outDir := filepath.Join(dir, "fp")
	out, _, err := runCommand(t, "pdf", filepath.Join(dir, "Board Art.pdf"),
		"--pages", "1-3", "--password", "user", "--owner-password", "owner", "--output-dir", outDir)
	require.NoError(t, err)

	assert.Equal(t, pdf.Options{Pages: "1-3", UserPassword: "user", OwnerPassword: "owner"}, got)
	for _, name := range []string{"Board_Art_p1_1", "Board_Art_p1_2", "Board_Art_p3_1"} {
		content := testutil.ReadFile(t, filepath.Join(outDir, name+".kicad_mod"))
		assert.True(t, strings.HasPrefix(content, "(footprint \""+name+"\"\n"), name)
	}
	assert.Equal(t, 3, strings.Count(out, "Wrote "))
}

func TestPDFCommandDefaultsNextToInput(t *testing.T) {
	dir := isolate(t)
	stubExtract(t, func(string, pdf.Options) ([]pdf.PageImage, error) {
		return []pdf.PageImage{{Page: 2, Index: 1, Image: testutil.ImageFromRows("o#")}}, nil
	})

	docs := filepath.Join(dir, "docs")
	_, _, err := runCommand(t, "pdf", filepath.Join(docs, "logo.pdf"), "-f", "json")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(docs, "logo_p2_1.json"))
}

func TestPDFCommandErrors(t *testing.T) {
	dir := isolate(t)

	t.Run("extraction fails", func(t *testing.T) {
		stubExtract(t, func(string, pdf.Options) ([]pdf.PageImage, error) {
			return nil, pdf.ErrNoImages
		})
		_, _, err := runCommand(t, "pdf", filepath.Join(dir, "empty.pdf"))
		require.ErrorIs(t, err, pdf.ErrNoImages)
		assert.Contains(t, err.Error(), "empty.pdf")
	})

	t.Run("blank page image", func(t *testing.T) {
		stubExtract(t, func(string, pdf.Options) ([]pdf.PageImage, error) {
			return []pdf.PageImage{{Page: 4, Index: 2, Image: testutil.ImageFromRows("..")}}, nil
		})
		_, _, err := runCommand(t, "pdf", filepath.Join(dir, "blank.pdf"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "page 4 image 2")
	})

	t.Run("real extraction of a missing file", func(t *testing.T) {
		_, _, err := runCommand(t, "pdf", filepath.Join(dir, "missing.pdf"))
		require.Error(t, err)
		assert.False(t, errors.Is(err, pdf.ErrNoImages))
	})
}
