package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/silkgen/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// artworkTree lays out a small artwork library and returns its root.
//
//	root/
//	  logo.png  badge.jpg  draft_logo.png  notes.txt  logo.kicad_mod
//	  boards/rev2.png  boards/rev2.yaml
func artworkTree(t *testing.T) string {
	t.Helper()
	root := testutil.CreateTempDir(t)
	for _, name := range []string{
		"logo.png", "badge.jpg", "draft_logo.png", "notes.txt", "logo.kicad_mod",
		"boards/rev2.png", "boards/rev2.yaml",
	} {
		path := filepath.Join(root, name)
		require.NoError(t, testutil.EnsureDir(filepath.Dir(path)))
		require.NoError(t, os.WriteFile(path, []byte(name), 0o600))
	}
	return root
}

func TestDiscoverInDirectory(t *testing.T) {
	root := artworkTree(t)
	in := func(names ...string) []string {
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = filepath.Join(root, n)
		}
		return out
	}

	tests := []struct {
		name      string
		recursive bool
		include   []string
		exclude   []string
		want      []string
	}{
		{
			name: "top level images only",
			want: in("badge.jpg", "draft_logo.png", "logo.png"),
		},
		{
			name:      "recursive walks subdirectories in lexical order",
			recursive: true,
			want:      in("badge.jpg", "boards/rev2.png", "draft_logo.png", "logo.png"),
		},
		{
			name:    "include narrows the selection",
			include: []string{"*.png"},
			want:    in("draft_logo.png", "logo.png"),
		},
		{
			name:      "exclude wins over include",
			recursive: true,
			include:   []string{"*.png"},
			exclude:   []string{"draft_*"},
			want:      in("boards/rev2.png", "logo.png"),
		},
		{
			name:    "include cannot resurrect unsupported files",
			include: []string{"*.txt", "*.kicad_mod"},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := discoverInDirectory(root, tt.recursive, tt.include, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, files)
		})
	}
}

func TestDiscoverImageFiles(t *testing.T) {
	root := artworkTree(t)
	logo := filepath.Join(root, "logo.png")

	t.Run("no arguments", func(t *testing.T) {
		files, err := discoverImageFiles(nil, false, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("explicit files bypass the extension check", func(t *testing.T) {
		notes := filepath.Join(root, "notes.txt")
		files, err := discoverImageFiles([]string{notes, logo}, false, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{notes, logo}, files)
	})

	t.Run("explicit files still honor exclude", func(t *testing.T) {
		files, err := discoverImageFiles([]string{logo}, false, nil, []string{"logo.*"})
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("duplicates are dropped", func(t *testing.T) {
		files, err := discoverImageFiles([]string{logo, root, filepath.Join(root, ".", "logo.png")}, false, []string{"logo.png"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{logo}, files)
	})

	t.Run("missing path", func(t *testing.T) {
		files, err := discoverImageFiles([]string{filepath.Join(root, "missing")}, false, nil, nil)
		require.Error(t, err)
		assert.Nil(t, files)
		assert.Contains(t, err.Error(), "cannot access")
	})
}

func TestMatchesPatterns(t *testing.T) {
	tests := []struct {
		path     string
		patterns []string
		want     bool
	}{
		{"logo.png", nil, false},
		{"logo.png", []string{"*.png"}, true},
		{"logo.PNG", []string{"*.png"}, false},
		{"art/logo.png", []string{"logo.*"}, true},
		{"art/logo.png", []string{"art/*"}, false},
		{"badge.jpg", []string{"*.png", "badge.*"}, true},
		{"board.pdf", []string{"*.png", "*.jpg"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchesAnyPattern(tt.path, tt.patterns), "path=%s patterns=%v", tt.path, tt.patterns)
	}
}
