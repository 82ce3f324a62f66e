package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/MeKo-Tech/silkgen/internal/raster"
	"github.com/MeKo-Tech/silkgen/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// patternGrid returns a deterministic mix of all three kinds.
func patternGrid(width, height int) *raster.Grid {
	g := raster.NewGrid(width, height)
	for y := range height {
		for x := range width {
			var s raster.Sample
			switch (x*7 + y*13 + x*y) % 5 {
			case 0, 1:
				s = raster.Sample{Luma: 0, Alpha: 255}
			case 2, 3:
				s = raster.Sample{Luma: 255, Alpha: 255}
			}
			g.Set(x, y, s)
		}
	}
	return g
}

type recordingProgress struct {
	mu       sync.Mutex
	started  int
	updates  []int
	complete bool
	errs     []error
}

func (r *recordingProgress) OnStart(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = total
}

func (r *recordingProgress) OnProgress(current, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, current)
}

func (r *recordingProgress) OnComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete = true
}

func (r *recordingProgress) OnError(_ int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func TestDefaultParallelConfig(t *testing.T) {
	config := DefaultParallelConfig()

	assert.Positive(t, config.MaxWorkers, "MaxWorkers should be > 0")
	assert.Equal(t, 0, config.RowsPerJob)
	assert.Nil(t, config.ProgressCallback)
}

func TestConvertParallelMatchesSequential(t *testing.T) {
	c := newConverter(t, NewBuilder())
	grid := patternGrid(23, 17)

	want, err := c.Convert(grid)
	require.NoError(t, err)

	tests := []struct {
		name   string
		config ParallelConfig
	}{
		{name: "single worker", config: ParallelConfig{MaxWorkers: 1}},
		{name: "default workers", config: ParallelConfig{}},
		{name: "four workers", config: ParallelConfig{MaxWorkers: 4}},
		{name: "banded rows", config: ParallelConfig{MaxWorkers: 3, RowsPerJob: 5}},
		{name: "more workers than rows", config: ParallelConfig{MaxWorkers: 64}},
		{name: "one band", config: ParallelConfig{MaxWorkers: 4, RowsPerJob: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ConvertParallel(context.Background(), grid, tt.config)
			require.NoError(t, err)
			assert.Equal(t, want.Records, got.Records)
			assert.Equal(t, want.Extents, got.Extents)
			assert.Equal(t, want.Origin, got.Origin)
			assert.Equal(t, want.Stats.Polygons, got.Stats.Polygons)
			assert.Equal(t, want.Stats.Layers, got.Stats.Layers)
		})
	}
}

func TestConvertParallelProgress(t *testing.T) {
	c := newConverter(t, NewBuilder())
	progress := &recordingProgress{}

	_, err := c.ConvertParallel(context.Background(), patternGrid(8, 10), ParallelConfig{
		MaxWorkers:       2,
		RowsPerJob:       3,
		ProgressCallback: progress,
	})
	require.NoError(t, err)

	assert.Equal(t, 10, progress.started)
	assert.True(t, progress.complete)
	require.Len(t, progress.updates, 4)
	assert.Equal(t, 10, progress.updates[len(progress.updates)-1])
	assert.Empty(t, progress.errs)
}

func TestConvertParallelSequentialFallbackReportsRows(t *testing.T) {
	c := newConverter(t, NewBuilder())

	tests := []struct {
		name   string
		config ParallelConfig
	}{
		{name: "single worker", config: ParallelConfig{MaxWorkers: 1}},
		{name: "grid fits one band", config: ParallelConfig{MaxWorkers: 4, RowsPerJob: 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			progress := &recordingProgress{}
			tt.config.ProgressCallback = progress

			_, err := c.ConvertParallel(context.Background(), patternGrid(8, 6), tt.config)
			require.NoError(t, err)

			assert.Equal(t, 6, progress.started)
			assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, progress.updates)
			assert.True(t, progress.complete)
			assert.Empty(t, progress.errs)
		})
	}
}

func TestConvertParallelSequentialFallbackCancelled(t *testing.T) {
	c := newConverter(t, NewBuilder())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	progress := &recordingProgress{}
	_, err := c.ConvertParallel(ctx, patternGrid(4, 4), ParallelConfig{MaxWorkers: 1, ProgressCallback: progress})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 4, progress.started)
	assert.Empty(t, progress.updates)
	assert.True(t, progress.complete)
	assert.Len(t, progress.errs, 1)
}

func TestConvertParallelNoSignificantPixels(t *testing.T) {
	c := newConverter(t, NewBuilder())

	_, err := c.ConvertParallel(context.Background(), testutil.FilledGrid(5, 5, raster.Transparent), ParallelConfig{MaxWorkers: 4})
	require.ErrorIs(t, err, raster.ErrNoSignificantPixels)

	_, err = c.ConvertParallel(context.Background(), nil, ParallelConfig{MaxWorkers: 4})
	require.Error(t, err)
}

func TestConvertParallelCancelled(t *testing.T) {
	c := newConverter(t, NewBuilder())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	progress := &recordingProgress{}
	res, err := c.ConvertParallel(ctx, patternGrid(10, 40), ParallelConfig{MaxWorkers: 4, ProgressCallback: progress})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
	assert.True(t, progress.complete)
	assert.Len(t, progress.errs, 1)
}
