package pipeline

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/silkgen/internal/geometry"
	"github.com/MeKo-Tech/silkgen/internal/raster"
)

// ParallelConfig holds configuration for row-sharded conversion.
type ParallelConfig struct {
	MaxWorkers       int              // Number of row workers (0 = runtime.NumCPU())
	RowsPerJob       int              // Rows handed to a worker at once (0 = 1)
	ProgressCallback ProgressCallback // Optional progress reporting, counted in rows
}

// DefaultParallelConfig returns sensible defaults for parallel conversion.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{
		MaxWorkers:       runtime.NumCPU(),
		RowsPerJob:       0,
		ProgressCallback: nil,
	}
}

// rowJob is a band of consecutive rows.
type rowJob struct {
	index int
	start int
	end   int
}

// rowResult carries the records of one band.
type rowResult struct {
	index   int
	rows    int
	records []Record
}

// ConvertParallel shards rows across a worker pool. Records come back in the
// same order Convert produces them.
func (c *Converter) ConvertParallel(ctx context.Context, grid *raster.Grid, config ParallelConfig) (*Result, error) {
	// Apply defaults
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	if config.RowsPerJob <= 0 {
		config.RowsPerJob = 1
	}

	// Small inputs are not worth the goroutines
	if config.MaxWorkers == 1 || grid == nil || grid.Height <= config.RowsPerJob {
		return c.convertRows(ctx, grid, config.ProgressCallback)
	}

	start := time.Now()
	res, gen, err := c.prepare(grid)
	if err != nil {
		return nil, err
	}

	// Initialize progress tracking
	if config.ProgressCallback != nil {
		config.ProgressCallback.OnStart(grid.Height)
		defer config.ProgressCallback.OnComplete()
	}

	numJobs := (grid.Height + config.RowsPerJob - 1) / config.RowsPerJob
	jobs := make(chan rowJob, numJobs)
	results := make(chan rowResult, numJobs)

	// Start workers
	var wg sync.WaitGroup
	for range min(config.MaxWorkers, numJobs) {
		wg.Add(1)
		go c.worker(ctx, grid, gen, jobs, results, &wg)
	}

	// Send jobs
	go func() {
		defer close(jobs)
		for i := range numJobs {
			job := rowJob{
				index: i,
				start: i * config.RowsPerJob,
				end:   min((i+1)*config.RowsPerJob, grid.Height),
			}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Collect results
	go func() {
		wg.Wait()
		close(results)
	}()

	// Aggregate results in order
	bands := make([][]Record, numJobs)
	processedRows := 0
	total := 0

	for result := range results {
		bands[result.index] = result.records
		processedRows += result.rows
		total += len(result.records)

		// Report progress
		if config.ProgressCallback != nil {
			config.ProgressCallback.OnProgress(processedRows, grid.Height)
		}
	}

	// Check for context cancellation
	if err := ctx.Err(); err != nil {
		if config.ProgressCallback != nil {
			config.ProgressCallback.OnError(processedRows, err)
		}
		return nil, err
	}

	res.Records = make([]Record, 0, total)
	for _, band := range bands {
		res.Records = append(res.Records, band...)
	}

	c.finish(res, start)
	return res, nil
}

// worker converts row bands from the jobs channel.
func (c *Converter) worker(
	ctx context.Context,
	grid *raster.Grid,
	gen *geometry.Generator,
	jobs <-chan rowJob,
	results chan<- rowResult,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return // Channel closed
			}

			var records []Record
			for y := job.start; y < job.end; y++ {
				records = c.appendRow(records, grid, gen, y)
			}

			// Send result
			select {
			case results <- rowResult{index: job.index, rows: job.end - job.start, records: records}:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
