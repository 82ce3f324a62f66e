// Package batch converts many image files into footprints with a worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/MeKo-Tech/silkgen/internal/pipeline"
)

// ErrNoImageFiles is returned when discovery finds nothing to convert.
var ErrNoImageFiles = errors.New("no image files found")

// ProcessBatch discovers image files under paths and converts them. Without
// ContinueOnError the first failure cancels the remaining files and is
// returned together with the partial result.
func ProcessBatch(ctx context.Context, paths []string, config *Config) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}
	files, err := discoverImageFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoImageFiles
	}

	conv, err := buildConverter(config)
	if err != nil {
		return nil, err
	}

	progress := progressCallback(config)
	workers := workerCount(config.Workers, len(files))
	slog.Info("Starting batch conversion", "files", len(files), "workers", workers, "format", config.Format)

	start := time.Now()
	results, err := processImagesParallel(ctx, conv, planJobs(files), workers, config, progress)
	res := &Result{Files: results, Duration: time.Since(start), WorkerCount: workers}

	slog.Info("Batch conversion finished",
		"converted", res.Succeeded(), "failed", res.Failed(), "duration", res.Duration)
	if err != nil {
		return res, fmt.Errorf("batch conversion failed: %w", err)
	}
	return res, nil
}

func progressCallback(config *Config) pipeline.ProgressCallback {
	switch {
	case config.Progress != nil:
		return config.Progress
	case config.Quiet:
		return pipeline.NoOpProgressCallback{}
	case config.ShowProgress:
		return pipeline.NewConsoleProgressCallback(os.Stderr, "Converting: ", "files").
			WithUpdateInterval(config.ProgressInterval)
	default:
		return pipeline.NewLogProgressCallback(slog.Default(), slog.LevelDebug, "batch", 10)
	}
}

// processImagesParallel runs jobs on a fixed pool of workers. Results keep
// the job order; files skipped after a cancellation carry the context error.
func processImagesParallel(
	ctx context.Context,
	conv *pipeline.Converter,
	jobs []job,
	workers int,
	config *Config,
	progress pipeline.ProgressCallback,
) ([]FileResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]FileResult, len(jobs))
	jobCh := make(chan job)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		done     int
		firstErr error
	)

	progress.OnStart(len(jobs))

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				var fr FileResult
				if err := ctx.Err(); err != nil {
					fr = FileResult{Input: j.path, Name: j.name, Err: err}
				} else {
					fr = processSingleImage(ctx, conv, j, config)
				}
				results[j.index] = fr

				mu.Lock()
				done++
				if fr.Err != nil {
					slog.Warn("File conversion failed", "file", j.path, "error", fr.Err)
					if firstErr == nil && !config.ContinueOnError {
						firstErr = fr.Err
						cancel()
					}
				}
				progress.OnProgress(done, len(jobs))
				mu.Unlock()
			}
		}()
	}

	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)
	wg.Wait()

	if firstErr == nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		progress.OnError(done, firstErr)
		return results, firstErr
	}
	progress.OnComplete()
	return results, nil
}
