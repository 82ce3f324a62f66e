package batch

import (
	"fmt"

	"github.com/MeKo-Tech/silkgen/internal/pipeline"
)

// buildConverter creates the converter shared by all workers. With more than
// one file worker each image is converted on a single goroutine.
func buildConverter(config *Config) (*pipeline.Converter, error) {
	cfg := config.Pipeline
	if config.Workers > 1 {
		cfg.Parallel.MaxWorkers = 1
	}
	cfg.Parallel.ProgressCallback = nil

	conv, err := pipeline.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build converter: %w", err)
	}
	return conv, nil
}

// workerCount clamps the configured worker count to [1, jobs].
func workerCount(configured, jobs int) int {
	if configured < 1 {
		configured = 1
	}
	return max(1, min(configured, jobs))
}
