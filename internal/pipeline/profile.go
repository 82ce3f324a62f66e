package pipeline

import (
	"runtime"
	"sync/atomic"
)

// Profiler aggregates simple counters across multiple conversions.
type Profiler struct {
	ConvertTimeNs atomic.Int64
	Images        atomic.Int64
	Pixels        atomic.Int64
	Polygons      atomic.Int64
}

// Record adds one conversion result.
func (p *Profiler) Record(res *Result) {
	if res == nil {
		return
	}
	p.ConvertTimeNs.Add(res.Stats.Duration.Nanoseconds())
	p.Images.Add(1)
	p.Pixels.Add(int64(res.Stats.LightPixels + res.Stats.DarkPixels))
	p.Polygons.Add(int64(res.Stats.Polygons))
}

// Snapshot returns cumulative metrics in milliseconds for readability,
// together with the current heap size and goroutine count.
func (p *Profiler) Snapshot() map[string]any {
	imgs := p.Images.Load()
	ns := p.ConvertTimeNs.Load()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	out := map[string]any{
		"images":           imgs,
		"pixels":           p.Pixels.Load(),
		"polygons":         p.Polygons.Load(),
		"convert_ms":       ns / 1_000_000,
		"heap_alloc_bytes": m.HeapAlloc,
		"goroutines":       runtime.NumGoroutine(),
	}
	if imgs > 0 {
		out["convert_ms_per_image"] = float64(ns) / 1_000_000.0 / float64(imgs)
	}
	return out
}
