package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives progress of a conversion. Parallel conversions
// count rows; batch runs count files.
type ProgressCallback interface {
	OnStart(total int)
	OnProgress(current, total int)
	OnComplete()
	// OnError is called when an error stops or skips an item.
	OnError(current int, err error)
}

// NoOpProgressCallback discards every event. Embed it to implement only
// the events of interest.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(int)         {}
func (NoOpProgressCallback) OnProgress(int, int) {}
func (NoOpProgressCallback) OnComplete()         {}
func (NoOpProgressCallback) OnError(int, error)  {}

const barWidth = 30

// ConsoleProgressCallback redraws a single status line on a terminal.
type ConsoleProgressCallback struct {
	mu       sync.Mutex
	w        io.Writer
	label    string
	unit     string
	interval time.Duration
	started  time.Time
	drawn    time.Time
	current  int
}

// NewConsoleProgressCallback writes to w, or stderr when w is nil. unit
// names the counted items, e.g. "rows" or "files".
func NewConsoleProgressCallback(w io.Writer, label, unit string) *ConsoleProgressCallback {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleProgressCallback{w: w, label: label, unit: unit, interval: 100 * time.Millisecond}
}

// WithUpdateInterval limits redraws to one per interval. The final update
// is always drawn.
func (c *ConsoleProgressCallback) WithUpdateInterval(interval time.Duration) *ConsoleProgressCallback {
	c.interval = interval
	return c
}

func (c *ConsoleProgressCallback) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = time.Now()
	c.drawn = time.Time{}
	c.current = 0
	_, _ = fmt.Fprintf(c.w, "%s0/%d %s\n", c.label, total, c.unit)
}

func (c *ConsoleProgressCallback) OnProgress(current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = current
	now := time.Now()
	if current < total && now.Sub(c.drawn) < c.interval {
		return
	}
	c.drawn = now
	if line := c.statusLine(current, total, now.Sub(c.started)); line != "" {
		_, _ = io.WriteString(c.w, line)
	}
}

func (c *ConsoleProgressCallback) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%s%d %s done in %v\n", c.label, c.current, c.unit,
		time.Since(c.started).Round(time.Millisecond))
}

func (c *ConsoleProgressCallback) OnError(current int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%sstopped after %d %s: %v\n", c.label, current, c.unit, err)
}

// statusLine renders "\r<label>[####------] 4/10 rows 40%". A rate is
// appended once a full second has elapsed.
func (c *ConsoleProgressCallback) statusLine(current, total int, elapsed time.Duration) string {
	if total <= 0 {
		return ""
	}
	current = min(max(current, 0), total)
	filled := barWidth * current / total

	var b strings.Builder
	fmt.Fprintf(&b, "\r%s[%s%s] %d/%d %s %d%%", c.label,
		strings.Repeat("#", filled), strings.Repeat("-", barWidth-filled),
		current, total, c.unit, 100*current/total)
	if elapsed >= time.Second && current > 0 {
		fmt.Fprintf(&b, " (%.1f %s/s)", float64(current)/elapsed.Seconds(), c.unit)
	}
	return b.String()
}

// LogProgressCallback reports progress as structured log records, at most
// one per step items plus the final one.
type LogProgressCallback struct {
	mu      sync.Mutex
	logger  *slog.Logger
	level   slog.Level
	msg     string
	step    int
	logged  int
	started time.Time
}

// NewLogProgressCallback logs through logger, or slog.Default when nil. msg
// prefixes every record, e.g. "batch".
func NewLogProgressCallback(logger *slog.Logger, level slog.Level, msg string, step int) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgressCallback{logger: logger, level: level, msg: msg, step: max(step, 1)}
}

func (l *LogProgressCallback) OnStart(total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = time.Now()
	l.logged = 0
	l.logger.Log(context.Background(), l.level, l.msg+" started", "total", total)
}

func (l *LogProgressCallback) OnProgress(current, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if current-l.logged < l.step && current != total {
		return
	}
	l.logged = current
	l.logger.Log(context.Background(), l.level, l.msg+" progress",
		"done", current,
		"total", total,
		"elapsed", time.Since(l.started).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnComplete() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Log(context.Background(), l.level, l.msg+" finished",
		"elapsed", time.Since(l.started).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnError(current int, err error) {
	l.logger.Warn(l.msg+" stopped", "done", current, "error", err)
}

// ThrottledProgressCallback forwards at most one OnProgress per interval to
// the wrapped callback. The first and the final update always pass.
type ThrottledProgressCallback struct {
	ProgressCallback
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewThrottledProgressCallback wraps cb.
func NewThrottledProgressCallback(cb ProgressCallback, interval time.Duration) *ThrottledProgressCallback {
	return &ThrottledProgressCallback{ProgressCallback: cb, interval: interval}
}

func (t *ThrottledProgressCallback) OnProgress(current, total int) {
	t.mu.Lock()
	now := time.Now()
	pass := current >= total || t.last.IsZero() || now.Sub(t.last) >= t.interval
	if pass {
		t.last = now
	}
	t.mu.Unlock()
	if pass {
		t.ProgressCallback.OnProgress(current, total)
	}
}
