package ingest

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress reports batch insertion progress to a writer.
type Progress struct {
	writer         io.Writer
	total          int
	done           int
	failed         int
	reportInterval int
	lastReported   int
	startTime      time.Time
	mu             sync.Mutex
}

// NewProgress creates a tracker for total items that reports every
// reportInterval completions. The clock starts immediately.
func NewProgress(writer io.Writer, total, reportInterval int) *Progress {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &Progress{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
		startTime:      time.Now(),
	}
}

// Record counts one finished item.
func (p *Progress) Record(err error) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if err != nil {
		p.failed++
	}
	if p.done-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.done
	}
}

// Finish prints the final line.
func (p *Progress) Finish() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.report()
	fmt.Fprintln(p.writer)
}

// Counts returns completed and failed item counts.
func (p *Progress) Counts() (done, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, p.failed
}

// report prints the current progress. Must be called with lock held.
func (p *Progress) report() {
	elapsed := time.Since(p.startTime)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.done) / elapsed.Seconds()
	}
	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.done) / float64(p.total) * 100.0
	}
	fmt.Fprintf(p.writer, "\rInserted: %d/%d (%.1f%%), %d failed - %.1f chunks/s",
		p.done, p.total, percentage, p.failed, rate)
}
