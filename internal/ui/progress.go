// Package ui renders transfer progress on the terminal
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"onlycut/pkg/utils"

	"github.com/schollz/progressbar/v3"
)

// ProgressUI handles progress display for resource transfers
type ProgressUI struct {
	mu        sync.Mutex
	bar       *progressbar.ProgressBar
	out       io.Writer
	operation string // "Sending" or "Receiving"
	name      string
	total     int64
	current   int64
	startTime time.Time
}

// NewProgressUI creates a progress UI writing to out, or stderr when nil
func NewProgressUI(out io.Writer) *ProgressUI {
	if out == nil {
		out = os.Stderr
	}
	return &ProgressUI{out: out}
}

// startProgress initializes the progress bar for a transfer
func (p *ProgressUI) startProgress(operation, name string, totalBytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.operation = operation
	p.name = name
	p.total = totalBytes
	p.current = 0
	p.startTime = time.Now()
	p.bar = progressbar.NewOptions64(totalBytes,
		progressbar.OptionSetDescription(fmt.Sprintf("%s %s", operation, name)),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)
}

// StartProgressSending initializes the progress bar for sending a resource
func (p *ProgressUI) StartProgressSending(name string, totalBytes int64) {
	p.startProgress("Sending", name, totalBytes)
}

// StartProgressReceiving initializes the progress bar for receiving a resource
func (p *ProgressUI) StartProgressReceiving(name string, totalBytes int64) {
	p.startProgress("Receiving", name, totalBytes)
}

// Add records n more transferred bytes
func (p *ProgressUI) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		return
	}
	p.current += int64(n)
	_ = p.bar.Add(n)
}

// Transferred returns the bytes recorded so far
func (p *ProgressUI) Transferred() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// CompleteProgress marks the progress as complete and prints a summary
func (p *ProgressUI) CompleteProgress() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()

	elapsed := time.Since(p.startTime)
	throughput := 0.0
	if elapsed > 0 {
		throughput = float64(p.current) / elapsed.Seconds() / (1024 * 1024)
	}

	fmt.Fprintf(p.out, "\n=============================================\n")
	fmt.Fprintf(p.out, "%s %s completed\n", p.operation, p.name)
	fmt.Fprintf(p.out, "+ Total bytes: %s\n", utils.FormatFileSize(p.current))
	fmt.Fprintf(p.out, "+ Transfer time: %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(p.out, "+ Average throughput: %.2f MB/s\n", throughput)
	fmt.Fprintf(p.out, "=============================================\n")
}
