package orchestrator

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"
)

// Progress counts started tests and serializes worker output.
type Progress struct {
	mu    sync.Mutex
	out   io.Writer
	n     int
	total int
}

// NewProgress returns a counter writing to out.
func NewProgress(out io.Writer) *Progress {
	return &Progress{out: out}
}

// SetOutput redirects subsequent messages, e.g. while a live view owns the
// terminal.
func (p *Progress) SetOutput(out io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = out
}

// Start resets the counter for a run of total tests.
func (p *Progress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n = 0
	p.total = total
}

// Next advances the counter, announces the test and returns its 1-based index.
func (p *Progress) Next(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	fmt.Fprintf(p.out, "Running test %d/%d: <%s>\n", p.n, p.total, name)
	return p.n
}

// Count returns the number of tests started so far and the total.
func (p *Progress) Count() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n, p.total
}

// Printf writes one message without interleaving with other workers.
func (p *Progress) Printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// FormatRuntime renders a duration as "[Hh ]Mm Ss", rounding seconds up.
func FormatRuntime(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	h, m, s := secs/3600, secs%3600/60, secs%60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	return fmt.Sprintf("%dm %ds", m, s)
}
