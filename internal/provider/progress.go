package provider

import (
	"io"
	"sync"
)

// progressTracker forwards byte counts to a ProgressFunc until stop is called.
// Callbacks run under the mutex so stop waits for one in flight.
type progressTracker struct {
	mu      sync.Mutex
	fn      ProgressFunc
	total   int64
	sent    int64
	stopped bool
}

func newProgressTracker(fn ProgressFunc, total int64) *progressTracker {
	return &progressTracker{fn: fn, total: total}
}

func (p *progressTracker) add(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || p.fn == nil {
		return
	}
	p.sent += int64(n)
	p.fn(p.sent, p.total)
}

func (p *progressTracker) stop() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

// reader wraps r so every read reports progress.
func (p *progressTracker) reader(r io.Reader) io.Reader {
	return &progressReader{r: r, tracker: p}
}

type progressReader struct {
	r       io.Reader
	tracker *progressTracker
}

func (r *progressReader) Read(b []byte) (int, error) {
	n, err := r.r.Read(b)
	r.tracker.add(n)
	return n, err
}
