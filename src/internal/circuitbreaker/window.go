package circuitbreaker

import "sync"

// window keeps the outcomes of the last size calls.
type window struct {
	mu       sync.Mutex
	outcomes []bool
	next     int
	filled   int
	failures int
}

func newWindow(size int) *window {
	if size < 1 {
		size = 1
	}
	return &window{outcomes: make([]bool, size)}
}

func (w *window) record(failed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.filled == len(w.outcomes) {
		if w.outcomes[w.next] {
			w.failures--
		}
	} else {
		w.filled++
	}

	w.outcomes[w.next] = failed
	if failed {
		w.failures++
	}
	w.next = (w.next + 1) % len(w.outcomes)
}

// snapshot returns the number of calls in the window and the failure rate in percent.
func (w *window) snapshot() (int, float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.filled == 0 {
		return 0, 0
	}
	return w.filled, float64(w.failures) * 100 / float64(w.filled)
}

func (w *window) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	clear(w.outcomes)
	w.next = 0
	w.filled = 0
	w.failures = 0
}
