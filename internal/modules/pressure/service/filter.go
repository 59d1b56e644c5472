package service

import "sync"

// DefaultWindowSize is the number of samples averaged per channel.
const DefaultWindowSize = 10

// FilterRegistry holds one moving-average window per channel. Each window has
// its own lock, so channels never contend with each other.
type FilterRegistry struct {
	size int

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	mu     sync.Mutex
	values []float64
}

func NewFilterRegistry(size int) *FilterRegistry {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &FilterRegistry{
		size:    size,
		windows: make(map[string]*window),
	}
}

// Size returns the maximum number of samples held per channel.
func (f *FilterRegistry) Size() int {
	return f.size
}

func (f *FilterRegistry) get(channel string) *window {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[channel]
	if !ok {
		w = &window{values: make([]float64, 0, f.size+1)}
		f.windows[channel] = w
	}
	return w
}

// Observe appends v to the channel window, evicting the oldest sample once the
// window is full, and returns the mean of the window with its occupancy.
func (f *FilterRegistry) Observe(channel string, v float64) (float64, int) {
	w := f.get(channel)
	w.mu.Lock()
	defer w.mu.Unlock()

	w.values = append(w.values, v)
	if len(w.values) > f.size {
		w.values = w.values[1:]
	}

	var sum float64
	for _, x := range w.values {
		sum += x
	}
	n := len(w.values)
	return sum / float64(n), n
}

// Len returns the number of samples currently in the channel window.
func (f *FilterRegistry) Len(channel string) int {
	f.mu.Lock()
	w, ok := f.windows[channel]
	f.mu.Unlock()
	if !ok {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.values)
}

// Values returns a copy of the channel window, oldest first.
func (f *FilterRegistry) Values(channel string) []float64 {
	f.mu.Lock()
	w, ok := f.windows[channel]
	f.mu.Unlock()
	if !ok {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]float64, len(w.values))
	copy(out, w.values)
	return out
}

// Clear empties one channel window.
func (f *FilterRegistry) Clear(channel string) {
	f.mu.Lock()
	w, ok := f.windows[channel]
	f.mu.Unlock()
	if !ok {
		return
	}
	w.mu.Lock()
	w.values = w.values[:0]
	w.mu.Unlock()
}

// ClearAll empties every window.
func (f *FilterRegistry) ClearAll() {
	f.mu.Lock()
	windows := make([]*window, 0, len(f.windows))
	for _, w := range f.windows {
		windows = append(windows, w)
	}
	f.mu.Unlock()

	for _, w := range windows {
		w.mu.Lock()
		w.values = w.values[:0]
		w.mu.Unlock()
	}
}
