package optimization

import (
	"sync"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/monitoring"
)

// ProgressTracker combines the progress of several search instances into one monotonic counter.
// Each instance advances within its own budget; the global count is the sum of the instances.
type ProgressTracker struct {
	mu       sync.Mutex
	method   Method
	total    int
	budgets  []int
	done     []int
	reported int
	callback ProgressFunc
}

// NewProgressTracker creates a tracker for instances with the given budgets. callback may be nil.
func NewProgressTracker(method Method, budgets []int, callback ProgressFunc) *ProgressTracker {
	total := 0
	for _, b := range budgets {
		total += b
	}
	return &ProgressTracker{
		method:   method,
		total:    total,
		budgets:  append([]int(nil), budgets...),
		done:     make([]int, len(budgets)),
		callback: callback,
	}
}

// Advance records n completed iterations of one instance. Progress beyond the instance budget is ignored.
func (p *ProgressTracker) Advance(instance, n int) {
	if n <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if instance < 0 || instance >= len(p.done) {
		return
	}
	p.done[instance] += n
	if p.done[instance] > p.budgets[instance] {
		p.done[instance] = p.budgets[instance]
	}

	current := 0
	for _, d := range p.done {
		current += d
	}
	if current <= p.reported {
		return
	}
	p.reported = current

	monitoring.UpdateProgress(string(p.method), current, p.total)
	if p.callback != nil {
		p.callback(current, p.total)
	}
}

// Current returns the last reported global progress
func (p *ProgressTracker) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reported
}

// Total returns the combined budget
func (p *ProgressTracker) Total() int {
	return p.total
}

// partition splits total into n near-equal budgets, larger ones first
func partition(total, n int) []int {
	if n < 1 {
		n = 1
	}
	budgets := make([]int, n)
	for i := range budgets {
		budgets[i] = total / n
		if i < total%n {
			budgets[i]++
		}
	}
	return budgets
}
