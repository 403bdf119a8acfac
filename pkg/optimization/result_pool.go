package optimization

import (
	"sort"
)

// ResultPool keeps the best distinct evaluations ranked by net profit
type ResultPool struct {
	capacity int
	items    []*Evaluation
	keys     map[string]struct{}
}

// NewResultPool creates a pool holding at most capacity evaluations
func NewResultPool(capacity int) *ResultPool {
	if capacity < 1 {
		capacity = 1
	}
	return &ResultPool{
		capacity: capacity,
		items:    make([]*Evaluation, 0, capacity),
		keys:     make(map[string]struct{}, capacity),
	}
}

// Add inserts an evaluation unless the same candidate is already held or it ranks below a full pool
func (p *ResultPool) Add(ev *Evaluation) bool {
	if ev == nil || ev.Candidate == nil || ev.Results == nil {
		return false
	}
	key := ev.Candidate.Key()
	if _, dup := p.keys[key]; dup {
		return false
	}

	pos := sort.Search(len(p.items), func(i int) bool {
		return ranksBefore(ev, key, p.items[i])
	})
	if pos >= p.capacity {
		return false
	}

	p.items = append(p.items, nil)
	copy(p.items[pos+1:], p.items[pos:])
	p.items[pos] = ev
	p.keys[key] = struct{}{}

	if len(p.items) > p.capacity {
		dropped := p.items[len(p.items)-1]
		delete(p.keys, dropped.Candidate.Key())
		p.items = p.items[:p.capacity]
	}
	return true
}

// ranksBefore orders by net profit, then fitness, then candidate encoding
func ranksBefore(a *Evaluation, aKey string, b *Evaluation) bool {
	if a.Results.NetProfit != b.Results.NetProfit {
		return a.Results.NetProfit > b.Results.NetProfit
	}
	if a.Fitness != b.Fitness {
		return a.Fitness > b.Fitness
	}
	return aKey < b.Candidate.Key()
}

// Merge adds every evaluation of other
func (p *ResultPool) Merge(other *ResultPool) {
	if other == nil {
		return
	}
	for _, ev := range other.items {
		p.Add(ev)
	}
}

// Ranked returns the held evaluations, best first
func (p *ResultPool) Ranked() []*Evaluation {
	out := make([]*Evaluation, len(p.items))
	copy(out, p.items)
	return out
}

// Best returns the top evaluation, or nil when the pool is empty
func (p *ResultPool) Best() *Evaluation {
	if len(p.items) == 0 {
		return nil
	}
	return p.items[0]
}

// Len returns the number of held evaluations
func (p *ResultPool) Len() int {
	return len(p.items)
}
