package capture

import "sync"

// Registry buffers the records captured during one run.
//
// Append may be called concurrently. Drain is called once, after the run finished;
// appends after Drain are dropped.
type Registry struct {
	mu      sync.Mutex
	records []OutcomeRecord
	seen    map[string]struct{}
	drained bool
}

func NewRegistry() *Registry {
	return &Registry{seen: make(map[string]struct{})}
}

// Append stores a record. It returns false for a correlation id already stored or when
// the registry was drained. Records without a correlation id are always stored.
func (r *Registry) Append(rec OutcomeRecord) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drained {
		return false
	}
	if id := rec.CorrelationID; id != "" {
		if _, dup := r.seen[id]; dup {
			return false
		}
		r.seen[id] = struct{}{}
	}
	r.records = append(r.records, rec)
	return true
}

// Drain returns every stored record and closes the registry.
func (r *Registry) Drain() []OutcomeRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drained = true
	out := r.records
	r.records = nil
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
