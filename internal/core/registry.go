package core

import "sync"

// Registry is the process-local, in-memory guard against dispatching two
// concurrent Run Executors for the same schedule. It is not a distributed
// lock — see spec §4.2 and §5 — and begins empty on every process start;
// crash-safety comes from the database, not from this set.
type Registry struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{seen: make(map[string]struct{})}
}

// TryAdmit atomically inserts id if absent and reports whether it was
// admitted. A false return means a Run Executor is already in flight for
// this schedule.
func (r *Registry) TryAdmit(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.seen[id]; exists {
		return false
	}
	r.seen[id] = struct{}{}
	return true
}

// Release removes id from the registry. No-op if absent.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seen, id)
}

// Contains reports whether id currently has a Run Executor in flight.
// Exposed for tests verifying P1/P2 (no schedule in the registry lacks a
// live executor; no two concurrent executors share a schedule).
func (r *Registry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[id]
	return ok
}

// Len reports how many schedules are currently admitted.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
