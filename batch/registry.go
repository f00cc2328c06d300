package batch

import (
	"sync"
)

/*
Registry is the directory of batches currently accepting uploads, keyed by
batch id. Completion and cancellation remove a batch from the directory before
marking it terminal, so a batch reachable through the directory is never in a
terminal state. The one exception is a caller that loaded a pointer just
before removal; batch methods refuse terminal operations, and Start retires
such stale entries and retries.
*/

////////////////////////////////////////////////////////////////////////////////

// Registry is a concurrent directory of active batches.
type Registry[P any] struct {
	batches sync.Map // batch id → *Batch[P]
}

// NewRegistry returns an empty registry.
func NewRegistry[P any]() *Registry[P] {
	return &Registry[P]{}
}

// Start returns an empty active batch under the given id. An existing active
// batch is reset in place, dropping whatever it had accumulated; otherwise a
// fresh batch is created.
func (r *Registry[P]) Start(id string) *Batch[P] {
	for {
		if v, ok := r.batches.Load(id); ok {
			b := v.(*Batch[P])
			if b.TryReset() {
				return b
			}
			r.batches.CompareAndDelete(id, v)
			continue
		}
		b := New[P](id)
		actual, loaded := r.batches.LoadOrStore(id, b)
		if !loaded {
			return b
		}
		existing := actual.(*Batch[P])
		if existing.TryReset() {
			return existing
		}
		r.batches.CompareAndDelete(id, actual)
	}
}

// GetOrCreate returns the batch under id, creating an empty active one if
// none is present.
func (r *Registry[P]) GetOrCreate(id string) *Batch[P] {
	if v, ok := r.batches.Load(id); ok {
		return v.(*Batch[P])
	}
	b := New[P](id)
	if actual, loaded := r.batches.LoadOrStore(id, b); loaded {
		return actual.(*Batch[P])
	}
	return b
}

// Remove removes and returns the batch under id, reporting whether one was
// present.
func (r *Registry[P]) Remove(id string) (*Batch[P], bool) {
	if v, ok := r.batches.LoadAndDelete(id); ok {
		return v.(*Batch[P]), true
	}
	return nil, false
}

// Len returns the number of batches in the directory.
func (r *Registry[P]) Len() int {
	n := 0
	r.batches.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// ForEach calls f on every batch in the directory, in no particular order.
func (r *Registry[P]) ForEach(f func(*Batch[P])) {
	r.batches.Range(func(_, v any) bool {
		f(v.(*Batch[P]))
		return true
	})
}
