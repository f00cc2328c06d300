package batch

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pricemark/pricemark/price"
)

/*
Batch accumulation for atomic publication. A batch collects price updates
uploaded in chunks and releases them all at once on completion, or discards
them on cancellation. All batch methods serialize on the batch's own mutex, so
operations against one batch id are linearizable while distinct ids never
contend.
*/

////////////////////////////////////////////////////////////////////////////////

// State is the lifecycle state of a batch.
type State uint8

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "invalid"
	}
}

const (
	StateActive State = iota
	StateCompleted
	StateCancelled
)

// Batch accumulates the price updates of one atomic publication. The caller
// identifies it by id; the uid is a generated identity that changes on each
// reset, distinguishing generations of the same id in logs and stats.
type Batch[P any] struct {
	id string

	mu         sync.Mutex
	uid        string
	state      State
	prices     []price.Price[P]
	lastUpdate time.Time
}

// New returns an empty active batch under the given id.
func New[P any](id string) *Batch[P] {
	return &Batch[P]{
		id:         id,
		uid:        uuid.New().String(),
		lastUpdate: time.Now(),
	}
}

// Append adds prices to the batch, reporting whether they were accepted. A
// terminal batch refuses the append, leaving the caller to drop the data.
func (b *Batch[P]) Append(prices []price.Price[P]) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateActive {
		return false
	}
	b.prices = append(b.prices, prices...)
	b.lastUpdate = time.Now()
	return true
}

// CompleteAndSnapshot moves the batch to the completed state and returns its
// accumulated contents. Returns false with no contents if the batch was
// already terminal.
func (b *Batch[P]) CompleteAndSnapshot() ([]price.Price[P], bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateActive {
		return nil, false
	}
	b.state = StateCompleted
	snapshot := b.prices
	b.prices = nil
	return snapshot, true
}

// Cancel moves the batch to the cancelled state and discards its contents,
// reporting whether the batch was still active.
func (b *Batch[P]) Cancel() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateActive {
		return false
	}
	b.state = StateCancelled
	b.prices = nil
	return true
}

// TryReset returns an active batch to an empty state under a fresh uid,
// reporting whether it did so. Terminal batches refuse the reset so that a
// caller holding a stale directory entry can detect and retire it.
func (b *Batch[P]) TryReset() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateActive {
		return false
	}
	b.uid = uuid.New().String()
	b.prices = nil
	b.lastUpdate = time.Now()
	return true
}

// ID returns the caller-assigned batch id.
func (b *Batch[P]) ID() string {
	return b.id
}

// UID returns the generation uid.
func (b *Batch[P]) UID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uid
}

// State returns the current lifecycle state.
func (b *Batch[P]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Count returns the number of accumulated prices.
func (b *Batch[P]) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.prices)
}

// LastUpdate returns the time of the most recent append or reset.
func (b *Batch[P]) LastUpdate() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUpdate
}
