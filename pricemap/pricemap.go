package pricemap

import (
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pricemark/pricemark/price"
	"github.com/pricemark/pricemark/util"
	"github.com/spaolacci/murmur3"
	"golang.org/x/exp/maps"
)

/*
The price map is the latest-value table: one current price per instrument,
updated only through merges of completed batches. The table is split into
power-of-two lock stripes selected by instrument hash. Each per-key
compare-and-replace runs under its stripe lock, so merges racing on one
instrument resolve to the maximum timestamp while writes to other stripes
proceed independently. Entries are never deleted; the table only grows or
replaces in place.
*/

////////////////////////////////////////////////////////////////////////////////

const defaultStripes = 32

// Map is a concurrent latest-value table keyed by instrument.
type Map[P any] struct {
	stripes []stripe[P]
	mask    uint32
}

type stripe[P any] struct {
	mu      sync.RWMutex
	entries map[string]price.Price[P]
}

// NewMap returns a map with the requested stripe count rounded up to a power
// of two, or a default when nonpositive.
func NewMap[P any](stripes int) *Map[P] {
	n := util.NextPow2(util.When(stripes > 0, stripes, defaultStripes))
	m := &Map[P]{
		stripes: make([]stripe[P], n),
		mask:    uint32(n - 1),
	}
	for i := range m.stripes {
		m.stripes[i].entries = map[string]price.Price[P]{}
	}
	return m
}

func (m *Map[P]) stripeIndex(instrument string) uint32 {
	h := murmur3.New32()
	_, _ = h.Write([]byte(instrument))
	return h.Sum32() & m.mask
}

// MergeStats counts the per-value outcomes of one merge.
type MergeStats struct {
	Inserted int
	Replaced int
	Kept     int
	Skipped  int
}

// Applied returns the number of values that changed the table.
func (s MergeStats) Applied() int {
	return s.Inserted + s.Replaced
}

// MergeBatch folds a batch of values into the table. Values with an empty
// instrument are skipped. Each remaining value displaces the stored entry
// only if its timestamp is strictly later, under the stripe lock for its
// instrument, so the surviving entry carries the maximum timestamp no matter
// how concurrent merges interleave.
func (m *Map[P]) MergeBatch(values []price.Price[P]) MergeStats {
	stats := MergeStats{}
	for _, v := range values {
		if v.Instrument == "" {
			stats.Skipped++
			continue
		}
		s := &m.stripes[m.stripeIndex(v.Instrument)]
		s.mu.Lock()
		if existing, ok := s.entries[v.Instrument]; ok {
			if chosen, displaced := price.Latest(existing, v); displaced {
				s.entries[v.Instrument] = chosen
				stats.Replaced++
			} else {
				stats.Kept++
			}
		} else {
			s.entries[v.Instrument] = v
			stats.Inserted++
		}
		s.mu.Unlock()
	}
	return stats
}

// Get returns the current price for an instrument, if any.
func (m *Map[P]) Get(instrument string) (price.Price[P], bool) {
	if instrument == "" {
		return price.Price[P]{}, false
	}
	s := &m.stripes[m.stripeIndex(instrument)]
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.entries[instrument]
	return p, ok
}

// GetMany returns the current prices for the requested instruments.
// Instruments with no entry are absent from the result. Requested keys are
// grouped by stripe so each stripe involved is locked once.
func (m *Map[P]) GetMany(instruments []string) map[string]price.Price[P] {
	result := make(map[string]price.Price[P], len(instruments))
	for idx, keys := range util.GroupBy(instruments, m.stripeIndex) {
		s := &m.stripes[idx]
		s.mu.RLock()
		for _, key := range keys {
			if p, ok := s.entries[key]; ok {
				result[key] = p
			}
		}
		s.mu.RUnlock()
	}
	return result
}

// Len returns the number of instruments tracked.
func (m *Map[P]) Len() int {
	n := 0
	for i := range m.stripes {
		s := &m.stripes[i]
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Dump writes the table to w as a JSON array sorted by instrument, for
// diagnostic inspection. Payloads must be JSON-marshalable. The snapshot is
// consistent per stripe; a merge racing with the dump may straddle stripes.
func (m *Map[P]) Dump(w io.Writer) error {
	flat := map[string]price.Price[P]{}
	for i := range m.stripes {
		s := &m.stripes[i]
		s.mu.RLock()
		maps.Copy(flat, s.entries)
		s.mu.RUnlock()
	}
	keys := maps.Keys(flat)
	slices.Sort(keys)
	out := make([]price.Price[P], 0, len(flat))
	for _, key := range keys {
		out = append(out, flat[key])
	}
	if err := json.NewEncoder(w).Encode(out); err != nil {
		return fmt.Errorf("failed to encode prices: %w", err)
	}
	return nil
}
