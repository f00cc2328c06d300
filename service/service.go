package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pricemark/pricemark/batch"
	"github.com/pricemark/pricemark/price"
	"github.com/pricemark/pricemark/pricemap"
	"github.com/pricemark/pricemark/telemetry"
	"github.com/pricemark/pricemark/util/log"
)

/*
Service is the public face of the store. Writers stage price updates in
batches through StartBatch, UploadChunk and CompleteBatch; readers see only
what completed batches have merged into the latest-value table, never a batch
in progress. "Latest" is decided by each price's own timestamp rather than by
merge order, so batches may complete in any order with a deterministic
outcome. All operations are synchronous and safe for concurrent use.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrInvalidBatchID is returned when a batch id is empty after trimming.
var ErrInvalidBatchID = errors.New("batch id must not be empty")

// Service tracks the latest price per instrument, updated in atomic batches.
type Service[P any] struct {
	batches *batch.Registry[P]
	prices  *pricemap.Map[P]
	metrics *telemetry.Metrics
}

// New returns a service configured with the supplied options.
func New[P any](opts ...Option) *Service[P] {
	conf := config{}
	for _, opt := range opts {
		opt(&conf)
	}
	var metrics *telemetry.Metrics
	if conf.registerer != nil {
		metrics = telemetry.New(conf.registerer)
	}
	return &Service[P]{
		batches: batch.NewRegistry[P](),
		prices:  pricemap.NewMap[P](conf.stripes),
		metrics: metrics,
	}
}

// StartBatch begins accumulation under the given id. Restarting an id whose
// batch is still active resets that batch in place, discarding anything
// uploaded so far. Returns ErrInvalidBatchID if the id is empty after
// trimming.
func (s *Service[P]) StartBatch(ctx context.Context, batchID string) error {
	id, err := normalizeBatchID(batchID)
	if err != nil {
		return fmt.Errorf("failed to start batch: %w", err)
	}
	b := s.batches.Start(id)
	s.metrics.BatchStarted()
	log.Debugw(log.WithBatch(ctx, id, b.UID()), "Started batch")
	return nil
}

// UploadChunk stages prices into the batch, creating it if absent so chunks
// may arrive before StartBatch. Chunks for a batch that was already completed
// or cancelled are dropped without error. Nil and empty chunks are no-ops.
func (s *Service[P]) UploadChunk(ctx context.Context, batchID string, prices []price.Price[P]) error {
	id, err := normalizeBatchID(batchID)
	if err != nil {
		return fmt.Errorf("failed to upload chunk: %w", err)
	}
	if len(prices) == 0 {
		return nil
	}
	b := s.batches.GetOrCreate(id)
	if !b.Append(prices) {
		log.Debugw(log.WithBatch(ctx, id, b.UID()), "Dropped chunk for terminal batch",
			"count", len(prices))
		return nil
	}
	s.metrics.ChunkUploaded()
	log.Debugw(log.WithBatch(ctx, id, b.UID()), "Accepted chunk",
		"count", len(prices), "staged", b.Count())
	return nil
}

// CompleteBatch atomically publishes everything uploaded to the batch into
// the latest-value table. An instrument's entry is displaced only by a
// strictly later timestamp, so completing stale data never regresses the
// table. Unknown or already terminal ids are no-ops, making completion
// idempotent.
func (s *Service[P]) CompleteBatch(ctx context.Context, batchID string) error {
	id, err := normalizeBatchID(batchID)
	if err != nil {
		return fmt.Errorf("failed to complete batch: %w", err)
	}
	b, ok := s.batches.Remove(id)
	if !ok {
		return nil
	}
	snapshot, ok := b.CompleteAndSnapshot()
	if !ok {
		return nil
	}
	start := time.Now()
	age := time.Since(b.LastUpdate())
	stats := s.prices.MergeBatch(snapshot)
	s.metrics.BatchCompleted(len(snapshot))
	s.metrics.MergeOutcomes(stats.Inserted, stats.Replaced, stats.Kept, stats.Skipped)
	s.metrics.SetInstrumentsTracked(s.prices.Len())
	log.Infow(log.WithBatch(ctx, id, b.UID()), "Merged batch",
		"count", len(snapshot), "applied", stats.Applied(), "skipped", stats.Skipped,
		"elapsed", time.Since(start), "age", age,
	)
	return nil
}

// CancelBatch discards the batch and everything uploaded to it. Unknown or
// already terminal ids are no-ops.
func (s *Service[P]) CancelBatch(ctx context.Context, batchID string) error {
	id, err := normalizeBatchID(batchID)
	if err != nil {
		return fmt.Errorf("failed to cancel batch: %w", err)
	}
	b, ok := s.batches.Remove(id)
	if !ok {
		return nil
	}
	if !b.Cancel() {
		return nil
	}
	s.metrics.BatchCancelled()
	log.Infow(log.WithBatch(ctx, id, b.UID()), "Cancelled batch")
	return nil
}

// GetLatestPrice returns the current price for an instrument. The boolean is
// false when the instrument has never appeared in a completed batch.
func (s *Service[P]) GetLatestPrice(ctx context.Context, instrument string) (price.Price[P], bool) {
	return s.prices.Get(instrument)
}

// GetLatestPrices returns the current prices for the requested instruments.
// Instruments with no entry are omitted from the result, which is never nil.
func (s *Service[P]) GetLatestPrices(ctx context.Context, instruments []string) map[string]price.Price[P] {
	return s.prices.GetMany(instruments)
}

// BatchStats describes one batch still accepting uploads.
type BatchStats struct {
	ID         string
	UID        string
	State      string
	Count      int
	LastUpdate time.Time
}

// Stats is a point-in-time view of the service.
type Stats struct {
	ActiveBatches []BatchStats
	Instruments   int
}

// Stats returns the batches currently accepting uploads, sorted by id, and
// the number of instruments tracked.
func (s *Service[P]) Stats() Stats {
	stats := Stats{Instruments: s.prices.Len()}
	s.batches.ForEach(func(b *batch.Batch[P]) {
		stats.ActiveBatches = append(stats.ActiveBatches, BatchStats{
			ID:         b.ID(),
			UID:        b.UID(),
			State:      b.State().String(),
			Count:      b.Count(),
			LastUpdate: b.LastUpdate(),
		})
	})
	sort.Slice(stats.ActiveBatches, func(i, j int) bool {
		return stats.ActiveBatches[i].ID < stats.ActiveBatches[j].ID
	})
	return stats
}

// DumpLatest writes the latest-value table to w as a JSON array sorted by
// instrument, for diagnostic inspection.
func (s *Service[P]) DumpLatest(w io.Writer) error {
	if err := s.prices.Dump(w); err != nil {
		return fmt.Errorf("failed to dump latest prices: %w", err)
	}
	return nil
}

func normalizeBatchID(batchID string) (string, error) {
	id := strings.TrimSpace(batchID)
	if id == "" {
		return "", ErrInvalidBatchID
	}
	return id, nil
}
