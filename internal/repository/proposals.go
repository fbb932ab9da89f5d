// Package repository persists the proposal collection as a single snapshot.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/diewo77/go-proposals/internal/metrics"
	"github.com/diewo77/go-proposals/internal/models"
	"github.com/diewo77/go-proposals/internal/storage"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Update when no stored proposal has the id.
var ErrNotFound = errors.New("proposal not found")

// ProposalRepository reads and writes the whole collection under one key.
// Every mutation is a full read-modify-write, serialized by mu.
type ProposalRepository struct {
	mu    sync.Mutex
	store storage.BlobStore
	key   string
	log   *zap.Logger
	now   func() time.Time
}

// Option customizes a repository.
type Option func(*ProposalRepository)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(r *ProposalRepository) { r.key = key }
}

// WithClock overrides the clock used when backfilling timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *ProposalRepository) { r.now = now }
}

func New(store storage.BlobStore, log *zap.Logger, opts ...Option) *ProposalRepository {
	if log == nil {
		log = zap.NewNop()
	}
	r := &ProposalRepository{
		store: store,
		key:   storage.ProposalsKey,
		log:   log,
		now:   time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Load returns the stored collection. Missing, unreadable or corrupt data
// yields an empty collection; the failure is logged, not returned.
func (r *ProposalRepository) Load(ctx context.Context) []models.Proposal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// SaveAll overwrites the stored collection.
func (r *ProposalRepository) SaveAll(ctx context.Context, proposals []models.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveAll(ctx, "save_all", proposals)
}

// Add prepends p and persists the result.
func (r *ProposalRepository) Add(ctx context.Context, p models.Proposal) ([]models.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.load(ctx)
	updated := make([]models.Proposal, 0, len(existing)+1)
	updated = append(updated, p.Clone())
	updated = append(updated, existing...)
	if err := r.saveAll(ctx, "add", updated); err != nil {
		return existing, err
	}
	return updated, nil
}

// Update replaces the proposal with the same id. When none matches, the
// collection is left untouched and ErrNotFound is returned with it.
func (r *ProposalRepository) Update(ctx context.Context, p models.Proposal) ([]models.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.load(ctx)
	idx := indexOf(existing, p.ID)
	if idx < 0 {
		return existing, fmt.Errorf("update %s: %w", p.ID, ErrNotFound)
	}
	updated := make([]models.Proposal, len(existing))
	copy(updated, existing)
	updated[idx] = p.Clone()
	if err := r.saveAll(ctx, "update", updated); err != nil {
		return existing, err
	}
	return updated, nil
}

// Remove filters out the proposal with the given id and persists the result.
func (r *ProposalRepository) Remove(ctx context.Context, id string) ([]models.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.load(ctx)
	updated := make([]models.Proposal, 0, len(existing))
	for _, p := range existing {
		if p.ID != id {
			updated = append(updated, p)
		}
	}
	if err := r.saveAll(ctx, "remove", updated); err != nil {
		return existing, err
	}
	return updated, nil
}

func (r *ProposalRepository) load(ctx context.Context) []models.Proposal {
	raw, ok, err := r.store.Get(ctx, r.key)
	if err != nil {
		r.log.Warn("proposal storage unreadable, starting empty", zap.String("key", r.key), zap.Error(err))
		metrics.StorageLoadFailures.WithLabelValues("read").Inc()
		return []models.Proposal{}
	}
	if !ok || len(raw) == 0 {
		return []models.Proposal{}
	}
	var stored []storedProposal
	if err := json.Unmarshal(raw, &stored); err != nil {
		r.log.Warn("proposal storage corrupt, starting empty", zap.String("key", r.key), zap.Error(err))
		metrics.StorageLoadFailures.WithLabelValues("decode").Inc()
		return []models.Proposal{}
	}
	now := r.now()
	out := make([]models.Proposal, 0, len(stored))
	for _, s := range stored {
		out = append(out, migrateRecord(s, now))
	}
	return out
}

func (r *ProposalRepository) saveAll(ctx context.Context, op string, proposals []models.Proposal) error {
	raw, err := Encode(proposals)
	if err != nil {
		metrics.StorageWrites.WithLabelValues(op, "error").Inc()
		return err
	}
	if err := r.store.Put(ctx, r.key, raw); err != nil {
		metrics.StorageWrites.WithLabelValues(op, "error").Inc()
		r.log.Error("proposal snapshot write failed", zap.String("op", op), zap.Int("count", len(proposals)), zap.Error(err))
		return fmt.Errorf("write proposals: %w", err)
	}
	metrics.StorageWrites.WithLabelValues(op, "ok").Inc()
	r.log.Debug("proposal snapshot written", zap.String("op", op), zap.Int("count", len(proposals)), zap.Int("bytes", len(raw)))
	return nil
}

// Encode serializes a collection in the stored format. The output only
// depends on the collection, so equal collections encode to equal bytes.
func Encode(proposals []models.Proposal) ([]byte, error) {
	records := make([]proposalRecord, len(proposals))
	for i, p := range proposals {
		records[i] = toRecord(p)
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode proposals: %w", err)
	}
	return raw, nil
}

func indexOf(proposals []models.Proposal, id string) int {
	for i := range proposals {
		if proposals[i].ID == id {
			return i
		}
	}
	return -1
}
