// Package storage provides the key-value blob stores backing the proposal
// collection.
package storage

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProposalsKey is the fixed key under which the whole proposal collection lives.
const ProposalsKey = "raimundix_proposals_v1"

// BlobStore reads and writes opaque values under string keys.
type BlobStore interface {
	// Get returns the value and true, or false when the key was never written.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put overwrites the value unconditionally.
	Put(ctx context.Context, key string, value []byte) error
}

// Entry is one key-value row.
type Entry struct {
	Key       string `gorm:"primaryKey;size:191"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName pins the table name so SQL migrations and AutoMigrate agree.
func (Entry) TableName() string { return "kv_entries" }

// GormStore keeps entries in a relational table through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Get implements BlobStore. A missing key is not an error and is not logged.
func (s *GormStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entries []Entry
	res := s.db.WithContext(ctx).Where(&Entry{Key: key}).Limit(1).Find(&entries)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}
	return []byte(entries[0].Value), true, nil
}

// Put implements BlobStore with an upsert on the key.
func (s *GormStore) Put(ctx context.Context, key string, value []byte) error {
	e := Entry{Key: key, Value: string(value), UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
}

// MemoryStore is a process-local BlobStore.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: map[string][]byte{}}
}

// Get implements BlobStore.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Put implements BlobStore.
func (s *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), value...)
	return nil
}
