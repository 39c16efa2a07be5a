// Package repository holds the published leaderboard snapshot.
package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/okian/fantasyboard/internal/domain/model"
	"github.com/okian/fantasyboard/pkg/metrics"
)

// Store exposes atomic replace and read of the current snapshot.
type Store interface {
	// Publish replaces the current snapshot. Concurrent publishers resolve
	// last-writer-wins.
	Publish(ctx context.Context, snap *model.Snapshot)
	// Current returns the published snapshot, or false before the first publish.
	Current(ctx context.Context) (*model.Snapshot, bool)
}

// SnapshotStore implements Store with a single atomic pointer. Readers see
// either the previous snapshot or the new one, never a partial write.
type SnapshotStore struct {
	current   atomic.Pointer[model.Snapshot]
	version   atomic.Uint64
	published atomic.Int64 // unix nanos of the last publish
}

var _ Store = (*SnapshotStore)(nil)

// NewSnapshotStore returns an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Publish implements Store. Nil snapshots are ignored.
func (s *SnapshotStore) Publish(_ context.Context, snap *model.Snapshot) {
	if snap == nil {
		return
	}
	s.current.Store(snap)
	s.version.Add(1)
	now := time.Now()
	s.published.Store(now.UnixNano())
	metrics.RecordSnapshotPublished(int(snap.PeriodID()), snap.Len(), now)
}

// Current implements Store.
func (s *SnapshotStore) Current(_ context.Context) (*model.Snapshot, bool) {
	snap := s.current.Load()
	return snap, snap != nil
}

// Version counts publishes since start.
func (s *SnapshotStore) Version() uint64 { return s.version.Load() }

// LastPublished returns when the current snapshot was stored.
func (s *SnapshotStore) LastPublished() time.Time {
	ns := s.published.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Rank returns the row for id in the current snapshot.
func (s *SnapshotStore) Rank(ctx context.Context, id model.EntityID) (model.RankedEntry, error) {
	snap, ok := s.Current(ctx)
	if !ok {
		return model.RankedEntry{}, ErrEmpty
	}
	row, found := snap.Lookup(id)
	if !found {
		return model.RankedEntry{}, ErrNotFound
	}
	return row, nil
}

// TopN returns the first n rows of the current snapshot.
func (s *SnapshotStore) TopN(ctx context.Context, n int) ([]model.RankedEntry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	snap, ok := s.Current(ctx)
	if !ok {
		return nil, ErrEmpty
	}
	return snap.Top(n), nil
}
