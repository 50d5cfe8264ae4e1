package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/store"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/txn"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu        sync.RWMutex
	datasets  map[string]txn.Table
	snapshots map[string]store.Snapshot
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		datasets:  make(map[string]txn.Table),
		snapshots: make(map[string]store.Snapshot),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// PutDataset stores or replaces a dataset.
func (s *Store) PutDataset(ctx context.Context, name string, t txn.Table) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[name] = t
	return nil
}

// GetDataset returns a dataset by name.
func (s *Store) GetDataset(ctx context.Context, name string) (txn.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.datasets[name]
	if !ok {
		return txn.Table{}, fmt.Errorf("dataset %q: %w", name, internalerr.ErrNotFound)
	}
	return t, nil
}

// ListDatasets returns the dataset names in sorted order.
func (s *Store) ListDatasets(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.datasets))
	for name := range s.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DeleteDataset removes a dataset and its snapshots.
func (s *Store) DeleteDataset(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.datasets[name]; !ok {
		return fmt.Errorf("dataset %q: %w", name, internalerr.ErrNotFound)
	}
	delete(s.datasets, name)
	for id, snap := range s.snapshots {
		if snap.Dataset == name {
			delete(s.snapshots, id)
		}
	}
	return nil
}

// PutSnapshot stores a snapshot, assigning its id when empty.
func (s *Store) PutSnapshot(ctx context.Context, snap store.Snapshot) (store.Snapshot, error) {
	snap, err := store.Prepare(snap)
	if err != nil {
		return store.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.datasets[snap.Dataset]; !ok {
		return store.Snapshot{}, fmt.Errorf("dataset %q: %w", snap.Dataset, internalerr.ErrNotFound)
	}
	s.snapshots[snap.ID] = copySnapshot(snap)
	return copySnapshot(snap), nil
}

// GetSnapshot returns a snapshot by id.
func (s *Store) GetSnapshot(ctx context.Context, id string) (store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[id]
	if !ok {
		return store.Snapshot{}, fmt.Errorf("snapshot %q: %w", id, internalerr.ErrNotFound)
	}
	return copySnapshot(snap), nil
}

// ListSnapshots returns the snapshots of a dataset, newest first. An empty
// dataset name lists every snapshot.
func (s *Store) ListSnapshots(ctx context.Context, dataset string) ([]store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Snapshot
	for _, snap := range s.snapshots {
		if dataset == "" || snap.Dataset == dataset {
			out = append(out, copySnapshot(snap))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// DeleteSnapshot removes a snapshot by id.
func (s *Store) DeleteSnapshot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snapshots[id]; !ok {
		return fmt.Errorf("snapshot %q: %w", id, internalerr.ErrNotFound)
	}
	delete(s.snapshots, id)
	return nil
}

func copySnapshot(s store.Snapshot) store.Snapshot {
	if s.Rules.Rules != nil {
		rules := make([]mining.Rule, len(s.Rules.Rules))
		copy(rules, s.Rules.Rules)
		s.Rules.Rules = rules
	}
	if s.Itemsets.Itemsets != nil {
		sets := make([]mining.Itemset, len(s.Itemsets.Itemsets))
		copy(sets, s.Itemsets.Itemsets)
		s.Itemsets.Itemsets = sets
	}
	return s
}
