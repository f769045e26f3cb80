package scan

import "fmt"

// IndexedStore answers lookups from a BoltStore that it re-syncs from a
// source store (normally the scans directory) on every Refresh or Records
// call, so the index never serves scans the source no longer agrees with.
type IndexedStore struct {
	source Store
	index  *BoltStore
}

// NewIndexedStore creates a store that mirrors source into index
func NewIndexedStore(source Store, index *BoltStore) *IndexedStore {
	return &IndexedStore{source: source, index: index}
}

// Refresh reloads the source and syncs it into the index
func (s *IndexedStore) Refresh() error {
	records, err := s.source.Records()
	if err != nil {
		return err
	}
	if _, err := s.index.Sync(records); err != nil {
		return fmt.Errorf("failed to refresh scan index: %w", err)
	}
	return nil
}

// Records refreshes the index and returns its content
func (s *IndexedStore) Records() ([]Record, error) {
	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return s.index.Records()
}

// Latest looks up the most recent record for name in the index.
// Call Refresh first to pick up changes in the source.
func (s *IndexedStore) Latest(name string) (*Record, error) {
	return s.index.Latest(name)
}
