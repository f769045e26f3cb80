package cache

import (
	"github.com/tomoyayamashita/safe-apt/internal/scan"
)

// LatestIndex maps package names to their most recent scan record.
// It is built from one load of the record population and never refreshed;
// build a new one for every approval run.
type LatestIndex struct {
	latest map[string]*scan.Record
}

// NewLatestIndex indexes records in a single pass. For every name the result
// equals scan.FindLatest(name, records), including the first-seen tie break.
// Records without a package name are left out.
func NewLatestIndex(records []scan.Record) *LatestIndex {
	latest := make(map[string]*scan.Record)
	for i := range records {
		rec := &records[i]
		if rec.PackageName == "" {
			continue
		}
		current, ok := latest[rec.PackageName]
		if !ok || scan.Newer(rec, current) {
			latest[rec.PackageName] = rec
		}
	}
	return &LatestIndex{latest: latest}
}

// Get retrieves the latest record for a package name
func (c *LatestIndex) Get(name string) (*scan.Record, bool) {
	rec, ok := c.latest[name]
	return rec, ok
}

// Len returns the number of distinct package names indexed
func (c *LatestIndex) Len() int {
	return len(c.latest)
}
