package approval

import (
	"errors"

	"github.com/tomoyayamashita/safe-apt/internal/policy"
	"github.com/tomoyayamashita/safe-apt/internal/scan"
)

// Stats summarizes the whole scan record population
type Stats struct {
	TotalScans int `json:"total_scans"`
	Approved   int `json:"approved"`
	Blocked    int `json:"blocked"`
	Errors     int `json:"errors"`
	FreshScans int `json:"fresh_scans"`
}

// Stats reloads every scan record and counts them by status and freshness
func (b *Builder) Stats() (Stats, error) {
	records, err := b.store.Records()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{TotalScans: len(records)}
	for i := range records {
		rec := &records[i]
		switch rec.Status() {
		case scan.StatusApproved:
			stats.Approved++
		case scan.StatusBlocked:
			stats.Blocked++
		default:
			stats.Errors++
		}

		fresh, err := b.engine.IsFresh(rec)
		if err != nil && !errors.Is(err, policy.ErrNoScanDate) {
			b.logger.Warn("scan_date_invalid", err.Error(), map[string]interface{}{
				"scan_file": rec.File,
			})
		}
		if fresh {
			stats.FreshScans++
		}
	}
	return stats, nil
}
