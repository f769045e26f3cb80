package policy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomoyayamashita/safe-apt/internal/scan"
)

// ErrNoScanDate is returned by IsFresh for records without a scan_date
var ErrNoScanDate = errors.New("scan_date is missing")

// Engine makes policy decisions
type Engine struct {
	maxAge time.Duration
	now    func() time.Time
}

// NewEngine creates a new policy engine. A non-positive maxAge means DefaultMaxAge.
func NewEngine(maxAge time.Duration) *Engine {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Engine{
		maxAge: maxAge,
		now:    time.Now,
	}
}

// SetClock replaces the wall clock used for freshness checks
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// MaxAge returns the freshness window
func (e *Engine) MaxAge() time.Duration {
	return e.maxAge
}

// IsFresh reports whether rec was scanned less than MaxAge ago.
// A missing or unparsable scan_date is never fresh; the error says why.
func (e *Engine) IsFresh(rec *scan.Record) (bool, error) {
	if rec.ScanDate == "" {
		return false, ErrNoScanDate
	}

	scannedAt, err := ParseScanDate(rec.ScanDate)
	if err != nil {
		return false, err
	}

	return e.now().Sub(scannedAt) < e.maxAge, nil
}

// Evaluate decides on a resolved record. rec is nil when no scan was found.
// Freshness problems are reported through the Reason of a missing result.
func (e *Engine) Evaluate(rec *scan.Record) Result {
	if rec == nil {
		return Result{
			Decision: DecisionMissing,
			Reason:   "No scan found",
		}
	}

	fresh, err := e.IsFresh(rec)
	if err != nil {
		return Result{
			Decision: DecisionMissing,
			Reason:   fmt.Sprintf("Scan date unusable: %v", err),
		}
	}
	if !fresh {
		return Result{
			Decision: DecisionMissing,
			Reason:   fmt.Sprintf("Scan too old (older than %s)", e.maxAge),
		}
	}

	if rec.Status() == scan.StatusApproved {
		return Result{
			Decision: DecisionApproved,
			Reason:   "Scan approved",
		}
	}

	return Result{
		Decision: DecisionBlocked,
		Reason:   fmt.Sprintf("Scan status %s with %d CVEs", rec.StatusText(), rec.CVECount),
	}
}

// Layouts without a zone are read in local time, matching the naive
// timestamps the scanner writes.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
	}
	localLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// ParseScanDate parses the ISO-8601 forms scan_date may take
func ParseScanDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid scan date format: %q", s)
}
