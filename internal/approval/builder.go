// Package approval builds the list of packages cleared for publication
// from previously recorded scan results.
package approval

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomoyayamashita/safe-apt/internal/cache"
	"github.com/tomoyayamashita/safe-apt/internal/logger"
	"github.com/tomoyayamashita/safe-apt/internal/pkgkey"
	"github.com/tomoyayamashita/safe-apt/internal/policy"
	"github.com/tomoyayamashita/safe-apt/internal/scan"
)

const (
	// DefaultOutputFile is the approved list file name inside the approvals directory
	DefaultOutputFile = "approved.txt"

	// blockedPreview is how many blocked keys the run summary names
	blockedPreview = 10
)

// Options configures a Builder
type Options struct {
	ScansDir     string
	ApprovalsDir string
	MaxAge       time.Duration

	// Store overrides the scans directory as the record source
	Store  scan.Store
	Logger *logger.Logger
}

// Builder decides which requested packages are approved
type Builder struct {
	store        scan.Store
	approvalsDir string
	engine       *policy.Engine
	logger       *logger.Logger
}

// NewBuilder creates a Builder, creating the scans and approvals directories
func NewBuilder(opts Options) (*Builder, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	if opts.ApprovalsDir == "" {
		return nil, fmt.Errorf("approvals directory is required")
	}

	store := opts.Store
	if store == nil {
		if opts.ScansDir == "" {
			return nil, fmt.Errorf("scans directory is required")
		}
		dirStore, err := scan.NewDirStore(opts.ScansDir, log)
		if err != nil {
			return nil, err
		}
		store = dirStore
	}

	if err := os.MkdirAll(opts.ApprovalsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create approvals directory: %w", err)
	}

	return &Builder{
		store:        store,
		approvalsDir: opts.ApprovalsDir,
		engine:       policy.NewEngine(opts.MaxAge),
		logger:       log,
	}, nil
}

// Engine returns the policy engine, e.g. to pin its clock
func (b *Builder) Engine() *policy.Engine {
	return b.engine
}

// Result is the outcome of one BuildApprovedList call
type Result struct {
	RunID string

	// Approved is sorted and free of duplicates
	Approved []string
	Blocked  []string
	Missing  []string

	OutputPath string
}

// IsApproved reports whether key is in the approved set
func (r *Result) IsApproved(key string) bool {
	i := sort.SearchStrings(r.Approved, key)
	return i < len(r.Approved) && r.Approved[i] == key
}

// BuildApprovedList evaluates every requested key against its latest scan
// and writes the approved keys to outputFile inside the approvals directory,
// replacing any previous content. Only the final write can fail the call.
func (b *Builder) BuildApprovedList(keys []string, outputFile string) (*Result, error) {
	if outputFile == "" {
		outputFile = DefaultOutputFile
	}
	runID := uuid.NewString()

	b.logger.Info("build_start", fmt.Sprintf("Building approved list for %d packages", len(keys)), map[string]interface{}{
		"run_id": runID,
	})

	latest, err := b.resolver()
	if err != nil {
		b.logger.Error("scan_load_failed", "Failed to load scan results", map[string]interface{}{
			"run_id": runID,
			"error":  err.Error(),
		})
		return nil, err
	}

	approved := make(map[string]struct{})
	result := &Result{RunID: runID}

	for _, key := range keys {
		id := pkgkey.Parse(key)

		rec, err := latest(id.Name)
		if err != nil {
			b.logger.Warn("scan_lookup_failed", fmt.Sprintf("Failed to look up scan for package: %s", key), map[string]interface{}{
				"run_id": runID,
				"key":    key,
				"error":  err.Error(),
			})
			rec = nil
		}
		decision := b.engine.Evaluate(rec)
		b.logger.LogDecision(runID, id, decision, rec)

		switch {
		case decision.IsApproved():
			approved[key] = struct{}{}

		case decision.IsBlocked():
			result.Blocked = append(result.Blocked, key)
			b.logger.Info("package_blocked", fmt.Sprintf("Package blocked: %s (status: %s, CVEs: %d)", key, rec.StatusText(), rec.CVECount), map[string]interface{}{
				"run_id":    runID,
				"key":       key,
				"status":    rec.StatusText(),
				"cve_count": rec.CVECount,
				"cvss_max":  rec.CVSSMax,
			})

		default:
			result.Missing = append(result.Missing, key)
			data := map[string]interface{}{
				"run_id": runID,
				"key":    key,
				"reason": decision.Reason,
			}
			if rec == nil {
				b.logger.Warn("scan_missing", fmt.Sprintf("No scan found for package: %s", key), data)
			} else {
				data["scan_date"] = rec.ScanDate
				data["scan_file"] = rec.File
				b.logger.Warn("scan_stale", fmt.Sprintf("%s for package: %s", decision.Reason, key), data)
			}
		}
	}

	result.Approved = sortedKeys(approved)
	result.OutputPath = filepath.Join(b.approvalsDir, outputFile)

	if err := WriteApprovedList(result.OutputPath, result.Approved); err != nil {
		b.logger.Error("write_failed", "Failed to write approved list", map[string]interface{}{
			"run_id": runID,
			"path":   result.OutputPath,
			"error":  err.Error(),
		})
		return nil, err
	}
	b.logger.Info("approved_list_written", fmt.Sprintf("Approved list written to %s", result.OutputPath), map[string]interface{}{
		"run_id": runID,
		"count":  len(result.Approved),
	})

	b.logSummary(result)
	return result, nil
}

// LatestLookup is implemented by stores that can resolve a single package
// without loading every record
type LatestLookup interface {
	Latest(name string) (*scan.Record, error)
}

// Refresher is implemented by stores that must catch up with their source
// before lookups
type Refresher interface {
	Refresh() error
}

// resolver returns the per-run function resolving a package name to its
// latest record. Stores without LatestLookup are loaded once into a
// cache.LatestIndex.
func (b *Builder) resolver() (func(name string) (*scan.Record, error), error) {
	if lookup, ok := b.store.(LatestLookup); ok {
		if r, ok := b.store.(Refresher); ok {
			if err := r.Refresh(); err != nil {
				return nil, err
			}
		}
		return lookup.Latest, nil
	}

	records, err := b.store.Records()
	if err != nil {
		return nil, err
	}
	index := cache.NewLatestIndex(records)
	b.logger.Debug("scan_index_built", fmt.Sprintf("Indexed latest scans for %d packages", index.Len()), map[string]interface{}{
		"records": len(records),
	})
	return func(name string) (*scan.Record, error) {
		rec, _ := index.Get(name)
		return rec, nil
	}, nil
}

func (b *Builder) logSummary(result *Result) {
	b.logger.Info("build_summary", fmt.Sprintf("Approved: %d, Blocked: %d, Missing scans: %d",
		len(result.Approved), len(result.Blocked), len(result.Missing)), map[string]interface{}{
		"run_id":   result.RunID,
		"approved": len(result.Approved),
		"blocked":  len(result.Blocked),
		"missing":  len(result.Missing),
	})

	if len(result.Blocked) == 0 {
		return
	}

	preview := result.Blocked
	if len(preview) > blockedPreview {
		preview = preview[:blockedPreview]
	}
	b.logger.Info("blocked_packages", "Blocked packages: "+strings.Join(preview, ", "), map[string]interface{}{
		"run_id": result.RunID,
	})
	if rest := len(result.Blocked) - blockedPreview; rest > 0 {
		b.logger.Info("blocked_packages_truncated", fmt.Sprintf("... and %d more", rest), map[string]interface{}{
			"run_id":    result.RunID,
			"remaining": rest,
		})
	}
}

// WriteApprovedList writes keys to path sorted, deduplicated and one per
// line, truncating any existing file.
func WriteApprovedList(path string, keys []string) error {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create approved list: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, k := range sortedKeys(set) {
		if _, err := w.WriteString(k + "\n"); err != nil {
			f.Close()
			return fmt.Errorf("failed to write approved list: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write approved list: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close approved list: %w", err)
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
