package scan

// Status is the outcome the scanner assigned to a package
type Status string

const (
	StatusApproved Status = "approved"
	StatusBlocked  Status = "blocked"
	StatusError    Status = "error"
)

// ParseStatus classifies a raw status value. Anything other than the
// three known values, including an empty one, is StatusError.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusApproved:
		return StatusApproved
	case StatusBlocked:
		return StatusBlocked
	default:
		return StatusError
	}
}

// Vulnerability represents a single finding in a scan
type Vulnerability struct {
	CVEID     string  `json:"cve_id" yaml:"cve_id"`
	Severity  string  `json:"severity" yaml:"severity"`
	CVSSScore float64 `json:"cvss_score" yaml:"cvss_score"`
}

// Record represents one persisted scan of a single package version.
// Records are never modified after the scanner writes them.
type Record struct {
	PackageName     string          `json:"package_name" yaml:"package_name"`
	PackageVersion  string          `json:"package_version" yaml:"package_version"`
	RawStatus       string          `json:"status" yaml:"status"`
	ScanDate        string          `json:"scan_date" yaml:"scan_date"`
	ScannerType     string          `json:"scanner_type,omitempty" yaml:"scanner_type,omitempty"`
	CVECount        int             `json:"cve_count" yaml:"cve_count"`
	CVSSMax         float64         `json:"cvss_max" yaml:"cvss_max"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities" yaml:"vulnerabilities"`

	// File is the storage unit the record was read from
	File string `json:"-" yaml:"-"`
}

// Status returns the classified status of the record
func (r *Record) Status() Status {
	return ParseStatus(r.RawStatus)
}

// StatusText returns the status as recorded, or "error" when absent
func (r *Record) StatusText() string {
	if r.RawStatus == "" {
		return string(StatusError)
	}
	return r.RawStatus
}

// Store provides the current population of scan records.
// Every call reflects the backing storage at call time.
type Store interface {
	Records() ([]Record, error)
}

// Logger is the subset of the application logger used by stores
type Logger interface {
	Debug(event, message string, data map[string]interface{})
	Warn(event, message string, data map[string]interface{})
}
