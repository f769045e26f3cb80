package policy

import "time"

// DefaultMaxAge is how long a scan is trusted when nothing else is configured
const DefaultMaxAge = 48 * time.Hour

// Decision represents the policy decision for one requested package
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionBlocked  Decision = "blocked"
	DecisionMissing  Decision = "missing"
)

// Result represents the result of a policy decision
type Result struct {
	Decision Decision
	Reason   string
}

// IsApproved returns true if the package may be published
func (r Result) IsApproved() bool {
	return r.Decision == DecisionApproved
}

// IsBlocked returns true if the scan rejected the package
func (r Result) IsBlocked() bool {
	return r.Decision == DecisionBlocked
}

// IsMissing returns true if no usable scan exists
func (r Result) IsMissing() bool {
	return r.Decision == DecisionMissing
}
