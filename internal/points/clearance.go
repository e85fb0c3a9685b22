package points

import "time"

// Status mirrors the review state of a submission record.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Record is the minimal projection of a submission the aggregator needs.
type Record struct {
	TermID string
	Points float64
	Status Status
}

// ClearanceStatus is the computed per-employee, per-term compliance fact.
type ClearanceStatus struct {
	EmployeeID     string  `json:"employee_id"`
	TermID         string  `json:"term_id"`
	ValidPoints    float64 `json:"valid_points"`
	PendingPoints  float64 `json:"pending_points"`
	RequiredPoints float64 `json:"required_points"`
	IsCleared      bool    `json:"is_cleared"`
}

// AggregateClearance sums the approved points of the employee's records for
// the given term and compares them against the resolved quota. Pending and
// rejected records contribute nothing to the valid total; pending points are
// reported separately for dashboards. The caller resolves which quota field
// (regular or midyear) applies before calling.
func AggregateClearance(records []Record, employeeID, termID string, requiredPoints float64) ClearanceStatus {
	status := ClearanceStatus{
		EmployeeID:     employeeID,
		TermID:         termID,
		RequiredPoints: requiredPoints,
	}
	for _, r := range records {
		if r.TermID != termID {
			continue
		}
		switch r.Status {
		case StatusApproved:
			status.ValidPoints += r.Points
		case StatusPending:
			status.PendingPoints += r.Points
		}
	}
	status.IsCleared = status.ValidPoints >= status.RequiredPoints
	return status
}

// Override is an explicit administrative clearance decision.
type Override struct {
	Cleared   bool      `json:"cleared"`
	GrantedBy string    `json:"granted_by"`
	GrantedAt time.Time `json:"granted_at"`
	Reason    string    `json:"reason,omitempty"`
}

// ClearanceDecision pairs the computed status with an optional override.
// Both values are exposed so consumers can show the computed suggestion next
// to the authoritative answer.
type ClearanceDecision struct {
	Computed ClearanceStatus `json:"computed"`
	Override *Override       `json:"override,omitempty"`
}

// Decide combines a computed status with an optional admin override.
func Decide(computed ClearanceStatus, override *Override) ClearanceDecision {
	return ClearanceDecision{Computed: computed, Override: override}
}

// Cleared returns the authoritative verdict: the override when present,
// otherwise the computed comparison.
func (d ClearanceDecision) Cleared() bool {
	if d.Override != nil {
		return d.Override.Cleared
	}
	return d.Computed.IsCleared
}
