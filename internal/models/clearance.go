package models

import "time"

// ClearanceOverride is an explicit administrative grant or revocation that
// takes precedence over the computed clearance for an employee and term.
type ClearanceOverride struct {
	ID         string    `db:"id" json:"id"`
	EmployeeID string    `db:"employee_id" json:"employee_id"`
	TermID     string    `db:"term_id" json:"term_id"`
	Cleared    bool      `db:"cleared" json:"cleared"`
	Reason     string    `db:"reason" json:"reason"`
	GrantedBy  string    `db:"granted_by" json:"granted_by"`
	GrantedAt  time.Time `db:"granted_at" json:"granted_at"`
}

// EmployeePointTotals is a raw per-employee aggregation row used to build
// clearance dashboards.
type EmployeePointTotals struct {
	EmployeeID     string  `db:"employee_id"`
	EmployeeName   string  `db:"employee_name"`
	DepartmentID   string  `db:"department_id"`
	DepartmentName string  `db:"department_name"`
	ValidPoints    float64 `db:"valid_points"`
	PendingPoints  float64 `db:"pending_points"`
}

// ClearanceRow is one employee's clearance line on a dashboard.
type ClearanceRow struct {
	EmployeeID     string  `json:"employee_id"`
	EmployeeName   string  `json:"employee_name"`
	DepartmentID   string  `json:"department_id,omitempty"`
	DepartmentName string  `json:"department_name,omitempty"`
	TermID         string  `json:"term_id"`
	ValidPoints    float64 `json:"valid_points"`
	PendingPoints  float64 `json:"pending_points"`
	RequiredPoints float64 `json:"required_points"`
	IsCleared      bool    `json:"is_cleared"`
	// Overridden reports whether an admin override decided the final state.
	Overridden bool `json:"overridden"`
}
