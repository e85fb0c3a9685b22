package dto

import "github.com/pointwatch/swtd-api/internal/models"

// EmployeeDashboardResponse is the personal compliance view for one employee.
type EmployeeDashboardResponse struct {
	EmployeeID      string              `json:"employeeId"`
	TermID          string              `json:"termId"`
	TermName        string              `json:"termName"`
	RequiredPoints  float64             `json:"requiredPoints"`
	ValidPoints     float64             `json:"validPoints"`
	PendingPoints   float64             `json:"pendingPoints"`
	RemainingPoints float64             `json:"remainingPoints"`
	IsCleared       bool                `json:"isCleared"`
	Overridden      bool                `json:"overridden"`
	Submissions     []models.Submission `json:"submissions"`
}

// DepartmentDashboardResponse is a head's view of the department roster.
type DepartmentDashboardResponse struct {
	DepartmentID   string                `json:"departmentId"`
	DepartmentName string                `json:"departmentName"`
	TermID         string                `json:"termId"`
	ClearedCount   int                   `json:"clearedCount"`
	TotalCount     int                   `json:"totalCount"`
	PendingReviews int                   `json:"pendingReviews"`
	Rows           []models.ClearanceRow `json:"rows"`
}

// HRDashboardResponse aggregates clearance standing across all departments.
type HRDashboardResponse struct {
	TermID      string                     `json:"termId"`
	Departments []DepartmentComplianceStat `json:"departments"`
	Rows        []models.ClearanceRow      `json:"rows"`
}

// DepartmentComplianceStat summarises one department on the HR dashboard.
type DepartmentComplianceStat struct {
	DepartmentID   string  `json:"departmentId"`
	DepartmentName string  `json:"departmentName"`
	ClearedCount   int     `json:"clearedCount"`
	TotalCount     int     `json:"totalCount"`
	ComplianceRate float64 `json:"complianceRate"`
}
