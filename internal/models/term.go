package models

import "time"

// TermType represents the kind of compliance period.
type TermType string

const (
	TermTypeSemester     TermType = "SEMESTER"
	TermTypeMidyear      TermType = "MIDYEAR"
	TermTypeAcademicYear TermType = "ACADEMIC_YEAR"
)

// Term models one compliance period with its point quotas.
type Term struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Type      TermType  `db:"type" json:"type"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	// IsOngoing marks the term currently accepting submissions; at most one
	// per type, enforced by the repository on toggle.
	IsOngoing      bool      `db:"is_ongoing" json:"is_ongoing"`
	RequiredPoints float64   `db:"required_points" json:"required_points"`
	MidyearPoints  float64   `db:"midyear_points" json:"midyear_points"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// TermFilter defines filters supported by list endpoints.
type TermFilter struct {
	Type      TermType
	IsOngoing *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
