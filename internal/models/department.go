package models

import "time"

// Department groups employees under a common point-quota policy.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	HeadID    *string   `db:"head_id" json:"head_id,omitempty"`
	HeadName  *string   `db:"head_name" json:"head_name,omitempty"`
	// UsesMidyear selects the midyear quota field when aggregating
	// clearance against MIDYEAR terms for members of this department.
	UsesMidyear bool      `db:"uses_midyear" json:"uses_midyear"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DepartmentFilter defines filters supported by list endpoints.
type DepartmentFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
