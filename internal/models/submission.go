package models

import "time"

// ValidationStatus captures the review state of a submission.
type ValidationStatus string

const (
	StatusPending  ValidationStatus = "PENDING"
	StatusApproved ValidationStatus = "APPROVED"
	StatusRejected ValidationStatus = "REJECTED"
)

// SubmissionDate is one day of a possibly multi-day SWTD activity.
// Times are wall-clock "HH:MM" strings in 24-hour format.
type SubmissionDate struct {
	ID           string    `db:"id" json:"id"`
	SubmissionID string    `db:"submission_id" json:"-"`
	Date         time.Time `db:"date" json:"date"`
	TimeStarted  string    `db:"time_started" json:"time_started"`
	TimeEnded    string    `db:"time_ended" json:"time_ended"`
}

// Submission is one employee's logged SWTD activity record.
type Submission struct {
	ID           string  `db:"id" json:"id"`
	AuthorID     string  `db:"author_id" json:"author_id"`
	AuthorName   string  `db:"author_name" json:"author_name,omitempty"`
	TermID       string  `db:"term_id" json:"term_id"`
	CategoryID   int     `db:"category_id" json:"category_id"`
	CategoryName string  `db:"category_name" json:"category_name"`
	Title        string  `db:"title" json:"title"`
	Venue        string  `db:"venue" json:"venue"`
	Role         string  `db:"role" json:"role"`
	// HasDeliverables marks records whose points were entered manually
	// instead of computed from duration.
	HasDeliverables   bool             `db:"has_deliverables" json:"has_deliverables"`
	Points            float64          `db:"points" json:"points"`
	ValidationStatus  ValidationStatus `db:"validation_status" json:"validation_status"`
	ValidatorID       *string          `db:"validator_id" json:"validator_id,omitempty"`
	ValidationComment *string          `db:"validation_comment" json:"validation_comment,omitempty"`
	ProofFilename     *string          `db:"proof_filename" json:"proof_filename,omitempty"`
	ProofMIME         *string          `db:"proof_mime" json:"proof_mime,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
	Dates             []SubmissionDate `json:"dates"`
}

// SubmissionFilter scopes submission list queries.
type SubmissionFilter struct {
	AuthorID     string
	TermID       string
	DepartmentID string
	Status       ValidationStatus
	CategoryID   int
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
