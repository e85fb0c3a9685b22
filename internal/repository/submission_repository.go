package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pointwatch/swtd-api/internal/models"
)

// SubmissionRepository handles persistence for SWTD submissions and their
// per-day date entries.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository instantiates a submission repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = `s.id, s.author_id, u.full_name AS author_name, s.term_id, s.category_id, c.name AS category_name, s.title, s.venue, s.role, s.has_deliverables, s.points, s.validation_status, s.validator_id, s.validation_comment, s.proof_filename, s.proof_mime, s.created_at, s.updated_at`

const submissionJoins = `FROM submissions s JOIN users u ON u.id = s.author_id JOIN categories c ON c.id = s.category_id`

// List returns submissions matching provided filters, dates included.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	base := submissionJoins + " WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.AuthorID != "" {
		conditions = append(conditions, fmt.Sprintf("s.author_id = $%d", len(args)+1))
		args = append(args, filter.AuthorID)
	}
	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("s.term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("u.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.validation_status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.CategoryID > 0 {
		conditions = append(conditions, fmt.Sprintf("s.category_id = $%d", len(args)+1))
		args = append(args, filter.CategoryID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(s.title ILIKE $%d OR s.venue ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"title":      "s.title",
		"points":     "s.points",
		"created_at": "s.created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", submissionColumns, base, column, order, size, offset)

	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}

	if err := r.attachDates(ctx, submissions); err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

// FindByID loads a submission with its date entries.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.id = $1", submissionColumns, submissionJoins)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}

	const dateQuery = `SELECT id, submission_id, date, time_started, time_ended FROM submission_dates WHERE submission_id = $1 ORDER BY date ASC`
	if err := r.db.SelectContext(ctx, &submission.Dates, dateQuery, id); err != nil {
		return nil, fmt.Errorf("load submission dates: %w", err)
	}
	return &submission, nil
}

// ListByAuthorAndTerm returns an employee's submissions for one term.
func (r *SubmissionRepository) ListByAuthorAndTerm(ctx context.Context, authorID, termID string) ([]models.Submission, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.author_id = $1 AND s.term_id = $2 ORDER BY s.created_at DESC", submissionColumns, submissionJoins)
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, authorID, termID); err != nil {
		return nil, fmt.Errorf("list author submissions: %w", err)
	}
	if err := r.attachDates(ctx, submissions); err != nil {
		return nil, err
	}
	return submissions, nil
}

// Create inserts a submission and its date entries in one transaction.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	submission.CreatedAt = now
	submission.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create submission tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO submissions (id, author_id, term_id, category_id, title, venue, role, has_deliverables, points, validation_status, created_at, updated_at) VALUES (:id, :author_id, :term_id, :category_id, :title, :venue, :role, :has_deliverables, :points, :validation_status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}

	if err = r.insertDates(ctx, tx, submission); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create submission tx: %w", err)
	}
	return nil
}

// Update rewrites a submission and replaces its date entries.
func (r *SubmissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	submission.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update submission tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE submissions SET term_id = :term_id, category_id = :category_id, title = :title, venue = :venue, role = :role, has_deliverables = :has_deliverables, points = :points, validation_status = :validation_status, validator_id = :validator_id, validation_comment = :validation_comment, updated_at = :updated_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("update submission: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM submission_dates WHERE submission_id = $1`, submission.ID); err != nil {
		return fmt.Errorf("clear submission dates: %w", err)
	}

	if err = r.insertDates(ctx, tx, submission); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update submission tx: %w", err)
	}
	return nil
}

// SetValidation records the review outcome on a submission.
func (r *SubmissionRepository) SetValidation(ctx context.Context, id string, status models.ValidationStatus, validatorID string, comment *string) error {
	const query = `UPDATE submissions SET validation_status = $1, validator_id = $2, validation_comment = $3, updated_at = $4 WHERE id = $5`
	if _, err := r.db.ExecContext(ctx, query, status, validatorID, comment, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set submission validation: %w", err)
	}
	return nil
}

// SetProof attaches proof file metadata to a submission.
func (r *SubmissionRepository) SetProof(ctx context.Context, id, filename, mime string) error {
	const query = `UPDATE submissions SET proof_filename = $1, proof_mime = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, filename, mime, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set submission proof: %w", err)
	}
	return nil
}

// Delete removes a submission and its dates.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete submission tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM submission_dates WHERE submission_id = $1`, id); err != nil {
		return fmt.Errorf("delete submission dates: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete submission tx: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) insertDates(ctx context.Context, tx *sqlx.Tx, submission *models.Submission) error {
	const query = `INSERT INTO submission_dates (id, submission_id, date, time_started, time_ended) VALUES (:id, :submission_id, :date, :time_started, :time_ended)`
	for i := range submission.Dates {
		entry := &submission.Dates[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.SubmissionID = submission.ID
		if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
			return fmt.Errorf("insert submission date: %w", err)
		}
	}
	return nil
}

func (r *SubmissionRepository) attachDates(ctx context.Context, submissions []models.Submission) error {
	if len(submissions) == 0 {
		return nil
	}
	ids := make([]string, len(submissions))
	index := make(map[string]*models.Submission, len(submissions))
	for i := range submissions {
		ids[i] = submissions[i].ID
		index[submissions[i].ID] = &submissions[i]
	}

	query, args, err := sqlx.In(`SELECT id, submission_id, date, time_started, time_ended FROM submission_dates WHERE submission_id IN (?) ORDER BY date ASC`, ids)
	if err != nil {
		return fmt.Errorf("build dates query: %w", err)
	}
	query = r.db.Rebind(query)

	var dates []models.SubmissionDate
	if err := r.db.SelectContext(ctx, &dates, query, args...); err != nil {
		return fmt.Errorf("load submission dates: %w", err)
	}
	for _, d := range dates {
		if parent, ok := index[d.SubmissionID]; ok {
			parent.Dates = append(parent.Dates, d)
		}
	}
	return nil
}
