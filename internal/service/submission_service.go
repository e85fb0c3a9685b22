package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pointwatch/swtd-api/internal/models"
	"github.com/pointwatch/swtd-api/internal/points"
	appErrors "github.com/pointwatch/swtd-api/pkg/errors"
)

type submissionRepository interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	ListByAuthorAndTerm(ctx context.Context, authorID, termID string) ([]models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	SetValidation(ctx context.Context, id string, status models.ValidationStatus, validatorID string, comment *string) error
	SetProof(ctx context.Context, id, filename, mime string) error
	Delete(ctx context.Context, id string) error
}

type submissionTermRepository interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type categoryTableProvider interface {
	Table(ctx context.Context) (points.Table, error)
	Get(ctx context.Context, id int) (*models.Category, error)
}

type clearanceChecker interface {
	IsCleared(ctx context.Context, employeeID, termID string) (bool, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type proofStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type proofSigner interface {
	Generate(resourceID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (resourceID, relPath string, expiresAt time.Time, err error)
}

// SubmissionDateRequest is one day of activity in a submission payload.
type SubmissionDateRequest struct {
	Date        time.Time `json:"date" validate:"required"`
	TimeStarted string    `json:"time_started" validate:"required"`
	TimeEnded   string    `json:"time_ended" validate:"required"`
}

// CreateSubmissionRequest describes payload for logging an SWTD activity.
type CreateSubmissionRequest struct {
	TermID          string                  `json:"term_id" validate:"required"`
	CategoryID      int                     `json:"category_id" validate:"required"`
	Title           string                  `json:"title" validate:"required"`
	Venue           string                  `json:"venue" validate:"required"`
	Role            string                  `json:"role" validate:"required"`
	HasDeliverables bool                    `json:"has_deliverables"`
	ManualPoints    float64                 `json:"manual_points" validate:"gte=0"`
	Dates           []SubmissionDateRequest `json:"dates" validate:"required,min=1,dive"`
}

// UpdateSubmissionRequest mutates an existing submission. Edits reset the
// record to pending review.
type UpdateSubmissionRequest = CreateSubmissionRequest

// ValidateSubmissionRequest carries a reviewer's verdict.
type ValidateSubmissionRequest struct {
	Status  models.ValidationStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Comment *string                 `json:"comment"`
}

// ProofConfig constrains uploaded proof files.
type ProofConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     map[string]bool
}

// SubmissionService orchestrates the SWTD submission lifecycle: logging,
// point computation, review, and proof handling.
type SubmissionService struct {
	repo       submissionRepository
	terms      submissionTermRepository
	categories categoryTableProvider
	clearance  clearanceChecker
	audits     auditWriter
	proofs     proofStore
	signer     proofSigner
	proofCfg   ProofConfig
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewSubmissionService wires the submission workflow.
func NewSubmissionService(repo submissionRepository, terms submissionTermRepository, categories categoryTableProvider, clearance clearanceChecker, audits auditWriter, proofs proofStore, signer proofSigner, proofCfg ProofConfig, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		repo:       repo,
		terms:      terms,
		categories: categories,
		clearance:  clearance,
		audits:     audits,
		proofs:     proofs,
		signer:     signer,
		proofCfg:   proofCfg,
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// List returns paginated submissions for the provided filter.
func (s *SubmissionService) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, *models.Pagination, error) {
	submissions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return submissions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a submission with its date entries.
func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	submission, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return submission, nil
}

// Create logs a new SWTD activity for the author. Every activity date must
// fall inside the term's submission window and points are computed up front.
func (s *SubmissionService) Create(ctx context.Context, authorID string, req CreateSubmissionRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	term, category, err := s.resolveTermAndCategory(ctx, req.TermID, req.CategoryID)
	if err != nil {
		return nil, err
	}

	if err := s.checkEligibility(req.Dates, term); err != nil {
		return nil, err
	}

	submission := &models.Submission{
		AuthorID:         authorID,
		TermID:           req.TermID,
		CategoryID:       req.CategoryID,
		CategoryName:     category.Name,
		Title:            req.Title,
		Venue:            req.Venue,
		Role:             req.Role,
		HasDeliverables:  req.HasDeliverables,
		ValidationStatus: models.StatusPending,
		Dates:            toDateModels(req.Dates),
	}
	submission.Points, err = s.computePoints(ctx, category, req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}
	return submission, nil
}

// Update edits a submission owned by the author. Editing is blocked once the
// author is cleared for the term, and any edit resets the review state.
func (s *SubmissionService) Update(ctx context.Context, authorID, id string, req UpdateSubmissionRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	submission, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.AuthorID != authorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another employee")
	}

	cleared, err := s.clearance.IsCleared(ctx, authorID, submission.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check clearance state")
	}
	if cleared {
		return nil, appErrors.Clone(appErrors.ErrCleared, "submissions are locked after term clearance")
	}

	term, category, err := s.resolveTermAndCategory(ctx, req.TermID, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if err := s.checkEligibility(req.Dates, term); err != nil {
		return nil, err
	}

	submission.TermID = req.TermID
	submission.CategoryID = req.CategoryID
	submission.CategoryName = category.Name
	submission.Title = req.Title
	submission.Venue = req.Venue
	submission.Role = req.Role
	submission.HasDeliverables = req.HasDeliverables
	submission.ValidationStatus = models.StatusPending
	submission.ValidatorID = nil
	submission.ValidationComment = nil
	submission.Dates = toDateModels(req.Dates)
	submission.Points, err = s.computePoints(ctx, category, req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission")
	}
	return submission, nil
}

// Delete removes a pending submission owned by the author.
func (s *SubmissionService) Delete(ctx context.Context, authorID, id string) error {
	submission, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if submission.AuthorID != authorID {
		return appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another employee")
	}
	if submission.ValidationStatus != models.StatusPending {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "only pending submissions can be deleted")
	}

	cleared, err := s.clearance.IsCleared(ctx, authorID, submission.TermID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check clearance state")
	}
	if cleared {
		return appErrors.Clone(appErrors.ErrCleared, "submissions are locked after term clearance")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete submission")
	}
	return nil
}

// Validate records a reviewer's verdict on a submission. Rejections require
// an explanatory comment.
func (s *SubmissionService) Validate(ctx context.Context, validatorID, id string, req ValidateSubmissionRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid validation payload")
	}
	if req.Status == models.StatusRejected && (req.Comment == nil || *req.Comment == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a comment is required when rejecting")
	}

	submission, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.AuthorID == validatorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "reviewers cannot validate their own submissions")
	}

	if err := s.repo.SetValidation(ctx, id, req.Status, validatorID, req.Comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record validation")
	}

	submission.ValidationStatus = req.Status
	submission.ValidatorID = &validatorID
	submission.ValidationComment = req.Comment

	payload, _ := json.Marshal(map[string]interface{}{"status": req.Status, "comment": req.Comment})
	if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &validatorID,
		Action:     models.AuditActionSubmissionStatus,
		Resource:   "submissions",
		ResourceID: &id,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record validation audit log", zap.Error(err))
	}
	return submission, nil
}

func (s *SubmissionService) resolveTermAndCategory(ctx context.Context, termID string, categoryID int) (*models.Term, *models.Category, error) {
	term, err := s.terms.FindByID(ctx, termID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	category, err := s.categories.Get(ctx, categoryID)
	if err != nil {
		return nil, nil, err
	}
	return term, category, nil
}

func (s *SubmissionService) checkEligibility(dates []SubmissionDateRequest, term *models.Term) error {
	window := points.TermWindow{
		StartDate: term.StartDate,
		EndDate:   term.EndDate,
		IsOngoing: term.IsOngoing,
	}
	today := s.now()
	for _, d := range dates {
		if !points.IsDateEligible(d.Date, window, today) {
			return appErrors.Clone(appErrors.ErrIneligibleDate, fmt.Sprintf("activity date %s is outside the term window", d.Date.Format("2006-01-02")))
		}
	}
	return nil
}

func (s *SubmissionService) computePoints(ctx context.Context, category *models.Category, req CreateSubmissionRequest) (float64, error) {
	// Activities with deliverables are scored by the entered value, not by
	// clock-time duration, regardless of category.
	if req.HasDeliverables {
		return req.ManualPoints, nil
	}

	table, err := s.categories.Table(ctx)
	if err != nil {
		return 0, err
	}
	if _, err := table.Resolve(category.Name); err != nil {
		s.logger.Warn("category missing from lookup table, scoring with default multiplier",
			zap.String("category", category.Name))
	}

	entries := make([]points.DateEntry, 0, len(req.Dates))
	for _, d := range req.Dates {
		entries = append(entries, points.DateEntry{
			Date:        d.Date,
			TimeStarted: d.TimeStarted,
			TimeEnded:   d.TimeEnded,
		})
	}
	return points.SubmissionPoints(table, category.Name, entries, req.ManualPoints), nil
}

func toDateModels(dates []SubmissionDateRequest) []models.SubmissionDate {
	out := make([]models.SubmissionDate, 0, len(dates))
	for _, d := range dates {
		out = append(out, models.SubmissionDate{
			ID:          uuid.NewString(),
			Date:        points.DateOnly(d.Date),
			TimeStarted: d.TimeStarted,
			TimeEnded:   d.TimeEnded,
		})
	}
	return out
}

// AttachProof stores a proof document for a submission owned by the author.
// Size and MIME constraints come from configuration; the stored name is
// derived from the submission ID so a re-upload replaces the previous file.
func (s *SubmissionService) AttachProof(ctx context.Context, authorID, id, originalName, mime string, size int64, r io.Reader) (*models.Submission, error) {
	if size > s.proofCfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "proof file exceeds the maximum allowed size")
	}
	if len(s.proofCfg.AllowedMIMEs) > 0 && !s.proofCfg.AllowedMIMEs[mime] {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported proof content type %q", mime))
	}

	submission, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.AuthorID != authorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another employee")
	}

	stored := fmt.Sprintf("%s%s", id, filepath.Ext(originalName))
	if _, err := s.proofs.SaveStream(stored, io.LimitReader(r, s.proofCfg.MaxFileSizeBytes)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store proof file")
	}

	if err := s.repo.SetProof(ctx, id, stored, mime); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach proof metadata")
	}

	submission.ProofFilename = &stored
	submission.ProofMIME = &mime
	return submission, nil
}

// ProofURL issues a time-limited download token for a submission's proof.
func (s *SubmissionService) ProofURL(ctx context.Context, id string) (string, time.Time, error) {
	submission, err := s.Get(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}
	if submission.ProofFilename == nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "submission has no proof attached")
	}

	token, expiresAt, err := s.signer.Generate(id, *submission.ProofFilename)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign proof url")
	}
	return token, expiresAt, nil
}

// OpenProof resolves a signed token and opens the underlying proof file.
func (s *SubmissionService) OpenProof(ctx context.Context, token string) (*os.File, string, error) {
	id, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired proof token")
	}

	submission, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if submission.ProofFilename == nil || *submission.ProofFilename != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "proof file no longer available")
	}

	file, err := s.proofs.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open proof file")
	}
	mime := "application/octet-stream"
	if submission.ProofMIME != nil {
		mime = *submission.ProofMIME
	}
	return file, mime, nil
}
