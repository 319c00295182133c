package features

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"reviewdesk/internal/models"
	"reviewdesk/internal/repo"
	"reviewdesk/internal/resolver"
	"reviewdesk/internal/rubric"
	"reviewdesk/internal/utils/checker"
	"reviewdesk/internal/utils/sort"
	rb "reviewdesk/pkg/rabbit"
	cache "reviewdesk/pkg/redis"
)

// ReviewSubmittedEvent is published when a reviewer submits and consumed by
// the status-recompute worker.
type ReviewSubmittedEvent struct {
	ResponseID   string               `json:"responseId"`
	FormID       string               `json:"formId"`
	Role         models.ApplicantRole `json:"role"`
	AssignmentID string               `json:"assignmentId"`
}

// FormRequest creates a form with its category registry and enabled roles.
type FormRequest struct {
	Name         string                 `json:"name" binding:"required"`
	EnabledRoles []models.ApplicantRole `json:"enabledRoles"`
	Categories   []string               `json:"categories" binding:"required"`
}

// AssignmentRequest links one applicant response to one evaluator.
type AssignmentRequest struct {
	ApplicantID string                 `json:"applicantId" binding:"required"`
	ReviewerID  string                 `json:"reviewerId" binding:"required"`
	ForRole     models.ApplicantRole   `json:"forRole" binding:"required"`
	ResponseID  string                 `json:"applicationResponseId" binding:"required"`
	Stage       models.AssignmentStage `json:"stage"`
}

// DecisionRequest carries one decision confirmation.
type DecisionRequest struct {
	ResponseID string               `json:"responseId" binding:"required"`
	Role       models.ApplicantRole `json:"role" binding:"required"`
	Decision   string               `json:"decision" binding:"required"`
}

// StatusResponse is the review status plus release flag for one response/role.
type StatusResponse struct {
	ResponseID string               `json:"responseId"`
	Role       models.ApplicantRole `json:"role"`
	Status     string               `json:"status"`
	Released   bool                 `json:"released"`
}

// Portal implements the review-portal use cases behind the HTTP surface.
type Portal struct {
	repo     *repo.Repository
	rabbit   rb.Rabbit
	cache    cache.Cache
	resolver *resolver.Resolver
	rubrics  *rubric.Resolver
	pool     *RecomputePool
	logger   *zap.Logger
}

func New(repository *repo.Repository, rabbit rb.Rabbit, c cache.Cache, cfg *resolver.Config, logger *zap.Logger) *Portal {
	rubrics := rubric.NewResolver(rubricStore{repository.Rubric})
	rows := resolver.New(
		&profileSource{repository.Profile},
		&recordSource{repository.Review, repository.Interview},
		rubrics,
		c,
		cfg,
		logger,
	)

	return &Portal{
		repo:     repository,
		rabbit:   rabbit,
		cache:    c,
		resolver: rows,
		rubrics:  rubrics,
		logger:   logger,
	}
}

// rubricStore adapts the rubric repository to the rubric resolver's store.
type rubricStore struct {
	rubrics repo.IRubric
}

func (s rubricStore) ListByForm(ctx context.Context, formID string) ([]models.RoleReviewRubric, error) {
	return s.rubrics.ListByForm(ctx, formID)
}

// CreateForm registers a form with its category registry.
func (p *Portal) CreateForm(ctx context.Context, req FormRequest) (*models.Form, error) {
	form := &models.Form{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Active:       true,
		EnabledRoles: req.EnabledRoles,
		Categories:   req.Categories,
	}
	if err := p.repo.Form.Create(ctx, form); err != nil {
		p.logger.Error("Failed to create form", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}
	return form, nil
}

// CreateRubric validates and stores one review-stage rubric on a form.
func (p *Portal) CreateRubric(ctx context.Context, formID string, input models.RoleReviewRubric) (*models.RoleReviewRubric, error) {
	form, err := p.repo.Form.Get(ctx, formID)
	if err != nil {
		return nil, err
	}
	input.ID = uuid.NewString()
	input.FormID = formID
	if err := rubric.Validate(input, form); err != nil {
		return nil, err
	}
	if err := p.repo.Rubric.Create(ctx, &input); err != nil {
		p.logger.Error("Failed to create rubric", zap.String("formId", formID), zap.Error(err))
		return nil, err
	}
	p.invalidate(ctx, resolver.ScopeScore)
	return &input, nil
}

// CreateAssignment links an applicant response to an evaluator on a form and
// seeds the stage record so rating can start immediately.
func (p *Portal) CreateAssignment(ctx context.Context, formID string, req AssignmentRequest) (*models.Assignment, error) {
	exists, err := p.repo.Form.Exists(ctx, formID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("unknown form %q", formID)
	}

	profile, err := p.repo.Profile.Get(ctx, req.ApplicantID)
	if err != nil {
		return nil, fmt.Errorf("unknown applicant %q: %v", req.ApplicantID, err)
	}
	if err := checker.CheckApplicant(profile); err != nil {
		return nil, err
	}

	stage := req.Stage
	if stage == "" {
		stage = models.StageReview
	}
	assignment := &models.Assignment{
		ID:          uuid.NewString(),
		FormID:      formID,
		ApplicantID: req.ApplicantID,
		ReviewerID:  req.ReviewerID,
		ForRole:     req.ForRole,
		ResponseID:  req.ResponseID,
		Stage:       stage,
	}
	if err := p.repo.Assignment.Create(ctx, assignment); err != nil {
		p.logger.Error("Failed to create assignment", zap.String("formId", formID), zap.Error(err))
		return nil, err
	}

	switch stage {
	case models.StageInterview:
		err = p.repo.Interview.Create(ctx, &models.ApplicationInterview{
			ID:           uuid.NewString(),
			AssignmentID: assignment.ID,
			ResponseID:   req.ResponseID,
			ReviewerID:   req.ReviewerID,
		})
	default:
		err = p.repo.Review.Create(ctx, &models.ApplicationReview{
			ID:           uuid.NewString(),
			AssignmentID: assignment.ID,
			ResponseID:   req.ResponseID,
			ReviewerID:   req.ReviewerID,
		})
	}
	if err != nil {
		p.logger.Error("Failed to seed stage record", zap.String("assignmentId", assignment.ID), zap.Error(err))
		return nil, err
	}

	p.invalidate(ctx, resolver.ScopeScore)
	return assignment, nil
}

// ListAssignments returns a form's assignments with optional ordering.
func (p *Portal) ListAssignments(ctx context.Context, formID string, sorts []sort.SortMethod) ([]models.Assignment, error) {
	return p.repo.Assignment.ListByForm(ctx, formID, sorts)
}

// GetReview returns one review for its assigned reviewer only.
func (p *Portal) GetReview(ctx context.Context, reviewID string, reviewerID string) (*models.ApplicationReview, error) {
	review, err := p.repo.Review.Get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.ReviewerID != reviewerID {
		return nil, fmt.Errorf("review %q does not belong to the caller", reviewID)
	}
	return review, nil
}

// SaveReviewRatings stores a reviewer's in-progress ratings.
func (p *Portal) SaveReviewRatings(ctx context.Context, reviewID string, reviewerID string, ratings map[string]float64) error {
	if err := p.repo.Review.SaveRatings(ctx, reviewID, reviewerID, ratings); err != nil {
		return err
	}
	p.invalidate(ctx, resolver.ScopeScore)
	return nil
}

// ImportProfile registers an identity-provider record.
func (p *Portal) ImportProfile(ctx context.Context, profile models.Profile) (*models.Profile, error) {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if err := p.repo.Profile.Create(ctx, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// AssignedRows resolves the display rows for one reviewer's assignments on
// a form, in assignment order.
func (p *Portal) AssignedRows(ctx context.Context, formID string, reviewerID string) ([]resolver.AssignedAppRow, error) {
	assignments, err := p.repo.Assignment.ListByReviewer(ctx, formID, reviewerID)
	if err != nil {
		p.logger.Error("Failed to list assignments", zap.String("formId", formID), zap.Error(err))
		return nil, fmt.Errorf("failed to list assignments: %v", err)
	}
	return p.resolver.ResolveRows(ctx, assignments, formID)
}

// ConfirmDecision records a decision confirmation and moves the response's
// status to decided.
func (p *Portal) ConfirmDecision(ctx context.Context, req DecisionRequest, confirmedBy string) (*models.DecisionStatus, error) {
	decision := &models.DecisionStatus{
		ID:          uuid.NewString(),
		ResponseID:  req.ResponseID,
		Role:        req.Role,
		Decision:    req.Decision,
		ConfirmedBy: confirmedBy,
	}
	if err := p.repo.Status.CreateDecision(ctx, decision); err != nil {
		p.logger.Error("Failed to create decision", zap.String("responseId", req.ResponseID), zap.Error(err))
		return nil, err
	}

	if err := p.repo.Status.UpsertAppStatus(ctx, &models.AppStatus{
		ID:         uuid.NewString(),
		ResponseID: req.ResponseID,
		Role:       req.Role,
		Status:     models.StatusDecided,
	}); err != nil {
		p.logger.Error("Failed to update app status", zap.String("responseId", req.ResponseID), zap.Error(err))
		return nil, err
	}

	p.invalidate(ctx, resolver.ScopeStatus)
	return decision, nil
}

// GetStatus returns the current review status and release flag.
func (p *Portal) GetStatus(ctx context.Context, responseID string, role models.ApplicantRole) (*StatusResponse, error) {
	status, err := p.repo.Status.GetAppStatus(ctx, responseID, role)
	if err != nil {
		return nil, err
	}
	return &StatusResponse{
		ResponseID: status.ResponseID,
		Role:       status.Role,
		Status:     status.Status,
		Released:   status.Released,
	}, nil
}

// ImportInterviewRubrics validates and stores an uploaded rubric batch.
// Every rubric is validated against its owning form before anything lands.
func (p *Portal) ImportInterviewRubrics(ctx context.Context, rubrics []models.InterviewRubric) (int, error) {
	forms := make(map[string]*models.Form)
	for i := range rubrics {
		if rubrics[i].ID == "" {
			rubrics[i].ID = uuid.NewString()
		}
		form, ok := forms[rubrics[i].FormID]
		if !ok {
			var err error
			form, err = p.repo.Form.Get(ctx, rubrics[i].FormID)
			if err != nil {
				return 0, fmt.Errorf("unknown form %q: %v", rubrics[i].FormID, err)
			}
			forms[rubrics[i].FormID] = form
		}
		if err := rubric.Validate(rubrics[i].RoleReviewRubric, form); err != nil {
			return 0, err
		}
	}

	if err := p.repo.InterviewRubric.CreateBulk(ctx, rubrics); err != nil {
		p.logger.Error("Failed to store interview rubrics", zap.Error(err))
		return 0, err
	}

	p.invalidate(ctx, resolver.ScopeInterviewData)
	p.invalidate(ctx, resolver.ScopeScore)
	return len(rubrics), nil
}

// SetFormActive toggles a form's active flag. Mutations invalidate every
// scope the form's rows may appear under; over-invalidation is fine here.
func (p *Portal) SetFormActive(ctx context.Context, formID string, active bool) error {
	if err := p.repo.Form.SetActive(ctx, formID, active); err != nil {
		p.logger.Error("Failed to update form active status", zap.String("formId", formID), zap.Error(err))
		return err
	}
	p.invalidate(ctx, resolver.ScopeScore)
	p.invalidate(ctx, resolver.ScopeInterviewData)
	p.invalidate(ctx, resolver.ScopeStatus)
	return nil
}

// SubmitReview locks a review and publishes the submission event.
func (p *Portal) SubmitReview(ctx context.Context, reviewID string, reviewerID string) error {
	review, err := p.repo.Review.Submit(ctx, reviewID, reviewerID)
	if err != nil {
		p.logger.Error("Failed to submit review", zap.String("reviewId", reviewID), zap.Error(err))
		return err
	}

	p.invalidate(ctx, resolver.ScopeScore)

	assignments, err := p.repo.Assignment.ListByResponse(ctx, review.ResponseID)
	if err != nil || len(assignments) == 0 {
		p.logger.Warn("No assignment found for submitted review", zap.String("reviewId", reviewID), zap.Error(err))
		return nil
	}

	// The response can carry assignments for more than one role; the
	// status upsert is keyed by role, so the event must name the role of
	// the assignment this review belongs to.
	var formID string
	var role models.ApplicantRole
	for _, a := range assignments {
		if a.ID == review.AssignmentID {
			formID = a.FormID
			role = a.ForRole
			break
		}
	}
	event := ReviewSubmittedEvent{
		ResponseID:   review.ResponseID,
		FormID:       formID,
		Role:         role,
		AssignmentID: review.AssignmentID,
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.rabbit.Publish(ctx, body); err != nil {
		p.logger.Error("Failed to publish review-submitted event", zap.String("reviewId", reviewID), zap.Error(err))
	}
	return nil
}

// SubmitInterview locks an interview record; once every interview-stage
// assignment for the response is submitted the status advances.
func (p *Portal) SubmitInterview(ctx context.Context, interviewID string, reviewerID string) error {
	interview, err := p.repo.Interview.Submit(ctx, interviewID, reviewerID)
	if err != nil {
		p.logger.Error("Failed to submit interview", zap.String("interviewId", interviewID), zap.Error(err))
		return err
	}

	p.invalidate(ctx, resolver.ScopeScore)
	p.invalidate(ctx, resolver.ScopeInterviewData)

	assignments, err := p.repo.Assignment.ListByResponse(ctx, interview.ResponseID)
	if err != nil || len(assignments) == 0 {
		p.logger.Warn("No assignment found for submitted interview", zap.String("interviewId", interviewID), zap.Error(err))
		return nil
	}
	interviews, err := p.repo.Interview.ListByResponse(ctx, interview.ResponseID)
	if err != nil {
		return err
	}

	interviewAssignments := 0
	for _, a := range assignments {
		if a.Stage == models.StageInterview {
			interviewAssignments++
		}
	}
	submitted := 0
	for _, iv := range interviews {
		if iv.Submitted {
			submitted++
		}
	}
	if interviewAssignments == 0 || submitted < interviewAssignments {
		return nil
	}

	var role models.ApplicantRole
	for _, a := range assignments {
		if a.ID == interview.AssignmentID {
			role = a.ForRole
			break
		}
	}
	if err := p.repo.Status.UpsertAppStatus(ctx, &models.AppStatus{
		ID:         uuid.NewString(),
		ResponseID: interview.ResponseID,
		Role:       role,
		Status:     models.StatusInterviewed,
	}); err != nil {
		return err
	}
	p.invalidate(ctx, resolver.ScopeStatus)
	return nil
}

// SetReleased toggles whether the applicant can see their status.
func (p *Portal) SetReleased(ctx context.Context, responseID string, role models.ApplicantRole, released bool) error {
	if err := p.repo.Status.SetReleased(ctx, responseID, role, released); err != nil {
		p.logger.Error("Failed to update release flag", zap.String("responseId", responseID), zap.Error(err))
		return err
	}
	p.invalidate(ctx, resolver.ScopeStatus)
	return nil
}

// HandleScoreEvent consumes a review-submitted event and enqueues the
// status recompute.
func (p *Portal) HandleScoreEvent(ctx context.Context, msg amqp.Delivery) error {
	var event ReviewSubmittedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return err
	}
	if p.pool == nil {
		return p.recomputeStatus(ctx, RecomputeJob{
			ResponseID: event.ResponseID,
			FormID:     event.FormID,
			Role:       event.Role,
		})
	}
	if !p.pool.EnqueueJob(p.logger, RecomputeJob{
		ResponseID: event.ResponseID,
		FormID:     event.FormID,
		Role:       event.Role,
	}) {
		return fmt.Errorf("failed to enqueue recompute for response %s", event.ResponseID)
	}
	return nil
}

// recomputeStatus re-derives a response's pipeline status after a review
// submission: once every assigned review is in, the response is reviewed.
func (p *Portal) recomputeStatus(ctx context.Context, job RecomputeJob) error {
	assignments, err := p.repo.Assignment.ListByResponse(ctx, job.ResponseID)
	if err != nil {
		return err
	}
	reviews, err := p.repo.Review.ListByResponse(ctx, job.ResponseID)
	if err != nil {
		return err
	}

	reviewAssignments := 0
	for _, a := range assignments {
		if a.Stage == models.StageReview {
			reviewAssignments++
		}
	}
	submitted := 0
	for _, r := range reviews {
		if r.Submitted {
			submitted++
		}
	}

	status := models.StatusInReview
	if reviewAssignments > 0 && submitted >= reviewAssignments {
		status = models.StatusReviewed
	}

	if err := p.repo.Status.UpsertAppStatus(ctx, &models.AppStatus{
		ID:         uuid.NewString(),
		ResponseID: job.ResponseID,
		Role:       job.Role,
		Status:     status,
	}); err != nil {
		return err
	}

	p.invalidate(ctx, resolver.ScopeStatus)
	p.invalidate(ctx, resolver.ScopeScore)

	p.logger.Info("Recomputed response status",
		zap.String("responseId", job.ResponseID),
		zap.String("status", status),
		zap.Duration("queueTime", time.Since(job.EnqueuedAt)))
	return nil
}

func (p *Portal) invalidate(ctx context.Context, scope resolver.Scope) {
	if _, err := p.cache.DeletePrefix(ctx, scope.Prefix()); err != nil {
		p.logger.Warn("Failed to invalidate cache scope", zap.String("scope", string(scope)), zap.Error(err))
	}
}
