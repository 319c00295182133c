package models

import (
	"time"
)

// UserRole identifies what kind of account a profile belongs to.
type UserRole string

const (
	UserRoleApplicant     UserRole = "applicant"
	UserRoleReviewer      UserRole = "reviewer"
	UserRoleSuperReviewer UserRole = "super-reviewer"
)

// ApplicantRole tags the track/position an applicant applied for.
// The set of roles is open-ended and configured per form.
type ApplicantRole string

// AssignmentStage selects which record type backs an assignment's score.
type AssignmentStage string

const (
	StageReview    AssignmentStage = "review"
	StageInterview AssignmentStage = "interview"
)

// MaxCategoryWeight bounds a single rubric category's weight.
const MaxCategoryWeight = 4.0

// Form owns rubrics, assignments, and the category registry that rubric
// keys are validated against.
type Form struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	Name         string          `gorm:"not null" json:"name"`
	Active       bool            `gorm:"default:true" json:"active"`
	EnabledRoles []ApplicantRole `gorm:"serializer:json" json:"enabledRoles"`
	Categories   []string        `gorm:"serializer:json" json:"categories"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// RoleReviewRubric maps category names to maximum weights for one form.
// An empty Roles set means the rubric applies to every role on the form.
type RoleReviewRubric struct {
	ID         string             `gorm:"primaryKey;size:36" json:"id"`
	Seq        int64              `gorm:"autoIncrement;uniqueIndex" json:"-"`
	FormID     string             `gorm:"size:36;index;not null" json:"formId"`
	Name       string             `json:"name"`
	Roles      []ApplicantRole    `gorm:"serializer:json" json:"roles"`
	Categories map[string]float64 `gorm:"serializer:json" json:"categories"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// AppliesTo reports whether the rubric covers the given role.
func (r RoleReviewRubric) AppliesTo(role ApplicantRole) bool {
	if len(r.Roles) == 0 {
		return true
	}
	for _, rr := range r.Roles {
		if rr == role {
			return true
		}
	}
	return false
}

// InterviewRubric is the interview-stage counterpart of RoleReviewRubric,
// kept in its own collection.
type InterviewRubric struct {
	RoleReviewRubric `gorm:"embedded"`
}

func (InterviewRubric) TableName() string {
	return "interview_rubrics"
}

// ScoredRecord is the common surface of review and interview records that
// the score aggregator consumes.
type ScoredRecord interface {
	IsSubmitted() bool
	CategoryRatings() map[string]float64
}

// ApplicationReview is one reviewer's evaluation of one response. Mutable by
// the assigned reviewer until submission, read-only afterwards, never deleted.
type ApplicationReview struct {
	ID           string             `gorm:"primaryKey;size:36" json:"id"`
	AssignmentID string             `gorm:"size:36;uniqueIndex;not null" json:"assignmentId"`
	ResponseID   string             `gorm:"size:36;index;not null" json:"responseId"`
	ReviewerID   string             `gorm:"size:36;not null" json:"reviewerId"`
	Submitted    bool               `gorm:"default:false" json:"submitted"`
	Ratings      map[string]float64 `gorm:"serializer:json" json:"ratings"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

func (r *ApplicationReview) IsSubmitted() bool                   { return r.Submitted }
func (r *ApplicationReview) CategoryRatings() map[string]float64 { return r.Ratings }

// ApplicationInterview mirrors ApplicationReview for the interview stage.
type ApplicationInterview struct {
	ID           string             `gorm:"primaryKey;size:36" json:"id"`
	AssignmentID string             `gorm:"size:36;uniqueIndex;not null" json:"assignmentId"`
	ResponseID   string             `gorm:"size:36;index;not null" json:"responseId"`
	ReviewerID   string             `gorm:"size:36;not null" json:"reviewerId"`
	Submitted    bool               `gorm:"default:false" json:"submitted"`
	Ratings      map[string]float64 `gorm:"serializer:json" json:"ratings"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

func (r *ApplicationInterview) IsSubmitted() bool                   { return r.Submitted }
func (r *ApplicationInterview) CategoryRatings() map[string]float64 { return r.Ratings }

// Assignment links one applicant's response to one evaluator for one role.
// Created by the assignment process and never mutated by the scoring engine.
type Assignment struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	FormID      string          `gorm:"size:36;index;not null" json:"formId"`
	ApplicantID string          `gorm:"size:36;not null" json:"applicantId"`
	ReviewerID  string          `gorm:"size:36;index;not null" json:"reviewerId"`
	ForRole     ApplicantRole   `gorm:"size:64;not null" json:"forRole"`
	ResponseID  string          `gorm:"size:36;not null" json:"applicationResponseId"`
	Stage       AssignmentStage `gorm:"size:16;default:review" json:"stage"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Profile is an identity-provider record for any portal user.
type Profile struct {
	ID            string   `gorm:"primaryKey;size:36" json:"id"`
	Email         string   `gorm:"index" json:"email"`
	Name          string   `json:"name"`
	Role          UserRole `gorm:"size:32;not null" json:"role"`
	EmailVerified bool     `json:"emailVerified"`
}

// DecisionStatus records a confirmed decision for one response and role.
type DecisionStatus struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	ResponseID  string        `gorm:"size:36;index;not null" json:"responseId"`
	Role        ApplicantRole `gorm:"size:64;not null" json:"role"`
	Decision    string        `gorm:"size:32;not null" json:"decision"`
	ConfirmedBy string        `gorm:"size:36" json:"confirmedBy"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// AppStatus tracks the review-pipeline status and the release flag for one
// response and role. Released controls whether the applicant can see it.
type AppStatus struct {
	ID         string        `gorm:"primaryKey;size:36" json:"id"`
	ResponseID string        `gorm:"size:36;index:idx_app_status,unique;not null" json:"responseId"`
	Role       ApplicantRole `gorm:"size:64;index:idx_app_status,unique;not null" json:"role"`
	Status     string        `gorm:"size:32" json:"status"`
	Released   bool          `gorm:"default:false" json:"released"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// Pipeline statuses for AppStatus.Status.
const (
	StatusPending     = "pending"
	StatusInReview    = "in-review"
	StatusReviewed    = "reviewed"
	StatusInterviewed = "interviewed"
	StatusDecided     = "decided"
)
