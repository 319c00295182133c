package resolver

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"reviewdesk/internal/models"
	"reviewdesk/internal/scoring"
	"reviewdesk/internal/utils/checker"
	cache "reviewdesk/pkg/redis"
)

// ProfileSource fetches applicant profiles by id.
type ProfileSource interface {
	Profile(ctx context.Context, id string) (*models.Profile, error)
}

// RecordSource fetches the review or interview record behind an assignment.
// A missing record is (nil, nil), not an error.
type RecordSource interface {
	Record(ctx context.Context, assignment models.Assignment) (models.ScoredRecord, error)
}

// RubricSource resolves the rubrics applicable to a form and role.
type RubricSource interface {
	Resolve(ctx context.Context, formID string, role models.ApplicantRole) ([]models.RoleReviewRubric, error)
}

// AssignedAppRow joins one assignment with the applicant's identity and the
// computed score. Recomputed on demand, never persisted.
type AssignedAppRow struct {
	Index          int                  `json:"index"`
	AssignmentID   string               `json:"assignmentId"`
	ApplicantID    string               `json:"applicantId"`
	ApplicantName  string               `json:"applicantName"`
	ApplicantEmail string               `json:"applicantEmail"`
	ForRole        models.ApplicantRole `json:"forRole"`
	ResponseID     string               `json:"applicationResponseId"`
	Score          *scoring.Score       `json:"score,omitempty"`
}

// Config is read from viper under "resolver.*".
type Config struct {
	MaxConcurrency int
	CacheTTL       time.Duration
}

func ReadConfig() *Config {
	cfg := &Config{
		MaxConcurrency: viper.GetInt("resolver.max_concurrency"),
		CacheTTL:       viper.GetDuration("resolver.cache_ttl"),
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return cfg
}

// Resolver produces display rows for assignment batches.
type Resolver struct {
	profiles ProfileSource
	records  RecordSource
	rubrics  RubricSource
	cache    cache.Cache
	cfg      *Config
	logger   *zap.Logger
}

func New(profiles ProfileSource, records RecordSource, rubrics RubricSource, c cache.Cache, cfg *Config, logger *zap.Logger) *Resolver {
	return &Resolver{
		profiles: profiles,
		records:  records,
		rubrics:  rubrics,
		cache:    c,
		cfg:      cfg,
		logger:   logger,
	}
}

// ResolveRows joins each assignment with its applicant profile and score.
//
// Assignments fan out over a bounded worker set; within one assignment the
// profile and record fetches run concurrently. Output order matches input
// order and every assignment yields exactly one row, or the whole call fails.
//
// A profile that is not an applicant identity fails the batch. A score that
// cannot be computed (fetch or calculation failure) is isolated to its row
// and replaced with the invalid-score sentinel.
func (r *Resolver) ResolveRows(ctx context.Context, assignments []models.Assignment, formID string) ([]AssignedAppRow, error) {
	key := RowsKey(formID, assignments)
	if cached, err := r.cache.Get(ctx, key); err == nil && cached != nil {
		var rows []AssignedAppRow
		if err := json.Unmarshal(cached, &rows); err == nil {
			return rows, nil
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rows := make([]AssignedAppRow, len(assignments))
	sem := make(chan struct{}, r.cfg.MaxConcurrency)
	var wg sync.WaitGroup
	var once sync.Once
	var fatal error

	fail := func(err error) {
		once.Do(func() {
			fatal = err
			cancel()
		})
	}

	for i, assignment := range assignments {
		wg.Add(1)
		go func(i int, assignment models.Assignment) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			profile, record, recordErr, profileErr := r.fetch(ctx, assignment)
			if profileErr != nil {
				fail(profileErr)
				return
			}
			if err := checker.CheckApplicant(profile); err != nil {
				fail(err)
				return
			}

			rows[i] = AssignedAppRow{
				Index:          i + 1,
				AssignmentID:   assignment.ID,
				ApplicantID:    profile.ID,
				ApplicantName:  profile.Name,
				ApplicantEmail: profile.Email,
				ForRole:        assignment.ForRole,
				ResponseID:     assignment.ResponseID,
				Score:          r.score(ctx, assignment, record, recordErr),
			}
		}(i, assignment)
	}

	wg.Wait()
	if fatal != nil {
		return nil, fatal
	}

	if _, err := r.cache.Set(ctx, key, rows, r.cfg.CacheTTL); err != nil {
		r.logger.Warn("Failed to cache resolved rows", zap.String("key", key), zap.Error(err))
	}
	return rows, nil
}

// fetch runs the profile and record lookups for one assignment concurrently.
func (r *Resolver) fetch(ctx context.Context, assignment models.Assignment) (*models.Profile, models.ScoredRecord, error, error) {
	var (
		profile    *models.Profile
		record     models.ScoredRecord
		profileErr error
		recordErr  error
		wg         sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		profile, profileErr = r.profiles.Profile(ctx, assignment.ApplicantID)
	}()
	go func() {
		defer wg.Done()
		record, recordErr = r.records.Record(ctx, assignment)
	}()
	wg.Wait()

	return profile, record, recordErr, profileErr
}

// score computes one row's score field. A nil result means the score is
// absent (no record, or not submitted); the sentinel means computation failed.
func (r *Resolver) score(ctx context.Context, assignment models.Assignment, record models.ScoredRecord, recordErr error) *scoring.Score {
	if recordErr != nil {
		r.logger.Warn("Failed to fetch record for assignment, substituting invalid score",
			zap.String("assignmentId", assignment.ID),
			zap.Error(recordErr))
		invalid := scoring.Invalid()
		return &invalid
	}
	if record == nil || !record.IsSubmitted() {
		return nil
	}

	rubrics, err := r.rubrics.Resolve(ctx, assignment.FormID, assignment.ForRole)
	if err != nil {
		r.logger.Warn("Failed to resolve rubrics for assignment, substituting invalid score",
			zap.String("assignmentId", assignment.ID),
			zap.String("formId", assignment.FormID),
			zap.Error(err))
		invalid := scoring.Invalid()
		return &invalid
	}
	if len(rubrics) == 0 {
		r.logger.Warn("No rubric resolved, falling back to legacy constant denominator",
			zap.String("formId", assignment.FormID),
			zap.String("forRole", string(assignment.ForRole)))
	}

	score, err := scoring.Calculate(record, rubrics)
	if err != nil {
		r.logger.Warn("Failed to compute score for assignment, substituting invalid score",
			zap.String("assignmentId", assignment.ID),
			zap.Error(err))
		invalid := scoring.Invalid()
		return &invalid
	}
	return &score
}
