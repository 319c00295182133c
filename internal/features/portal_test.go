package features

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reviewdesk/internal/models"
	"reviewdesk/internal/repo"
	"reviewdesk/internal/resolver"
	"reviewdesk/internal/utils/sort"
)

type fakeForms struct {
	forms     map[string]*models.Form
	setActive []string
}

func (f *fakeForms) Get(ctx context.Context, id string) (*models.Form, error) {
	form, ok := f.forms[id]
	if !ok {
		return nil, assert.AnError
	}
	return form, nil
}

func (f *fakeForms) Create(ctx context.Context, form *models.Form) error { return nil }

func (f *fakeForms) SetActive(ctx context.Context, id string, active bool) error {
	f.setActive = append(f.setActive, id)
	return nil
}

func (f *fakeForms) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := f.forms[id]
	return ok, nil
}

type fakeReviews struct {
	byResponse map[string][]models.ApplicationReview
	submitted  *models.ApplicationReview
	created    []models.ApplicationReview
}

func (f *fakeReviews) Create(ctx context.Context, review *models.ApplicationReview) error {
	f.created = append(f.created, *review)
	return nil
}

func (f *fakeReviews) Get(ctx context.Context, id string) (*models.ApplicationReview, error) {
	return nil, nil
}

func (f *fakeReviews) GetByAssignment(ctx context.Context, assignmentID string) (*models.ApplicationReview, error) {
	return nil, nil
}

func (f *fakeReviews) ListByResponse(ctx context.Context, responseID string) ([]models.ApplicationReview, error) {
	return f.byResponse[responseID], nil
}

func (f *fakeReviews) SaveRatings(ctx context.Context, id string, reviewerID string, ratings map[string]float64) error {
	return nil
}

func (f *fakeReviews) Submit(ctx context.Context, id string, reviewerID string) (*models.ApplicationReview, error) {
	if f.submitted == nil {
		return nil, assert.AnError
	}
	return f.submitted, nil
}

type fakeAssignments struct {
	byResponse map[string][]models.Assignment
	created    []models.Assignment
}

func (f *fakeAssignments) Create(ctx context.Context, assignment *models.Assignment) error {
	f.created = append(f.created, *assignment)
	return nil
}

func (f *fakeAssignments) ListByForm(ctx context.Context, formID string, sorts []sort.SortMethod) ([]models.Assignment, error) {
	return nil, nil
}

func (f *fakeAssignments) ListByReviewer(ctx context.Context, formID string, reviewerID string) ([]models.Assignment, error) {
	return nil, nil
}

func (f *fakeAssignments) ListByResponse(ctx context.Context, responseID string) ([]models.Assignment, error) {
	return f.byResponse[responseID], nil
}

type fakeInterviews struct {
	byResponse map[string][]models.ApplicationInterview
	submitted  *models.ApplicationInterview
}

func (f *fakeInterviews) Create(ctx context.Context, interview *models.ApplicationInterview) error {
	return nil
}

func (f *fakeInterviews) GetByAssignment(ctx context.Context, assignmentID string) (*models.ApplicationInterview, error) {
	return nil, nil
}

func (f *fakeInterviews) ListByResponse(ctx context.Context, responseID string) ([]models.ApplicationInterview, error) {
	return f.byResponse[responseID], nil
}

func (f *fakeInterviews) Submit(ctx context.Context, id string, reviewerID string) (*models.ApplicationInterview, error) {
	if f.submitted == nil {
		return nil, assert.AnError
	}
	return f.submitted, nil
}

type fakeStatuses struct {
	decisions []models.DecisionStatus
	upserts   []models.AppStatus
	released  []bool
	current   *models.AppStatus
}

func (f *fakeStatuses) CreateDecision(ctx context.Context, decision *models.DecisionStatus) error {
	f.decisions = append(f.decisions, *decision)
	return nil
}

func (f *fakeStatuses) GetAppStatus(ctx context.Context, responseID string, role models.ApplicantRole) (*models.AppStatus, error) {
	if f.current == nil {
		return nil, assert.AnError
	}
	return f.current, nil
}

func (f *fakeStatuses) UpsertAppStatus(ctx context.Context, status *models.AppStatus) error {
	f.upserts = append(f.upserts, *status)
	return nil
}

func (f *fakeStatuses) SetReleased(ctx context.Context, responseID string, role models.ApplicantRole, released bool) error {
	f.released = append(f.released, released)
	return nil
}

type fakeInterviewRubrics struct {
	created []models.InterviewRubric
}

func (f *fakeInterviewRubrics) ListByForm(ctx context.Context, formID string) ([]models.InterviewRubric, error) {
	return nil, nil
}

func (f *fakeInterviewRubrics) CreateBulk(ctx context.Context, rubrics []models.InterviewRubric) error {
	f.created = append(f.created, rubrics...)
	return nil
}

type fakeRubrics struct {
	created []models.RoleReviewRubric
}

func (f *fakeRubrics) ListByForm(ctx context.Context, formID string) ([]models.RoleReviewRubric, error) {
	return nil, nil
}

func (f *fakeRubrics) Create(ctx context.Context, rubric *models.RoleReviewRubric) error {
	f.created = append(f.created, *rubric)
	return nil
}

type fakeProfiles struct {
	profiles map[string]*models.Profile
}

func (f *fakeProfiles) Get(ctx context.Context, id string) (*models.Profile, error) {
	profile, ok := f.profiles[id]
	if !ok {
		return nil, assert.AnError
	}
	return profile, nil
}

func (f *fakeProfiles) Create(ctx context.Context, profile *models.Profile) error {
	return nil
}

// recordingCache tracks invalidation prefixes; reads always miss.
type recordingCache struct {
	deletedPrefixes []string
}

func (c *recordingCache) Set(ctx context.Context, key string, value any, expireTime time.Duration) (bool, error) {
	return false, nil
}

func (c *recordingCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, nil
}

func (c *recordingCache) Delete(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func (c *recordingCache) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	c.deletedPrefixes = append(c.deletedPrefixes, prefix)
	return 0, nil
}

type recordingQueue struct {
	published [][]byte
}

func (q *recordingQueue) Consume(ctx context.Context, consumeFunction func(ctx context.Context, msg amqp.Delivery) error) error {
	return nil
}

func (q *recordingQueue) Publish(ctx context.Context, body []byte) error {
	q.published = append(q.published, body)
	return nil
}

type portalFixture struct {
	portal           *Portal
	forms            *fakeForms
	rubrics          *fakeRubrics
	reviews          *fakeReviews
	interviews       *fakeInterviews
	assignments      *fakeAssignments
	profiles         *fakeProfiles
	statuses         *fakeStatuses
	interviewRubrics *fakeInterviewRubrics
	cache            *recordingCache
	queue            *recordingQueue
}

func newPortalFixture() *portalFixture {
	f := &portalFixture{
		forms:            &fakeForms{forms: map[string]*models.Form{}},
		rubrics:          &fakeRubrics{},
		reviews:          &fakeReviews{byResponse: map[string][]models.ApplicationReview{}},
		interviews:       &fakeInterviews{byResponse: map[string][]models.ApplicationInterview{}},
		assignments:      &fakeAssignments{byResponse: map[string][]models.Assignment{}},
		profiles:         &fakeProfiles{profiles: map[string]*models.Profile{}},
		statuses:         &fakeStatuses{},
		interviewRubrics: &fakeInterviewRubrics{},
		cache:            &recordingCache{},
		queue:            &recordingQueue{},
	}
	repository := &repo.Repository{
		Form:            f.forms,
		Rubric:          f.rubrics,
		InterviewRubric: f.interviewRubrics,
		Review:          f.reviews,
		Interview:       f.interviews,
		Assignment:      f.assignments,
		Profile:         f.profiles,
		Status:          f.statuses,
	}
	f.portal = New(repository, f.queue, f.cache, &resolver.Config{MaxConcurrency: 2, CacheTTL: time.Minute}, zap.NewNop())
	return f
}

func TestSubmitReviewPublishesEventAndInvalidatesScores(t *testing.T) {
	f := newPortalFixture()
	f.reviews.submitted = &models.ApplicationReview{
		ID:           "rev-1",
		AssignmentID: "asg-1",
		ResponseID:   "resp-1",
		Submitted:    true,
	}
	f.assignments.byResponse["resp-1"] = []models.Assignment{
		{ID: "asg-1", FormID: "form-1", ForRole: "developer", ResponseID: "resp-1"},
	}

	err := f.portal.SubmitReview(context.Background(), "rev-1", "reviewer-1")
	require.NoError(t, err)

	assert.Contains(t, f.cache.deletedPrefixes, "score:")

	require.Len(t, f.queue.published, 1)
	var event ReviewSubmittedEvent
	require.NoError(t, json.Unmarshal(f.queue.published[0], &event))
	assert.Equal(t, "resp-1", event.ResponseID)
	assert.Equal(t, "form-1", event.FormID)
	assert.Equal(t, models.ApplicantRole("developer"), event.Role)
	assert.Equal(t, "asg-1", event.AssignmentID)
}

func TestSubmitReviewEventCarriesOwningAssignmentRole(t *testing.T) {
	f := newPortalFixture()
	f.reviews.submitted = &models.ApplicationReview{
		ID:           "rev-2",
		AssignmentID: "asg-2",
		ResponseID:   "resp-1",
		Submitted:    true,
	}
	f.assignments.byResponse["resp-1"] = []models.Assignment{
		{ID: "asg-1", FormID: "form-1", ForRole: "developer", ResponseID: "resp-1"},
		{ID: "asg-2", FormID: "form-1", ForRole: "designer", ResponseID: "resp-1"},
	}

	err := f.portal.SubmitReview(context.Background(), "rev-2", "reviewer-1")
	require.NoError(t, err)

	require.Len(t, f.queue.published, 1)
	var event ReviewSubmittedEvent
	require.NoError(t, json.Unmarshal(f.queue.published[0], &event))
	assert.Equal(t, models.ApplicantRole("designer"), event.Role)
	assert.Equal(t, "asg-2", event.AssignmentID)
}

func TestHandleScoreEventMarksReviewedWhenAllSubmitted(t *testing.T) {
	f := newPortalFixture()
	f.assignments.byResponse["resp-1"] = []models.Assignment{
		{ID: "asg-1", Stage: models.StageReview, ResponseID: "resp-1"},
		{ID: "asg-2", Stage: models.StageReview, ResponseID: "resp-1"},
		{ID: "asg-3", Stage: models.StageInterview, ResponseID: "resp-1"},
	}
	f.reviews.byResponse["resp-1"] = []models.ApplicationReview{
		{ID: "rev-1", Submitted: true},
		{ID: "rev-2", Submitted: true},
	}

	body, err := json.Marshal(ReviewSubmittedEvent{ResponseID: "resp-1", FormID: "form-1", Role: "developer"})
	require.NoError(t, err)

	err = f.portal.HandleScoreEvent(context.Background(), amqp.Delivery{Body: body})
	require.NoError(t, err)

	require.Len(t, f.statuses.upserts, 1)
	assert.Equal(t, models.StatusReviewed, f.statuses.upserts[0].Status)
	assert.Equal(t, models.ApplicantRole("developer"), f.statuses.upserts[0].Role)
	assert.Contains(t, f.cache.deletedPrefixes, "status:")
	assert.Contains(t, f.cache.deletedPrefixes, "score:")
}

func TestHandleScoreEventKeepsInReviewWhileSubmissionsPending(t *testing.T) {
	f := newPortalFixture()
	f.assignments.byResponse["resp-1"] = []models.Assignment{
		{ID: "asg-1", Stage: models.StageReview, ResponseID: "resp-1"},
		{ID: "asg-2", Stage: models.StageReview, ResponseID: "resp-1"},
	}
	f.reviews.byResponse["resp-1"] = []models.ApplicationReview{
		{ID: "rev-1", Submitted: true},
		{ID: "rev-2", Submitted: false},
	}

	body, err := json.Marshal(ReviewSubmittedEvent{ResponseID: "resp-1", Role: "developer"})
	require.NoError(t, err)

	err = f.portal.HandleScoreEvent(context.Background(), amqp.Delivery{Body: body})
	require.NoError(t, err)

	require.Len(t, f.statuses.upserts, 1)
	assert.Equal(t, models.StatusInReview, f.statuses.upserts[0].Status)
}

func TestConfirmDecisionRecordsAndInvalidatesStatus(t *testing.T) {
	f := newPortalFixture()

	decision, err := f.portal.ConfirmDecision(context.Background(), DecisionRequest{
		ResponseID: "resp-1",
		Role:       "designer",
		Decision:   "accepted",
	}, "admin-1")
	require.NoError(t, err)

	assert.NotEmpty(t, decision.ID)
	assert.Equal(t, "accepted", decision.Decision)
	assert.Equal(t, "admin-1", decision.ConfirmedBy)

	require.Len(t, f.statuses.upserts, 1)
	assert.Equal(t, models.StatusDecided, f.statuses.upserts[0].Status)
	assert.Contains(t, f.cache.deletedPrefixes, "status:")
}

func TestSetFormActiveInvalidatesEveryScope(t *testing.T) {
	f := newPortalFixture()
	f.forms.forms["form-1"] = &models.Form{ID: "form-1"}

	err := f.portal.SetFormActive(context.Background(), "form-1", false)
	require.NoError(t, err)

	assert.Equal(t, []string{"form-1"}, f.forms.setActive)
	assert.ElementsMatch(t, []string{"score:", "interview-data:", "status:"}, f.cache.deletedPrefixes)
}

func TestImportInterviewRubrics(t *testing.T) {
	f := newPortalFixture()
	f.forms.forms["form-1"] = &models.Form{
		ID:           "form-1",
		EnabledRoles: []models.ApplicantRole{"developer"},
		Categories:   []string{"technical", "teamwork"},
	}

	count, err := f.portal.ImportInterviewRubrics(context.Background(), []models.InterviewRubric{
		{RoleReviewRubric: models.RoleReviewRubric{
			FormID:     "form-1",
			Name:       "interview round",
			Categories: map[string]float64{"technical": 4},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, f.interviewRubrics.created, 1)
	assert.NotEmpty(t, f.interviewRubrics.created[0].ID)
	assert.Contains(t, f.cache.deletedPrefixes, "interview-data:")
	assert.Contains(t, f.cache.deletedPrefixes, "score:")
}

func TestImportInterviewRubricsRejectsUnknownCategory(t *testing.T) {
	f := newPortalFixture()
	f.forms.forms["form-1"] = &models.Form{
		ID:         "form-1",
		Categories: []string{"technical"},
	}

	_, err := f.portal.ImportInterviewRubrics(context.Background(), []models.InterviewRubric{
		{RoleReviewRubric: models.RoleReviewRubric{
			FormID:     "form-1",
			Name:       "interview round",
			Categories: map[string]float64{"vibes": 4},
		}},
	})
	require.Error(t, err)
	assert.Empty(t, f.interviewRubrics.created)
}

func TestSubmitInterviewAdvancesStatusWhenAllSubmitted(t *testing.T) {
	f := newPortalFixture()
	f.interviews.submitted = &models.ApplicationInterview{
		ID:           "int-1",
		AssignmentID: "asg-3",
		ResponseID:   "resp-1",
		Submitted:    true,
	}
	f.assignments.byResponse["resp-1"] = []models.Assignment{
		{ID: "asg-1", Stage: models.StageReview, ResponseID: "resp-1"},
		{ID: "asg-3", Stage: models.StageInterview, ForRole: "developer", ResponseID: "resp-1"},
	}
	f.interviews.byResponse["resp-1"] = []models.ApplicationInterview{
		{ID: "int-1", Submitted: true},
	}

	err := f.portal.SubmitInterview(context.Background(), "int-1", "reviewer-1")
	require.NoError(t, err)

	require.Len(t, f.statuses.upserts, 1)
	assert.Equal(t, models.StatusInterviewed, f.statuses.upserts[0].Status)
	assert.Equal(t, models.ApplicantRole("developer"), f.statuses.upserts[0].Role)
	assert.Contains(t, f.cache.deletedPrefixes, "score:")
	assert.Contains(t, f.cache.deletedPrefixes, "interview-data:")
}

func TestSubmitInterviewLeavesStatusWhilePending(t *testing.T) {
	f := newPortalFixture()
	f.interviews.submitted = &models.ApplicationInterview{
		ID:           "int-1",
		AssignmentID: "asg-3",
		ResponseID:   "resp-1",
		Submitted:    true,
	}
	f.assignments.byResponse["resp-1"] = []models.Assignment{
		{ID: "asg-3", Stage: models.StageInterview, ResponseID: "resp-1"},
		{ID: "asg-4", Stage: models.StageInterview, ResponseID: "resp-1"},
	}
	f.interviews.byResponse["resp-1"] = []models.ApplicationInterview{
		{ID: "int-1", Submitted: true},
	}

	err := f.portal.SubmitInterview(context.Background(), "int-1", "reviewer-1")
	require.NoError(t, err)
	assert.Empty(t, f.statuses.upserts)
}

func TestSetReleasedInvalidatesStatus(t *testing.T) {
	f := newPortalFixture()

	err := f.portal.SetReleased(context.Background(), "resp-1", "developer", true)
	require.NoError(t, err)

	assert.Equal(t, []bool{true}, f.statuses.released)
	assert.Contains(t, f.cache.deletedPrefixes, "status:")
}

func TestCreateAssignmentSeedsStageRecord(t *testing.T) {
	f := newPortalFixture()
	f.forms.forms["form-1"] = &models.Form{ID: "form-1"}
	f.profiles.profiles["app-1"] = &models.Profile{ID: "app-1", Role: models.UserRoleApplicant}

	assignment, err := f.portal.CreateAssignment(context.Background(), "form-1", AssignmentRequest{
		ApplicantID: "app-1",
		ReviewerID:  "reviewer-1",
		ForRole:     "developer",
		ResponseID:  "resp-1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StageReview, assignment.Stage)
	require.Len(t, f.assignments.created, 1)
	require.Len(t, f.reviews.created, 1)
	assert.Equal(t, assignment.ID, f.reviews.created[0].AssignmentID)
	assert.Contains(t, f.cache.deletedPrefixes, "score:")
}

func TestCreateAssignmentRejectsNonApplicant(t *testing.T) {
	f := newPortalFixture()
	f.forms.forms["form-1"] = &models.Form{ID: "form-1"}
	f.profiles.profiles["rev-9"] = &models.Profile{ID: "rev-9", Role: models.UserRoleReviewer}

	_, err := f.portal.CreateAssignment(context.Background(), "form-1", AssignmentRequest{
		ApplicantID: "rev-9",
		ReviewerID:  "reviewer-1",
		ForRole:     "developer",
		ResponseID:  "resp-1",
	})
	require.Error(t, err)
	assert.Empty(t, f.assignments.created)
}

func TestCreateRubricValidatesAgainstForm(t *testing.T) {
	f := newPortalFixture()
	f.forms.forms["form-1"] = &models.Form{
		ID:           "form-1",
		EnabledRoles: []models.ApplicantRole{"developer"},
		Categories:   []string{"technical"},
	}

	created, err := f.portal.CreateRubric(context.Background(), "form-1", models.RoleReviewRubric{
		Name:       "round one",
		Roles:      []models.ApplicantRole{"developer"},
		Categories: map[string]float64{"technical": 3},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "form-1", created.FormID)
	require.Len(t, f.rubrics.created, 1)

	_, err = f.portal.CreateRubric(context.Background(), "form-1", models.RoleReviewRubric{
		Name:       "bad round",
		Categories: map[string]float64{"charisma": 3},
	})
	require.Error(t, err)
	assert.Len(t, f.rubrics.created, 1)
}

func TestGetStatus(t *testing.T) {
	f := newPortalFixture()
	f.statuses.current = &models.AppStatus{
		ResponseID: "resp-1",
		Role:       "developer",
		Status:     models.StatusReviewed,
		Released:   true,
	}

	status, err := f.portal.GetStatus(context.Background(), "resp-1", "developer")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewed, status.Status)
	assert.True(t, status.Released)
}
