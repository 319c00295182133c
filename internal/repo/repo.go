package repo

import "gorm.io/gorm"

type Repository struct {
	Form            IForm
	Rubric          IRubric
	InterviewRubric IInterviewRubric
	Review          IReview
	Interview       IInterview
	Assignment      IAssignment
	Profile         IProfile
	Status          IStatus
	DB              *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{
		DB:              db,
		Form:            NewFormRepository(db),
		Rubric:          NewRubricRepository(db),
		InterviewRubric: NewInterviewRubricRepository(db),
		Review:          NewReviewRepository(db),
		Interview:       NewInterviewRepository(db),
		Assignment:      NewAssignmentRepository(db),
		Profile:         NewProfileRepository(db),
		Status:          NewStatusRepository(db),
	}
}
