package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutordesk/tutordesk-api/internal/models"
	appErrors "github.com/tutordesk/tutordesk-api/pkg/errors"
)

type studentStore interface {
	List(ctx context.Context, tutorID string, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, tutorID, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

// StudentService manages a tutor's students.
type StudentService struct {
	repo     studentStore
	validate *validator.Validate
	logger   *zap.Logger
}

// NewStudentService constructs the service.
func NewStudentService(repo studentStore, validate *validator.Validate, logger *zap.Logger) *StudentService {
	return &StudentService{repo: repo, validate: validate, logger: logger}
}

// List returns the tutor's students with pagination metadata.
func (s *StudentService) List(ctx context.Context, tutorID string, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, tutorID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one student owned by the tutor.
func (s *StudentService) Get(ctx context.Context, tutorID, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, tutorID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// CreateStudentRequest carries a new student.
type CreateStudentRequest struct {
	FullName string  `json:"full_name" validate:"required,min=1,max=160"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

// Create persists a new student for the tutor. New students start active with
// no billing history.
func (s *StudentService) Create(ctx context.Context, tutorID string, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := &models.Student{
		TutorID:  tutorID,
		FullName: req.FullName,
		Email:    req.Email,
		Active:   true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student created", zap.String("student_id", student.ID))
	return student, nil
}

// UpdateStudentRequest carries contact field changes. Billing fields are
// owned by the payment flow and cannot be set here.
type UpdateStudentRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=160"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Active   *bool   `json:"active"`
}

// Update applies contact field changes to a student.
func (s *StudentService) Update(ctx context.Context, tutorID, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.Get(ctx, tutorID, id)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		student.FullName = *req.FullName
	}
	if req.Email != nil {
		student.Email = req.Email
	}
	if req.Active != nil {
		student.Active = *req.Active
	}
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}
