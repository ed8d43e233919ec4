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

type classStore interface {
	List(ctx context.Context, tutorID string, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, tutorID, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, tutorID, id string) (int, error)
}

// ClassService manages a tutor's classes.
type ClassService struct {
	repo     classStore
	validate *validator.Validate
	logger   *zap.Logger
}

// NewClassService constructs the service.
func NewClassService(repo classStore, validate *validator.Validate, logger *zap.Logger) *ClassService {
	return &ClassService{repo: repo, validate: validate, logger: logger}
}

// List returns the tutor's classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, tutorID string, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, tutorID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return classes, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one class owned by the tutor.
func (s *ClassService) Get(ctx context.Context, tutorID, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, tutorID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// CreateClassRequest carries a new class.
type CreateClassRequest struct {
	Name       string  `json:"name" validate:"required,min=1,max=120"`
	HourlyRate float64 `json:"hourly_rate" validate:"required,gt=0"`
}

// Create persists a new class for the tutor.
func (s *ClassService) Create(ctx context.Context, tutorID string, req CreateClassRequest) (*models.Class, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class := &models.Class{
		TutorID:    tutorID,
		Name:       req.Name,
		HourlyRate: req.HourlyRate,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.logger.Info("class created", zap.String("class_id", class.ID))
	return class, nil
}

// Delete removes a class owned by the tutor.
func (s *ClassService) Delete(ctx context.Context, tutorID, id string) error {
	affected, err := s.repo.Delete(ctx, tutorID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	s.logger.Info("class deleted", zap.String("class_id", id))
	return nil
}
