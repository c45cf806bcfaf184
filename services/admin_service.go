package services

import (
	"context"
	"errors"

	"github.com/anjiri1684/course_academy/models"
	"github.com/anjiri1684/course_academy/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdminService struct {
	repo   store.Repository
	events EventPublisher
	log    *zap.Logger
}

func NewAdminService(repo store.Repository, events EventPublisher, log *zap.Logger) *AdminService {
	return &AdminService{repo: repo, events: events, log: log}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.repo.ListUsers(ctx)
}

// AssignCourse grants a course without payment.
func (s *AdminService) AssignCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Purchase, error) {
	if _, err := s.repo.FindUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if _, err := s.repo.FindCourseByID(ctx, courseID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	purchase := &models.Purchase{UserID: userID, CourseID: courseID, Source: models.PurchaseSourceAdmin}
	created, err := s.repo.CreatePurchase(ctx, purchase)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrAlreadyOwned
	}

	s.log.Info("course assigned", zap.String("user_id", userID.String()), zap.String("course_id", courseID.String()))
	if s.events != nil {
		s.events.Publish(userID, EntitlementEvent{
			Type:   EventEntitlementGranted,
			Intent: models.Intent{Kind: models.IntentCourse, TargetID: courseID.String()}.String(),
		})
	}
	return purchase, nil
}

func (s *AdminService) RemoveCourse(ctx context.Context, userID, courseID uuid.UUID) error {
	err := s.repo.DeletePurchase(ctx, userID, courseID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrPurchaseNotFound
	}
	if err == nil {
		s.log.Info("course removed", zap.String("user_id", userID.String()), zap.String("course_id", courseID.String()))
	}
	return err
}

func (s *AdminService) SetSubscription(ctx context.Context, userID uuid.UUID, status string, plan *string) error {
	if status == models.SubscriptionInactive {
		plan = nil
	}
	err := s.repo.SetSubscription(ctx, userID, status, plan)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func (s *AdminService) Stats(ctx context.Context) (store.Stats, error) {
	return s.repo.Stats(ctx)
}
