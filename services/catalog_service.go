package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anjiri1684/course_academy/models"
	"github.com/anjiri1684/course_academy/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CatalogService struct {
	repo store.Repository
	log  *zap.Logger
}

func NewCatalogService(repo store.Repository, log *zap.Logger) *CatalogService {
	return &CatalogService{repo: repo, log: log}
}

// CourseDetail is a course as seen by one caller.
type CourseDetail struct {
	models.Course
	CanAccess bool `json:"can_access"`
}

type CourseLessons struct {
	Course  models.Course   `json:"course"`
	Lessons []models.Lesson `json:"lessons"`
}

// CourseInput carries course fields from admin requests. Nil fields are left
// unchanged on update.
type CourseInput struct {
	Title           *string          `json:"title"`
	Description     *string          `json:"description"`
	Thumbnail       *string          `json:"thumbnail"`
	Price           *decimal.Decimal `json:"price"`
	IsFree          *bool            `json:"is_free"`
	CourseType      *string          `json:"course_type" validate:"omitempty,oneof=single bundle"`
	IncludedCourses *[]string        `json:"included_courses"`
	Order           *int             `json:"order"`
}

func (in CourseInput) apply(c *models.Course) {
	if in.Title != nil {
		c.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Thumbnail != nil {
		c.Thumbnail = *in.Thumbnail
	}
	if in.Price != nil {
		c.Price = *in.Price
	}
	if in.IsFree != nil {
		c.IsFree = *in.IsFree
	}
	if in.CourseType != nil {
		c.CourseType = *in.CourseType
	}
	if in.IncludedCourses != nil {
		c.IncludedCourseIDs = append([]string(nil), (*in.IncludedCourses)...)
	}
	if in.Order != nil {
		c.Order = *in.Order
	}
}

type LessonInput struct {
	Title    string `json:"title" validate:"required"`
	VideoURL string `json:"video_url" validate:"required,url"`
	Order    int    `json:"order"`
}

func (s *CatalogService) catalog(ctx context.Context) ([]models.Course, CourseIndex, error) {
	courses, err := s.repo.ListCourses(ctx)
	if err != nil {
		return nil, nil, err
	}
	return courses, NewCourseIndex(courses), nil
}

func (s *CatalogService) ListCourses(ctx context.Context) ([]models.Course, error) {
	return s.repo.ListCourses(ctx)
}

func (s *CatalogService) findCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	course, err := s.repo.FindCourseByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCourseNotFound
	}
	return course, err
}

func (s *CatalogService) canAccess(ctx context.Context, user *models.User, course *models.Course) (bool, error) {
	if course.IsFree || user == nil || user.IsAdmin() || user.HasActiveSubscription() {
		return CanAccess(user, course, nil, nil), nil
	}
	purchased, err := s.repo.ListPurchasedCourseIDs(ctx, user.ID)
	if err != nil {
		return false, err
	}
	_, index, err := s.catalog(ctx)
	if err != nil {
		return false, err
	}
	return CanAccess(user, course, purchased, index), nil
}

// GetCourse returns the course with can_access computed for user, which may be nil.
func (s *CatalogService) GetCourse(ctx context.Context, user *models.User, id uuid.UUID) (*CourseDetail, error) {
	course, err := s.findCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed, err := s.canAccess(ctx, user, course)
	if err != nil {
		return nil, err
	}
	return &CourseDetail{Course: *course, CanAccess: allowed}, nil
}

func (s *CatalogService) CourseLessons(ctx context.Context, user *models.User, id uuid.UUID) ([]models.Lesson, error) {
	course, err := s.findCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed, err := s.canAccess(ctx, user, course)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrAccessDenied
	}
	return s.repo.ListLessons(ctx, id)
}

// UserCourses lists the courses a user owns, bundles expanded, in catalog order.
func (s *CatalogService) UserCourses(ctx context.Context, userID uuid.UUID) ([]models.Course, error) {
	purchased, err := s.repo.ListPurchasedCourseIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	courses, index, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	accessible := AccessibleCourseIDs(purchased, index)

	out := make([]models.Course, 0, len(accessible))
	for _, c := range courses {
		if _, ok := accessible[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// PurchasedCourses lists only the courses the user holds a purchase row for.
func (s *CatalogService) PurchasedCourses(ctx context.Context, userID uuid.UUID) ([]models.Course, error) {
	purchased, err := s.repo.ListPurchasedCourseIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	_, index, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Course, 0, len(purchased))
	for _, id := range purchased {
		if c, ok := index.Course(id); ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

// UserLessons groups the lessons of every owned course by course.
func (s *CatalogService) UserLessons(ctx context.Context, userID uuid.UUID) ([]CourseLessons, error) {
	courses, err := s.UserCourses(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]CourseLessons, 0, len(courses))
	for _, c := range courses {
		lessons, err := s.repo.ListLessons(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if len(lessons) == 0 {
			continue
		}
		out = append(out, CourseLessons{Course: c, Lessons: lessons})
	}
	return out, nil
}

func (s *CatalogService) validateCourse(course *models.Course, index CourseIndex) error {
	if course.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidCourse)
	}
	if course.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidCourse)
	}
	switch course.CourseType {
	case models.CourseTypeSingle:
		course.IncludedCourseIDs = nil
		return nil
	case models.CourseTypeBundle:
	default:
		return fmt.Errorf("%w: unknown course type %q", ErrInvalidCourse, course.CourseType)
	}

	for _, raw := range course.IncludedCourseIDs {
		if raw == course.ID.String() {
			return fmt.Errorf("%w: a bundle cannot include itself", ErrInvalidBundle)
		}
	}
	if err := ValidateBundleMembers(course.IncludedCourseIDs, index); err != nil {
		return err
	}
	for _, other := range index {
		if other.ID != course.ID && other.IsBundle() && other.Includes(course.ID) {
			return fmt.Errorf("%w: course is included in bundle %s", ErrInvalidBundle, other.ID)
		}
	}
	return nil
}

func (s *CatalogService) CreateCourse(ctx context.Context, in CourseInput) (*models.Course, error) {
	_, index, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	course := &models.Course{CourseType: models.CourseTypeSingle}
	in.apply(course)
	if err := s.validateCourse(course, index); err != nil {
		return nil, err
	}
	if err := s.repo.CreateCourse(ctx, course); err != nil {
		return nil, err
	}
	s.log.Info("course created", zap.String("course_id", course.ID.String()), zap.String("type", course.CourseType))
	return course, nil
}

func (s *CatalogService) UpdateCourse(ctx context.Context, id uuid.UUID, in CourseInput) (*models.Course, error) {
	course, err := s.findCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	_, index, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	in.apply(course)
	if err := s.validateCourse(course, index); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCourse(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// DeleteCourse removes a course and its lessons. Courses still included in a
// bundle must be removed from it first.
func (s *CatalogService) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	courses, _, err := s.catalog(ctx)
	if err != nil {
		return err
	}
	for _, c := range courses {
		if c.IsBundle() && c.Includes(id) {
			return fmt.Errorf("%w: course is included in bundle %q", ErrInvalidBundle, c.Title)
		}
	}
	err = s.repo.DeleteCourse(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrCourseNotFound
	}
	return err
}

func (s *CatalogService) CreateLesson(ctx context.Context, courseID uuid.UUID, in LessonInput) (*models.Lesson, error) {
	if _, err := s.findCourse(ctx, courseID); err != nil {
		return nil, err
	}
	lesson := &models.Lesson{CourseID: courseID, Title: in.Title, VideoURL: in.VideoURL, Order: in.Order}
	if err := s.repo.CreateLesson(ctx, lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *CatalogService) UpdateLesson(ctx context.Context, id uuid.UUID, in LessonInput) (*models.Lesson, error) {
	lesson := &models.Lesson{ID: id, Title: in.Title, VideoURL: in.VideoURL, Order: in.Order}
	err := s.repo.UpdateLesson(ctx, lesson)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrLessonNotFound
	}
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *CatalogService) DeleteLesson(ctx context.Context, id uuid.UUID) error {
	err := s.repo.DeleteLesson(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrLessonNotFound
	}
	return err
}

type ShopProductInput struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image"`
	InStock     bool            `json:"in_stock"`
	Order       int             `json:"order"`
}

func (s *CatalogService) ListShopProducts(ctx context.Context) ([]models.ShopProduct, error) {
	return s.repo.ListShopProducts(ctx)
}

func (s *CatalogService) GetShopProduct(ctx context.Context, id uuid.UUID) (*models.ShopProduct, error) {
	product, err := s.repo.FindShopProductByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return product, err
}

func (s *CatalogService) SaveShopProduct(ctx context.Context, id *uuid.UUID, in ShopProductInput) (*models.ShopProduct, error) {
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidCourse)
	}
	product := &models.ShopProduct{
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    in.ImageURL,
		InStock:     in.InStock,
		Order:       in.Order,
	}
	if id == nil {
		return product, s.repo.CreateShopProduct(ctx, product)
	}

	existing, err := s.GetShopProduct(ctx, *id)
	if err != nil {
		return nil, err
	}
	product.ID = existing.ID
	product.CreatedAt = existing.CreatedAt
	return product, s.repo.UpdateShopProduct(ctx, product)
}

func (s *CatalogService) DeleteShopProduct(ctx context.Context, id uuid.UUID) error {
	err := s.repo.DeleteShopProduct(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrProductNotFound
	}
	return err
}
