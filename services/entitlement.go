package services

import (
	"github.com/anjiri1684/course_academy/models"
	"github.com/google/uuid"
)

// Catalog looks courses up by id. Implementations must not block.
type Catalog interface {
	Course(id uuid.UUID) (*models.Course, bool)
}

// CourseIndex is an in-memory Catalog built from a course listing.
type CourseIndex map[uuid.UUID]*models.Course

func NewCourseIndex(courses []models.Course) CourseIndex {
	idx := make(CourseIndex, len(courses))
	for i := range courses {
		idx[courses[i].ID] = &courses[i]
	}
	return idx
}

func (idx CourseIndex) Course(id uuid.UUID) (*models.Course, bool) {
	c, ok := idx[id]
	return c, ok
}

// CanAccess decides whether user may play course. user may be nil for
// anonymous callers. purchased holds the course ids the user owns directly;
// bundle members are resolved through catalog.
func CanAccess(user *models.User, course *models.Course, purchased []uuid.UUID, catalog Catalog) bool {
	if course == nil {
		return false
	}
	if course.IsFree {
		return true
	}
	if user == nil {
		return false
	}
	if user.IsAdmin() || user.HasActiveSubscription() {
		return true
	}

	for _, id := range purchased {
		if id == course.ID {
			return true
		}
	}

	if course.IsBundle() || catalog == nil {
		return false
	}
	for _, id := range purchased {
		owned, ok := catalog.Course(id)
		if !ok || !owned.IsBundle() {
			continue
		}
		if owned.Includes(course.ID) {
			return true
		}
	}
	return false
}
