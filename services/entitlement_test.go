package services

import (
	"testing"

	"github.com/anjiri1684/course_academy/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func TestCanAccess(t *testing.T) {
	free := &models.Course{ID: uuid.New(), IsFree: true, CourseType: models.CourseTypeSingle}
	paidA := &models.Course{ID: uuid.New(), CourseType: models.CourseTypeSingle}
	paidB := &models.Course{ID: uuid.New(), CourseType: models.CourseTypeSingle}
	bundle := &models.Course{
		ID:                uuid.New(),
		CourseType:        models.CourseTypeBundle,
		IncludedCourseIDs: pq.StringArray{paidA.ID.String()},
	}
	catalog := NewCourseIndex([]models.Course{*free, *paidA, *paidB, *bundle})

	member := &models.User{ID: uuid.New(), Role: models.RoleMember, SubscriptionStatus: models.SubscriptionInactive}
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	subscriber := &models.User{ID: uuid.New(), Role: models.RoleMember, SubscriptionStatus: models.SubscriptionActive}

	tests := []struct {
		name      string
		user      *models.User
		course    *models.Course
		purchased []uuid.UUID
		want      bool
	}{
		{"free course for anonymous visitor", nil, free, nil, true},
		{"paid course for anonymous visitor", nil, paidA, nil, false},
		{"admin sees everything", admin, paidA, nil, true},
		{"active subscription unlocks everything", subscriber, paidB, nil, true},
		{"member without purchase", member, paidA, nil, false},
		{"direct purchase", member, paidA, []uuid.UUID{paidA.ID}, true},
		{"purchase of another course", member, paidA, []uuid.UUID{paidB.ID}, false},
		{"bundle unlocks its member", member, paidA, []uuid.UUID{bundle.ID}, true},
		{"bundle does not unlock non-members", member, paidB, []uuid.UUID{bundle.ID}, false},
		{"bundle purchase unlocks the bundle itself", member, bundle, []uuid.UUID{bundle.ID}, true},
		{"member purchase does not unlock the bundle", member, bundle, []uuid.UUID{paidA.ID}, false},
		{"dangling purchase id degrades to no access", member, paidA, []uuid.UUID{uuid.New()}, false},
		{"nil course", member, nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccess(tt.user, tt.course, tt.purchased, catalog); got != tt.want {
				t.Fatalf("CanAccess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanAccess_NilCatalogOnlyHonoursDirectPurchases(t *testing.T) {
	course := &models.Course{ID: uuid.New(), CourseType: models.CourseTypeSingle}
	user := &models.User{ID: uuid.New(), Role: models.RoleMember}

	if CanAccess(user, course, []uuid.UUID{uuid.New()}, nil) {
		t.Fatal("expected no access without a catalog to resolve bundles")
	}
	if !CanAccess(user, course, []uuid.UUID{course.ID}, nil) {
		t.Fatal("expected direct purchase to grant access")
	}
}
