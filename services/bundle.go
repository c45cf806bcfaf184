package services

import (
	"fmt"

	"github.com/google/uuid"
)

// ExpandBundle returns the course id together with every course it includes.
// It is used for listings only; purchases are never written per member.
func ExpandBundle(courseID uuid.UUID, catalog Catalog) (map[uuid.UUID]struct{}, error) {
	course, ok := catalog.Course(courseID)
	if !ok {
		return nil, ErrCourseNotFound
	}

	set := map[uuid.UUID]struct{}{courseID: {}}
	if !course.IsBundle() {
		return set, nil
	}
	if err := ValidateBundleMembers(course.IncludedCourseIDs, catalog); err != nil {
		return nil, err
	}
	for _, id := range course.IncludedIDs() {
		set[id] = struct{}{}
	}
	return set, nil
}

// ValidateBundleMembers checks that every member id is an existing single course.
func ValidateBundleMembers(members []string, catalog Catalog) error {
	if len(members) == 0 {
		return fmt.Errorf("%w: bundle has no courses", ErrInvalidBundle)
	}
	for _, raw := range members {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("%w: %q is not a course id", ErrInvalidBundle, raw)
		}
		member, ok := catalog.Course(id)
		if !ok {
			return fmt.Errorf("%w: course %s does not exist", ErrInvalidBundle, id)
		}
		if member.IsBundle() {
			return fmt.Errorf("%w: course %s is itself a bundle", ErrInvalidBundle, id)
		}
	}
	return nil
}

// AccessibleCourseIDs expands every purchase into the set of courses it unlocks.
// Dangling or malformed bundles contribute only their own id.
func AccessibleCourseIDs(purchased []uuid.UUID, catalog Catalog) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(purchased))
	for _, id := range purchased {
		expanded, err := ExpandBundle(id, catalog)
		if err != nil {
			if _, ok := catalog.Course(id); ok {
				out[id] = struct{}{}
			}
			continue
		}
		for member := range expanded {
			out[member] = struct{}{}
		}
	}
	return out
}
