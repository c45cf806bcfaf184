package handlers

import (
	"github.com/anjiri1684/course_academy/services"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListCourses(c *fiber.Ctx) error {
	courses, err := h.catalog.ListCourses(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(courses)
}

// GetCourse works for anonymous visitors too; can_access is computed for
// whoever is calling.
func (h *Handler) GetCourse(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	user, err := h.currentUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	detail, err := h.catalog.GetCourse(c.UserContext(), user, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(detail)
}

func (h *Handler) GetCourseLessons(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	user, err := h.currentUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	lessons, err := h.catalog.CourseLessons(c.UserContext(), user, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(lessons)
}

func (h *Handler) GetUserCourses(c *fiber.Ctx) error {
	user, err := h.requireUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	courses, err := h.catalog.UserCourses(c.UserContext(), user.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(courses)
}

func (h *Handler) GetUserLessons(c *fiber.Ctx) error {
	user, err := h.requireUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	lessons, err := h.catalog.UserLessons(c.UserContext(), user.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(lessons)
}

func (h *Handler) CreateCourse(c *fiber.Ctx) error {
	var req services.CourseInput
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	course, err := h.catalog.CreateCourse(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(course)
}

func (h *Handler) UpdateCourse(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req services.CourseInput
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	course, err := h.catalog.UpdateCourse(c.UserContext(), id, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(course)
}

func (h *Handler) DeleteCourse(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.catalog.DeleteCourse(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Course deleted"})
}

func (h *Handler) CreateLesson(c *fiber.Ctx) error {
	courseID, err := uuidParam(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req services.LessonInput
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	lesson, err := h.catalog.CreateLesson(c.UserContext(), courseID, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(lesson)
}

func (h *Handler) UpdateLesson(c *fiber.Ctx) error {
	id, err := uuidParam(c, "lessonId")
	if err != nil {
		return h.fail(c, err)
	}
	var req services.LessonInput
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	lesson, err := h.catalog.UpdateLesson(c.UserContext(), id, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(lesson)
}

func (h *Handler) DeleteLesson(c *fiber.Ctx) error {
	id, err := uuidParam(c, "lessonId")
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.catalog.DeleteLesson(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Lesson deleted"})
}
