package handlers

import (
	"errors"
	"strconv"

	"coursewallet/internal/models"
	"coursewallet/internal/services/enrollment"
	"coursewallet/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type EnrollmentHandler struct {
	enrollmentService enrollment.Service
}

func NewEnrollmentHandler(enrollmentService enrollment.Service) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentService: enrollmentService}
}

// Enroll charges the course cost and returns the enrollment receipt.
func (h *EnrollmentHandler) Enroll(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	courseID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || courseID == 0 {
		return utils.BadRequest(c, "invalid course id")
	}

	receipt, err := h.enrollmentService.Enroll(c.Context(), models.ActorFromClaims(claims), uint(courseID))
	if err != nil {
		switch {
		case errors.Is(err, enrollment.ErrAccessDenied):
			return utils.Forbidden(c, "only students can enroll in courses")
		case errors.Is(err, enrollment.ErrCourseNotFound):
			return utils.NotFound(c, "course not found")
		case errors.Is(err, enrollment.ErrAlreadyEnrolled):
			return utils.Conflict(c, "already enrolled in this course")
		case errors.Is(err, enrollment.ErrInsufficientFunds):
			return utils.UnprocessableEntity(c, "insufficient funds")
		default:
			return utils.InternalError(c, "enrollment failed")
		}
	}

	return utils.Success(c, fiber.Map{
		"message": "Enrollment successful",
		"receipt": receipt,
	})
}
