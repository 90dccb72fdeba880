package handlers

import (
	"errors"
	"strconv"

	"coursewallet/internal/models"
	"coursewallet/internal/services/bonus"
	"coursewallet/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type BonusHandler struct {
	bonusService bonus.Service
}

func NewBonusHandler(bonusService bonus.Service) *BonusHandler {
	return &BonusHandler{bonusService: bonusService}
}

// Compute derives the bonus amount for one teacher and month.
func (h *BonusHandler) Compute(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		TeacherID uint `json:"teacher_id"`
		Year      int  `json:"year"`
		Month     int  `json:"month"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if input.TeacherID == 0 {
		return utils.BadRequest(c, "teacher_id is required")
	}

	record, err := h.bonusService.Compute(c.Context(), models.ActorFromClaims(claims), input.TeacherID, input.Year, input.Month)
	if err != nil {
		return h.mapError(c, err, "failed to compute bonus")
	}

	return utils.Success(c, fiber.Map{
		"message": "Bonus calculated",
		"bonus":   record,
	})
}

// Send pays a calculated bonus out of the master balance.
func (h *BonusHandler) Send(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	bonusID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || bonusID == 0 {
		return utils.BadRequest(c, "invalid bonus id")
	}

	txn, err := h.bonusService.Send(c.Context(), models.ActorFromClaims(claims), uint(bonusID))
	if err != nil {
		return h.mapError(c, err, "failed to send bonus")
	}

	return utils.Success(c, fiber.Map{
		"message":     "Bonus sent",
		"transaction": txn,
	})
}

// ComputeAll creates missing draft bonus records for every teacher.
func (h *BonusHandler) ComputeAll(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	created, err := h.bonusService.ComputeAll(c.Context(), models.ActorFromClaims(claims), input.Year, input.Month)
	if err != nil {
		return h.mapError(c, err, "failed to create bonus records")
	}

	return utils.Success(c, fiber.Map{
		"message": "Bonus records created",
		"created": created,
	})
}

// List returns bonus records, newest period first.
func (h *BonusHandler) List(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	bonuses, err := h.bonusService.List(c.Context(), models.ActorFromClaims(claims), limit, offset)
	if err != nil {
		return h.mapError(c, err, "failed to list bonuses")
	}

	return utils.Success(c, fiber.Map{
		"bonuses": bonuses,
		"limit":   limit,
		"offset":  offset,
	})
}

// Get returns a single bonus record.
func (h *BonusHandler) Get(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	bonusID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || bonusID == 0 {
		return utils.BadRequest(c, "invalid bonus id")
	}

	record, err := h.bonusService.Get(c.Context(), models.ActorFromClaims(claims), uint(bonusID))
	if err != nil {
		return h.mapError(c, err, "failed to fetch bonus")
	}

	return utils.Success(c, fiber.Map{"bonus": record})
}

func (h *BonusHandler) mapError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, bonus.ErrAccessDenied):
		return utils.Forbidden(c, "only accountants can manage bonuses")
	case errors.Is(err, bonus.ErrBonusNotFound):
		return utils.NotFound(c, "bonus not found")
	case errors.Is(err, bonus.ErrAlreadySent):
		return utils.Conflict(c, "bonus has already been sent")
	case errors.Is(err, bonus.ErrNonPositiveAmount):
		return utils.UnprocessableEntity(c, "bonus amount must be greater than zero")
	case errors.Is(err, bonus.ErrInsufficientMasterFunds):
		return utils.UnprocessableEntity(c, "insufficient funds in master balance")
	case errors.Is(err, bonus.ErrInvalidPeriod):
		return utils.BadRequest(c, "invalid year or month")
	default:
		return utils.InternalError(c, fallback)
	}
}
