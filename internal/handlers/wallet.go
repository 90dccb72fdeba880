package handlers

import (
	"errors"
	"strconv"

	"coursewallet/internal/models"
	"coursewallet/internal/services/ledger"
	"coursewallet/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	ledgerService ledger.Service
}

func NewWalletHandler(ledgerService ledger.Service) *WalletHandler {
	return &WalletHandler{ledgerService: ledgerService}
}

// extractUserClaims is a helper function to reduce duplication
func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

// GetWallet returns the caller's balance, creating it on first access.
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	balance, err := h.ledgerService.GetOrCreateBalance(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "Failed to get balance")
	}

	return utils.Success(c, fiber.Map{
		"balance": balance,
	})
}

// GetTransactionHistory returns the caller's ledger entries, newest first.
func (h *WalletHandler) GetTransactionHistory(c *fiber.Ctx) error {
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

	balance, err := h.ledgerService.GetBalanceByOwner(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, ledger.ErrBalanceNotFound) {
			return utils.Success(c, fiber.Map{"transactions": []models.Transaction{}})
		}
		return utils.InternalError(c, "Failed to get balance")
	}

	transactions, err := h.ledgerService.GetHistory(c.Context(), balance.ID, limit, offset)
	if err != nil {
		return utils.InternalError(c, "Failed to get transaction history")
	}

	return utils.Success(c, fiber.Map{
		"transactions": transactions,
		"limit":        limit,
		"offset":       offset,
	})
}

// CreateDeposit credits a user's balance. Accountant-only.
func (h *WalletHandler) CreateDeposit(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		UserID      uint            `json:"user_id"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if input.UserID == 0 {
		return utils.BadRequest(c, "user_id is required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return utils.BadRequest(c, "Amount must be greater than 0")
	}

	txn, err := h.ledgerService.CreateDeposit(
		c.Context(),
		models.ActorFromClaims(claims),
		input.UserID,
		input.Amount,
		input.Description,
	)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrAccessDenied):
			return utils.Forbidden(c, "only accountants can create deposits")
		case errors.Is(err, ledger.ErrBalanceNotFound):
			return utils.NotFound(c, "user does not have a wallet balance")
		case errors.Is(err, ledger.ErrInvalidAmount):
			return utils.BadRequest(c, "Amount must be greater than 0")
		default:
			return utils.InternalError(c, "failed to create deposit")
		}
	}

	return utils.Success(c, fiber.Map{
		"message":     "Deposit created",
		"transaction": txn,
	})
}
