package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/aleo-freelance/backend/internal/aleo"
	"github.com/aleo-freelance/backend/internal/http/dto"
	"github.com/aleo-freelance/backend/internal/repositories"
	"github.com/aleo-freelance/backend/internal/services"
)

// serviceError maps engine errors onto HTTP statuses. Finality timeouts are
// 202: the transaction may still land and the worker reconciles the mirror.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrOperationInFlight),
		errors.Is(err, services.ErrBalanceChanged),
		errors.Is(err, repositories.ErrRoleConflict),
		errors.Is(err, repositories.ErrMilestoneConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrEscrowNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrNotParticipant):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrNoOwnershipRecord),
		errors.Is(err, services.ErrOwnershipRecordNotFound),
		errors.Is(err, repositories.ErrInsufficientBalance),
		errors.Is(err, aleo.ErrInvalidAmount):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, aleo.ErrFinalityTimeout):
		return c.Status(fiber.StatusAccepted).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, aleo.ErrTransactionRejected):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: err.Error()})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
}
