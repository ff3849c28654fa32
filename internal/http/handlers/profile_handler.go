package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/aleo-freelance/backend/internal/aleo"
	"github.com/aleo-freelance/backend/internal/http/dto"
	"github.com/aleo-freelance/backend/internal/middleware"
	"github.com/aleo-freelance/backend/internal/services"
)

type ProfileHandler struct {
	profileSvc *services.ProfileService
	log        *zap.Logger
}

func NewProfileHandler(profileSvc *services.ProfileService, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc, log: log}
}

func (h *ProfileHandler) GetMe(c *fiber.Ctx) error {
	user, err := h.profileSvc.GetProfile(c.Context(), middleware.GetAddress(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "profile not found, register first"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: user})
}

func (h *ProfileHandler) GetBalance(c *fiber.Ctx) error {
	user, err := h.profileSvc.GetProfile(c.Context(), middleware.GetAddress(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "profile not found, register first"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.BalanceResponse{
		Address:       user.Address,
		EscrowBalance: aleo.FormatCredits(user.EscrowBalance),
		EarnedBalance: aleo.FormatCredits(user.EarnedBalance),
	}})
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	address := c.Params("address")
	if !aleo.IsValidAddress(address) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid aleo address"})
	}
	user, err := h.profileSvc.GetProfile(c.Context(), address)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "profile not found"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: user})
}

// ListFreelancers is the public directory, ordered by rating.
func (h *ProfileHandler) ListFreelancers(c *fiber.Ctx) error {
	users, err := h.profileSvc.ListFreelancers(c.Context(),
		c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		h.log.Error("list freelancers", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: users})
}

func (h *ProfileHandler) AddSkill(c *fiber.Ctx) error {
	var req dto.AddSkillRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	user, err := h.profileSvc.AddSkill(c.Context(), middleware.GetAddress(c), req.Skill)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: user})
}

func (h *ProfileHandler) RemoveSkill(c *fiber.Ctx) error {
	skill := c.Params("skill")
	user, err := h.profileSvc.RemoveSkill(c.Context(), middleware.GetAddress(c), skill)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: user})
}
