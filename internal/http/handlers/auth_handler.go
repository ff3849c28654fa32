package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/aleo-freelance/backend/internal/aleo"
	"github.com/aleo-freelance/backend/internal/auth"
	"github.com/aleo-freelance/backend/internal/config"
	"github.com/aleo-freelance/backend/internal/http/dto"
	"github.com/aleo-freelance/backend/internal/repositories"
)

type AuthHandler struct {
	userRepo *repositories.UserRepo
	cfg      *config.Config
	log      *zap.Logger
}

func NewAuthHandler(userRepo *repositories.UserRepo, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{userRepo: userRepo, cfg: cfg, log: log}
}

// WalletAuth issues a session token for a wallet address. Ownership of the
// address is proven by the wallet at the bridge layer; the API trusts the
// shape-validated address and scopes everything it serves by it.
func (h *AuthHandler) WalletAuth(c *fiber.Ctx) error {
	var req dto.AuthWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if !aleo.IsValidAddress(req.Address) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid aleo address"})
	}

	// The profile may not exist yet; registration happens after auth.
	role := ""
	var user any
	if u, err := h.userRepo.GetByAddress(c.Context(), req.Address); err == nil {
		role = u.Role
		user = u
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, req.Address, role, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("generate jwt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	return c.JSON(dto.AuthResponse{Token: token, User: user})
}
