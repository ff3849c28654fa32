package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aleo-freelance/backend/internal/aleo"
	"github.com/aleo-freelance/backend/internal/http/dto"
	"github.com/aleo-freelance/backend/internal/middleware"
	"github.com/aleo-freelance/backend/internal/models"
	"github.com/aleo-freelance/backend/internal/repositories"
	"github.com/aleo-freelance/backend/internal/services"
)

type EscrowHandler struct {
	escrowSvc     *services.EscrowService
	escrowRepo    *repositories.EscrowRepo
	txRepo        *repositories.TransactionRepo
	milestoneRepo *repositories.MilestoneRepo
	log           *zap.Logger
}

func NewEscrowHandler(
	escrowSvc *services.EscrowService,
	escrowRepo *repositories.EscrowRepo,
	txRepo *repositories.TransactionRepo,
	milestoneRepo *repositories.MilestoneRepo,
	log *zap.Logger,
) *EscrowHandler {
	return &EscrowHandler{
		escrowSvc:     escrowSvc,
		escrowRepo:    escrowRepo,
		txRepo:        txRepo,
		milestoneRepo: milestoneRepo,
		log:           log,
	}
}

func (h *EscrowHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	address := middleware.GetAddress(c)

	switch req.Role {
	case models.RoleClient:
		user, res, err := h.escrowSvc.RegisterClient(c.Context(), address)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{"user": user, "operation": res}})
	case models.RoleFreelancer:
		user, res, err := h.escrowSvc.RegisterFreelancer(c.Context(), address, req.Skills)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{"user": user, "operation": res}})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "role must be client or freelancer"})
	}
}

func (h *EscrowHandler) Deposit(c *fiber.Ctx) error {
	var req dto.DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	amount, err := aleo.ParseCredits(req.Amount)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	res, err := h.escrowSvc.Deposit(c.Context(), middleware.GetAddress(c), amount)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}

func (h *EscrowHandler) Withdraw(c *fiber.Ctx) error {
	var req dto.WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	amount, err := aleo.ParseCredits(req.Amount)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	res, err := h.escrowSvc.Withdraw(c.Context(), middleware.GetAddress(c), amount)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}

func (h *EscrowHandler) CreateEscrow(c *fiber.Ctx) error {
	var req dto.CreateEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if !aleo.IsValidAddress(req.FreelancerAddress) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid freelancer address"})
	}
	amount, err := aleo.ParseCredits(req.Amount)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	escrow, res, err := h.escrowSvc.CreateEscrow(c.Context(),
		middleware.GetAddress(c), req.FreelancerAddress, amount, req.Description)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{
		OK:   true,
		Data: fiber.Map{"escrow": escrow, "operation": res},
	})
}

func (h *EscrowHandler) ListEscrows(c *fiber.Ctx) error {
	filter := repositories.EscrowFilter{
		Address: middleware.GetAddress(c),
		Limit:   c.QueryInt("limit", 20),
		Offset:  c.QueryInt("offset", 0),
	}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}

	escrows, err := h.escrowRepo.List(c.Context(), filter)
	if err != nil {
		h.log.Error("list escrows", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrows})
}

func (h *EscrowHandler) GetEscrow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	escrow, err := h.escrowRepo.GetByID(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "escrow not found"})
	}
	addr := middleware.GetAddress(c)
	if escrow.ClientAddress != addr && escrow.FreelancerAddress != addr {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "not a participant"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

func (h *EscrowHandler) SubmitMilestone(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	res, err := h.escrowSvc.SubmitMilestone(c.Context(), middleware.GetAddress(c), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}

func (h *EscrowHandler) ApproveMilestone(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	res, err := h.escrowSvc.ApproveMilestone(c.Context(), middleware.GetAddress(c), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}

func (h *EscrowHandler) ListTransactions(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}
	if err := h.requireParticipant(c, id); err != nil {
		return err
	}

	txs, err := h.txRepo.ListByEscrow(c.Context(), id, c.QueryInt("limit", 50))
	if err != nil {
		h.log.Error("list transactions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: txs})
}

func (h *EscrowHandler) ListMilestones(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}
	if err := h.requireParticipant(c, id); err != nil {
		return err
	}

	subs, err := h.milestoneRepo.ListByEscrow(c.Context(), id)
	if err != nil {
		h.log.Error("list milestone submissions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: subs})
}

func (h *EscrowHandler) requireParticipant(c *fiber.Ctx, id uuid.UUID) error {
	escrow, err := h.escrowRepo.GetByID(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "escrow not found"})
	}
	addr := middleware.GetAddress(c)
	if escrow.ClientAddress != addr && escrow.FreelancerAddress != addr {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "not a participant"})
	}
	return nil
}
