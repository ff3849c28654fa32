package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aleo-freelance/backend/internal/http/dto"
	"github.com/aleo-freelance/backend/internal/middleware"
	"github.com/aleo-freelance/backend/internal/services"
)

type NotificationHandler struct {
	notifSvc *services.NotificationService
	log      *zap.Logger
}

func NewNotificationHandler(notifSvc *services.NotificationService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifSvc: notifSvc, log: log}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	notifications, err := h.notifSvc.List(c.Context(), middleware.GetAddress(c),
		c.QueryBool("unread", false), c.QueryInt("limit", 50))
	if err != nil {
		h.log.Error("list notifications", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: notifications})
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	count, err := h.notifSvc.UnreadCount(c.Context(), middleware.GetAddress(c))
	if err != nil {
		h.log.Error("count unread notifications", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.UnreadCountResponse{Unread: count}})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid notification id"})
	}
	if err := h.notifSvc.MarkRead(c.Context(), id, middleware.GetAddress(c)); err != nil {
		h.log.Error("mark notification read", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	if err := h.notifSvc.MarkAllRead(c.Context(), middleware.GetAddress(c)); err != nil {
		h.log.Error("mark all notifications read", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
