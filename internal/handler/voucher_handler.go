package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/sbvm/voucher-portal/internal/model"
	"github.com/sbvm/voucher-portal/internal/service"
)

// VoucherServiceInterface defines the interface for voucher ingest and lookup.
type VoucherServiceInterface interface {
	Create(ctx context.Context, req *model.CreateVoucherRequest) error
	GetByCode(ctx context.Context, code string) (*model.VoucherResponse, error)
}

// VoucherHandler handles HTTP requests for voucher ingest and status lookup.
type VoucherHandler struct {
	service   VoucherServiceInterface
	validator *validator.Validate
}

// NewVoucherHandler creates a new VoucherHandler with the given service and validator.
func NewVoucherHandler(svc VoucherServiceInterface, v *validator.Validate) *VoucherHandler {
	return &VoucherHandler{service: svc, validator: v}
}

// formatVoucherValidationError converts validator errors to stable messages.
func formatVoucherValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			tag := fe.Tag()

			if field == "Code" {
				if tag == "required" {
					return "invalid request: code is required"
				}
				if tag == "notblank" {
					return "invalid request: code cannot be whitespace only"
				}
				if tag == "max" {
					return "invalid request: code exceeds maximum length of 64"
				}
				return "invalid request: code is invalid"
			}
			if tag == "required" {
				return "invalid request: " + field + " is required"
			}
			return "invalid request: " + field + " is invalid"
		}
	}
	return "invalid request"
}

// CreateVoucher handles POST /api/vouchers requests to ingest a generated code.
func (h *VoucherHandler) CreateVoucher(c *fiber.Ctx) error {
	var req model.CreateVoucherRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatVoucherValidationError(err)})
	}

	if err := h.service.Create(c.Context(), &req); err != nil {
		if errors.Is(err, service.ErrVoucherExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "voucher already exists"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().Err(err).Str("voucher_code", req.Code).Msg("failed to create voucher")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusCreated).Send(nil)
}

// GetVoucher handles GET /api/vouchers/:code requests to retrieve voucher status.
func (h *VoucherHandler) GetVoucher(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request: code is required",
		})
	}

	voucher, err := h.service.GetByCode(c.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrVoucherNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "voucher not found",
			})
		}
		log.Error().Err(err).Str("voucher_code", code).Msg("failed to get voucher")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.JSON(voucher)
}
