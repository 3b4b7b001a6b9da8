package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/sbvm/voucher-portal/internal/model"
	"github.com/sbvm/voucher-portal/internal/service"
)

// RedeemServiceInterface defines the interface for the redemption engine.
type RedeemServiceInterface interface {
	Redeem(ctx context.Context, code string, identity model.Identity) (*model.RedeemResult, error)
}

// RedeemHandler handles HTTP requests for voucher redemption.
type RedeemHandler struct {
	service   RedeemServiceInterface
	validator *validator.Validate
}

// NewRedeemHandler creates a new RedeemHandler with the given service and validator.
func NewRedeemHandler(svc RedeemServiceInterface, v *validator.Validate) *RedeemHandler {
	return &RedeemHandler{service: svc, validator: v}
}

// formatRedeemValidationError converts validator errors to stable messages for redemption.
func formatRedeemValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			tag := fe.Tag()

			switch field {
			case "Voucher":
				if tag == "required" || tag == "notblank" {
					return "invalid request: voucher is required"
				}
				if tag == "max" {
					return "invalid request: voucher exceeds maximum length of 64"
				}
				return "invalid request: voucher is invalid"
			case "Email":
				if tag == "email" {
					return "invalid request: email is not a valid address"
				}
				if tag == "max" {
					return "invalid request: email exceeds maximum length of 255"
				}
				return "invalid request: email is invalid"
			default:
				if tag == "required" {
					return "invalid request: " + field + " is required"
				}
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}

// Redeem handles POST /api/redeem requests.
// Success responses carry a message the presentation layer inspects: a bonus
// grant message contains "extra N minutes" and keeps the user on the form,
// anything else triggers the success redirect.
func (h *RedeemHandler) Redeem(c *fiber.Ctx) error {
	var req model.RedeemRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatRedeemValidationError(err)})
	}

	identity := model.Identity{Email: req.Email, IP: c.IP()}

	result, err := h.service.Redeem(c.Context(), req.Voucher, identity)
	if err != nil {
		if errors.Is(err, service.ErrVoucherNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "voucher not found"})
		}
		if errors.Is(err, service.ErrAlreadyUsed) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "voucher already redeemed"})
		}
		if errors.Is(err, service.ErrIdentityMismatch) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "voucher is bound to another user"})
		}
		var limited *service.RateLimitedError
		if errors.As(err, &limited) {
			retryAfter := int(limited.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many attempts, please retry later"})
		}
		if errors.Is(err, service.ErrContention) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "voucher is busy, please retry"})
		}
		if errors.Is(err, service.ErrGrantUnavailable) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "access grant unavailable"})
		}
		if errors.Is(err, service.ErrTimeout) {
			return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{"error": "redemption timed out, check voucher status before retrying"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("voucher_code", req.Voucher).
			Str("identity", identity.Key()).
			Msg("failed to redeem voucher")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("voucher_code", req.Voucher).
		Str("identity", identity.Key()).
		Bool("bonus", result.Bonus).
		Int("duration_seconds", result.DurationSeconds).
		Msg("voucher redeemed")

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": result.Message})
}
