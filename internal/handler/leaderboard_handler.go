package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/sbvm/voucher-portal/internal/model"
)

// LeaderboardServiceInterface defines the interface for the ranked snapshot.
type LeaderboardServiceInterface interface {
	Snapshot(ctx context.Context) ([]model.LeaderboardEntry, error)
}

// LeaderboardHandler handles HTTP requests for the redemption leaderboard.
type LeaderboardHandler struct {
	service LeaderboardServiceInterface
}

// NewLeaderboardHandler creates a new LeaderboardHandler with the given service.
func NewLeaderboardHandler(svc LeaderboardServiceInterface) *LeaderboardHandler {
	return &LeaderboardHandler{service: svc}
}

// GetLeaderboard handles GET /api/leaderboard requests.
// Returns {"leaderboard": []} when nothing was redeemed yet.
func (h *LeaderboardHandler) GetLeaderboard(c *fiber.Ctx) error {
	entries, err := h.service.Snapshot(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to build leaderboard snapshot")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.JSON(fiber.Map{"leaderboard": entries})
}
