package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/clickwise/commission-svc/internal/models"
)

// CommissionLister reads a workspace's commissions newest-first.
type CommissionLister interface {
	List(ctx context.Context, workspaceID string, limit, offset int) ([]models.Commission, error)
}

// CommissionsHandler serves the commission listing API
type CommissionsHandler struct {
	Store  CommissionLister
	Logger *zap.Logger
}

func NewCommissionsHandler(store CommissionLister, logger *zap.Logger) *CommissionsHandler {
	return &CommissionsHandler{
		Store:  store,
		Logger: logger,
	}
}

// CommissionsResponse represents the response structure for GET /commissions
type CommissionsResponse struct {
	Commissions []CommissionDTO `json:"commissions"`
	HasMore     bool            `json:"has_more"`
}

// CommissionDTO represents a single commission in the response
type CommissionDTO struct {
	ID             string `json:"id"`
	PartnerID      string `json:"partner_id"`
	SaleID         string `json:"sale_id"`
	Status         string `json:"status"`
	RewardAmount   int64  `json:"reward_amount"`
	NetAmount      int64  `json:"net_amount"`
	Currency       string `json:"currency"`
	RecurringMonth int    `json:"recurring_month,omitempty"`
	HoldUntil      string `json:"hold_until"`
	CreatedAt      string `json:"created_at"`
}

// GetCommissions handles GET /api/v1/commissions
// Query parameters:
//   - workspace_id (required): Workspace ID
//   - limit (optional, default 25): Number of commissions to return
//   - offset (optional, default 0): Number of commissions to skip
func (h *CommissionsHandler) GetCommissions(c *fiber.Ctx) error {
	workspaceID := c.Query("workspace_id")
	if workspaceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "workspace_id query parameter is required",
		})
	}

	limit := 25
	if limitStr := c.Query("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be a positive integer",
			})
		}
		limit = parsedLimit
	}

	offset := 0
	if offsetStr := c.Query("offset"); offsetStr != "" {
		parsedOffset, err := strconv.Atoi(offsetStr)
		if err != nil || parsedOffset < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "offset must be a non-negative integer",
			})
		}
		offset = parsedOffset
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	// Fetch one extra to determine has_more
	commissions, err := h.Store.List(ctx, workspaceID, limit+1, offset)
	if err != nil {
		h.Logger.Error("Failed to query commissions",
			zap.String("workspace_id", workspaceID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch commissions",
		})
	}

	hasMore := len(commissions) > limit
	if hasMore {
		commissions = commissions[:limit]
	}

	dtos := make([]CommissionDTO, 0, len(commissions))
	for _, commission := range commissions {
		dtos = append(dtos, CommissionDTO{
			ID:             commission.ID,
			PartnerID:      commission.PartnerID,
			SaleID:         commission.SaleID,
			Status:         string(commission.Status),
			RewardAmount:   commission.RewardAmount,
			NetAmount:      commission.NetAmount,
			Currency:       commission.Currency,
			RecurringMonth: commission.RecurringMonth,
			HoldUntil:      commission.HoldUntil.UTC().Format(time.RFC3339),
			CreatedAt:      commission.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(CommissionsResponse{
		Commissions: dtos,
		HasMore:     hasMore,
	})
}
