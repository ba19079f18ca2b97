package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"sdcp-backend/internal/middleware"
	"sdcp-backend/internal/models"
	"sdcp-backend/internal/store"
)

type UserHandler struct {
	users     store.Store[models.User]
	referrals store.Store[models.Referral]
}

func NewUserHandler(users store.Store[models.User], referrals store.Store[models.Referral]) *UserHandler {
	return &UserHandler{users: users, referrals: referrals}
}

// GetMe returns the authenticated user's profile and referral codes.
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	userID := middleware.ClaimUserID(c)
	user, err := h.users.Get(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	all, err := h.referrals.All(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load referrals"})
	}
	mine := make([]models.Referral, 0)
	for _, r := range all {
		if r.OwnerID.String() == userID {
			mine = append(mine, r)
		}
	}

	return c.JSON(fiber.Map{
		"user":      user.Public(),
		"referrals": mine,
	})
}

// UpdateProfile updates the display name.
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	userID := middleware.ClaimUserID(c)
	user, err := h.users.Get(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name required"})
	}

	user.Name = req.Name
	if err := h.users.Upsert(c.Context(), user); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}
	return c.JSON(fiber.Map{"user": user.Public()})
}
