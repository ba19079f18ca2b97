package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"sdcp-backend/internal/middleware"
	"sdcp-backend/internal/models"
	"sdcp-backend/internal/services"
	"sdcp-backend/internal/store"
)

const (
	maxReferralsPerUser = 20
	referralMaxUses     = 10
	referralDiscountPct = 10
)

type ReferralsHandler struct {
	referrals store.Store[models.Referral]
	users     store.Store[models.User]
	notifier  services.Notifier
}

func NewReferralsHandler(referrals store.Store[models.Referral], users store.Store[models.User], notifier services.Notifier) *ReferralsHandler {
	return &ReferralsHandler{referrals: referrals, users: users, notifier: notifier}
}

// GenerateReferral mints a new discount code for the authenticated user.
func (h *ReferralsHandler) GenerateReferral(c *fiber.Ctx) error {
	userID := middleware.ClaimUserID(c)
	ownerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid session"})
	}

	all, err := h.referrals.All(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load referrals"})
	}
	count := 0
	for _, r := range all {
		if r.OwnerID == ownerID {
			count++
		}
	}
	if count >= maxReferralsPerUser {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Referral limit reached"})
	}

	code, err := referralCode()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate code"})
	}
	referral := models.Referral{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Code:            code,
		MaxUses:         referralMaxUses,
		DiscountPercent: referralDiscountPct,
		CreatedAt:       time.Now().UTC(),
	}
	if err := h.referrals.Upsert(c.Context(), referral); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save referral"})
	}

	if user, err := h.users.Get(c.Context(), userID); err == nil {
		h.notifier.Notify(user.Email,
			"Your referral code — Sergio Diaz Custom Painting",
			fmt.Sprintf("Hi %s,\n\nYour new referral code is %s. Share it with friends for a %d%% discount on their estimate.", user.Name, code, referralDiscountPct),
			"")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"code":     code,
		"referral": referral,
	})
}

func referralCode() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
