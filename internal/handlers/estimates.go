package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"sdcp-backend/config"
	"sdcp-backend/internal/middleware"
	"sdcp-backend/internal/models"
	"sdcp-backend/internal/services"
	"sdcp-backend/internal/store"
)

type EstimatesHandler struct {
	cfg       *config.Config
	estimates store.Store[models.Estimate]
	referrals store.Store[models.Referral]
	users     store.Store[models.User]
	notifier  services.Notifier
}

func NewEstimatesHandler(cfg *config.Config, estimates store.Store[models.Estimate], referrals store.Store[models.Referral], users store.Store[models.User], notifier services.Notifier) *EstimatesHandler {
	return &EstimatesHandler{cfg: cfg, estimates: estimates, referrals: referrals, users: users, notifier: notifier}
}

// RequestEstimate takes an estimate request, applies an optional referral
// code, and notifies the admin, the customer, and the code's owner.
func (h *EstimatesHandler) RequestEstimate(c *fiber.Ctx) error {
	var req struct {
		FullName      string `json:"full_name"`
		Email         string `json:"email"`
		Phone         string `json:"phone"`
		Street        string `json:"street"`
		City          string `json:"city"`
		State         string `json:"state"`
		Postal        string `json:"postal"`
		Budget        string `json:"budget"`
		Description   string `json:"description"`
		PreferredDate string `json:"preferred_date"`
		ReferralCode  string `json:"referral_code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}
	for _, required := range []string{req.FullName, req.Email, req.Street, req.City, req.State, req.Postal, req.Description} {
		if strings.TrimSpace(required) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Please fill required fields"})
		}
	}

	discount := 0
	referralOwner := ""
	var ownerEmail string
	warning := ""
	code := strings.TrimSpace(req.ReferralCode)
	if code != "" {
		matched, err := h.useReferral(c, code)
		if err != nil || matched == nil {
			warning = "Referral code invalid or expired; continuing without discount"
		} else {
			discount = matched.DiscountPercent
			referralOwner = matched.OwnerID.String()
			if owner, err := h.users.Get(c.Context(), referralOwner); err == nil {
				ownerEmail = owner.Email
			}
		}
	}

	estimate := models.Estimate{
		ID:       uuid.New(),
		UserID:   middleware.ClaimUserID(c),
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Address: models.Address{
			Street: req.Street,
			City:   req.City,
			State:  req.State,
			Postal: req.Postal,
		},
		Budget:                 req.Budget,
		Description:            req.Description,
		PreferredDate:          req.PreferredDate,
		ReferralCode:           code,
		ReferralOwner:          referralOwner,
		DiscountAppliedPercent: discount,
		Status:                 "submitted",
		CreatedAt:              time.Now().UTC(),
	}
	if err := h.estimates.Upsert(c.Context(), estimate); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save estimate"})
	}

	if h.cfg.AdminEmail != "" {
		h.notifier.Notify(h.cfg.AdminEmail,
			fmt.Sprintf("New Estimate Request — %s", estimate.FullName),
			fmt.Sprintf("New estimate request from %s (%s)\n%s, %s, %s %s\nBudget: %s\n\n%s",
				estimate.FullName, estimate.Email,
				estimate.Address.Street, estimate.Address.City, estimate.Address.State, estimate.Address.Postal,
				estimate.Budget, estimate.Description),
			"")
	}
	h.notifier.Notify(estimate.Email,
		"Estimate Request Received — Sergio Diaz Custom Painting",
		fmt.Sprintf("Hi %s,\n\nWe received your estimate request and will contact you shortly.", estimate.FullName),
		"")
	if ownerEmail != "" {
		h.notifier.Notify(ownerEmail,
			"Your referral was used!",
			fmt.Sprintf("Your referral code %s was just used by %s.", code, estimate.FullName),
			"")
	}

	resp := fiber.Map{
		"message":  "Estimate request submitted. We'll contact you shortly.",
		"id":       estimate.ID,
		"discount": discount,
	}
	if warning != "" {
		resp["warning"] = warning
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// useReferral finds a usable code and burns one use. Returns nil when the
// code is unknown or exhausted.
func (h *EstimatesHandler) useReferral(c *fiber.Ctx, code string) (*models.Referral, error) {
	all, err := h.referrals.All(c.Context())
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if r.Code == code && r.Usable() {
			r.Uses++
			if err := h.referrals.Upsert(c.Context(), r); err != nil {
				return nil, err
			}
			return &r, nil
		}
	}
	return nil, nil
}
