package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"sdcp-backend/internal/middleware"
	"sdcp-backend/internal/models"
	"sdcp-backend/internal/store"
)

type TestimonialsHandler struct {
	testimonials store.Store[models.Testimonial]
}

func NewTestimonialsHandler(testimonials store.Store[models.Testimonial]) *TestimonialsHandler {
	return &TestimonialsHandler{testimonials: testimonials}
}

func (h *TestimonialsHandler) ListTestimonials(c *fiber.Ctx) error {
	all, err := h.testimonials.All(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load testimonials"})
	}
	return c.JSON(fiber.Map{"testimonials": all})
}

// AddTestimonial stores a text or video testimonial from the caller.
func (h *TestimonialsHandler) AddTestimonial(c *fiber.Ctx) error {
	userID, err := uuid.Parse(middleware.ClaimUserID(c))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid session"})
	}

	var req struct {
		Text     string `json:"text"`
		VideoURL string `json:"video_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}
	req.Text = strings.TrimSpace(req.Text)
	req.VideoURL = strings.TrimSpace(req.VideoURL)
	if req.Text == "" && req.VideoURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Provide a testimonial or a video URL"})
	}

	t := models.Testimonial{
		ID:        uuid.New(),
		UserID:    userID,
		Text:      req.Text,
		VideoURL:  req.VideoURL,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.testimonials.Upsert(c.Context(), t); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save testimonial"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"testimonial": t})
}
