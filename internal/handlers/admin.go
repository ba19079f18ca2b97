package handlers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"sdcp-backend/config"
	"sdcp-backend/internal/ingest"
	"sdcp-backend/internal/middleware"
	"sdcp-backend/internal/models"
	"sdcp-backend/internal/services"
	"sdcp-backend/internal/store"
)

type AdminHandler struct {
	cfg       *config.Config
	estimates store.Store[models.Estimate]
	examples  store.Store[models.Example]
	ops       *ingest.Admin
	queue     *ingest.Queue // nil when processing runs inline
	notifier  services.Notifier
	gallery   *ExamplesHandler
}

func NewAdminHandler(cfg *config.Config, estimates store.Store[models.Estimate], examples store.Store[models.Example], ops *ingest.Admin, queue *ingest.Queue, notifier services.Notifier, gallery *ExamplesHandler) *AdminHandler {
	return &AdminHandler{
		cfg:       cfg,
		estimates: estimates,
		examples:  examples,
		ops:       ops,
		queue:     queue,
		notifier:  notifier,
		gallery:   gallery,
	}
}

// ListEstimates returns estimates newest first, optionally filtered by a
// name/email substring and processed status.
func (h *AdminHandler) ListEstimates(c *fiber.Ctx) error {
	q := strings.ToLower(c.Query("q"))
	status := c.Query("status", "all")

	all, err := h.estimates.All(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch estimates"})
	}

	filtered := make([]models.Estimate, 0, len(all))
	for _, e := range all {
		if q != "" && !strings.Contains(strings.ToLower(e.FullName+e.Email), q) {
			continue
		}
		if status == "submitted" && e.Processed {
			continue
		}
		if status == "processed" && !e.Processed {
			continue
		}
		filtered = append(filtered, e)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	return c.JSON(fiber.Map{"estimates": filtered})
}

// ProcessEstimate marks an estimate handled and optionally emails the
// customer a status update.
func (h *AdminHandler) ProcessEstimate(c *fiber.Ctx) error {
	estimate, err := h.estimates.Get(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Estimate not found"})
	}

	var req struct {
		SendEmail bool `json:"send_email"`
	}
	_ = c.BodyParser(&req)

	now := time.Now().UTC()
	estimate.Processed = true
	estimate.ProcessedBy = middleware.ClaimEmail(c)
	estimate.ProcessedAt = &now
	if req.SendEmail {
		h.notifier.Notify(estimate.Email,
			"Estimate Status Update — Sergio Diaz Custom Painting",
			fmt.Sprintf("Hi %s,\n\nYour estimate request has been reviewed. We'll be in touch with details.", estimate.FullName),
			"")
		estimate.EmailSent = true
	}
	if err := h.estimates.Upsert(c.Context(), estimate); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update estimate"})
	}
	return c.JSON(fiber.Map{"message": "Estimate marked processed", "estimate": estimate})
}

// ListExamples returns every example with full processing diagnostics,
// newest first.
func (h *AdminHandler) ListExamples(c *fiber.Ctx) error {
	all, err := h.examples.All(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch examples"})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	out := make([]fiber.Map, 0, len(all))
	for _, ex := range all {
		out = append(out, h.gallery.exampleJSON(c, ex, true))
	}
	return c.JSON(fiber.Map{"examples": out})
}

// ApproveExample makes an example publicly visible. Records still
// processing or failed have nothing to display and cannot be approved.
func (h *AdminHandler) ApproveExample(c *fiber.Ctx) error {
	ex, err := h.examples.Get(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Example not found"})
	}
	if !ex.Processed() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Example has no processed media to approve"})
	}

	now := time.Now().UTC()
	ex.Approved = true
	ex.ApprovedAt = &now
	if err := h.examples.Upsert(c.Context(), ex); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update example"})
	}
	return c.JSON(fiber.Map{"message": "Example approved", "example": h.gallery.exampleJSON(c, ex, true)})
}

// RetryExample resubmits a failed example to the pipeline.
func (h *AdminHandler) RetryExample(c *fiber.Ctx) error {
	err := h.ops.Retry(c.Context(), c.Params("id"))
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"message": "Retry submitted"})
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Example not found"})
	case errors.Is(err, ingest.ErrNoSource):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "No available file to retry processing"})
	default:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
}

// DeleteExample removes the record and its stored media.
func (h *AdminHandler) DeleteExample(c *fiber.Ctx) error {
	err := h.ops.Delete(c.Context(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Example not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete example"})
	}
	return c.JSON(fiber.Map{"message": "Example deleted"})
}

// QueueStats reports ingest backlog for the dashboard.
func (h *AdminHandler) QueueStats(c *fiber.Ctx) error {
	if h.queue == nil {
		return c.JSON(fiber.Map{"mode": "inline", "queued": 0})
	}
	n, err := h.queue.Len(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read queue"})
	}
	return c.JSON(fiber.Map{"mode": "queue", "queued": n})
}
