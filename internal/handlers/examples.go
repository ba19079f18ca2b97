package handlers

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"sdcp-backend/config"
	"sdcp-backend/internal/ingest"
	"sdcp-backend/internal/middleware"
	"sdcp-backend/internal/models"
	"sdcp-backend/internal/storage"
	"sdcp-backend/internal/store"
)

// mediaURLExpiry bounds signed URLs handed to gallery viewers. URLs are
// minted per request, never stored.
const mediaURLExpiry = time.Hour

type ExamplesHandler struct {
	cfg       *config.Config
	examples  store.Store[models.Example]
	blobs     storage.Blobs
	submitter ingest.Submitter
}

func NewExamplesHandler(cfg *config.Config, examples store.Store[models.Example], blobs storage.Blobs, submitter ingest.Submitter) *ExamplesHandler {
	return &ExamplesHandler{cfg: cfg, examples: examples, blobs: blobs, submitter: submitter}
}

// ListExamples returns the approved, processed gallery with fresh media
// URLs, newest first.
func (h *ExamplesHandler) ListExamples(c *fiber.Ctx) error {
	all, err := h.examples.All(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load examples"})
	}

	visible := make([]fiber.Map, 0)
	for _, ex := range all {
		if ex.Approved && ex.Processed() {
			visible = append(visible, h.exampleJSON(c, ex, false))
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		ti, _ := visible[i]["created_at"].(time.Time)
		tj, _ := visible[j]["created_at"].(time.Time)
		return ti.After(tj)
	})

	return c.JSON(fiber.Map{"examples": visible})
}

// ListMyExamples returns the caller's own uploads, including ones still
// processing or failed, so uploaders can see moderation progress.
func (h *ExamplesHandler) ListMyExamples(c *fiber.Ctx) error {
	userID := middleware.ClaimUserID(c)
	all, err := h.examples.All(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load examples"})
	}

	mine := make([]fiber.Map, 0)
	for _, ex := range all {
		if ex.UploadedBy == userID {
			mine = append(mine, h.exampleJSON(c, ex, false))
		}
	}
	return c.JSON(fiber.Map{"examples": mine})
}

// UploadExample accepts a multipart upload, parks it in the pending area,
// creates the record in processing state, and submits it to the pipeline.
// The extension allow-list is enforced before any record exists.
func (h *ExamplesHandler) UploadExample(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file part"})
	}
	filename := filepath.Base(fileHeader.Filename)
	if filename == "" || filename == "." {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No selected file"})
	}
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid filename"})
	}
	ext := strings.ToLower(filename[i+1:])
	if !ingest.UploadExts[ext] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid file type"})
	}

	pendingDir := filepath.Join(h.cfg.UploadDir, "pending")
	if err := os.MkdirAll(pendingDir, 0o755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store upload"})
	}
	storeName := ingest.NewStorageName(filename)
	pendingPath := filepath.Join(pendingDir, storeName)
	if err := c.SaveFile(fileHeader, pendingPath); err != nil {
		log.Printf("❌ Failed to save upload %s: %v", filename, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store upload"})
	}

	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		title = filename
	}
	example := models.Example{
		ID:          uuid.New(),
		Title:       title,
		Description: c.FormValue("description"),
		UploadedBy:  middleware.ClaimUserID(c),
		Processing:  true,
		PendingFile: storeName,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.examples.Upsert(c.Context(), example); err != nil {
		_ = os.Remove(pendingPath)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create example"})
	}

	if err := h.submitter.Submit(c.Context(), ingest.Job{
		ExampleID:        example.ID.String(),
		PendingPath:      pendingPath,
		OriginalFilename: filename,
	}); err != nil {
		log.Printf("❌ Failed to submit ingest job for %s: %v", example.ID, err)
	}

	// Processing may have already finished (inline mode), but the client
	// contract is the same either way
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Upload received. Processing and admin moderation will follow.",
		"id":      example.ID,
	})
}

// exampleJSON renders a record for clients, minting media URLs on the way
// out. withDiagnostics adds the processing fields admins need.
func (h *ExamplesHandler) exampleJSON(c *fiber.Ctx, ex models.Example, withDiagnostics bool) fiber.Map {
	m := fiber.Map{
		"id":          ex.ID,
		"title":       ex.Title,
		"description": ex.Description,
		"approved":    ex.Approved,
		"created_at":  ex.CreatedAt,
	}
	if ex.Duration > 0 {
		m["duration"] = ex.Duration
	}
	if ex.Processed() {
		if url, err := h.blobs.URL(c.Context(), ex.File, mediaURLExpiry); err == nil {
			m["url"] = url
		}
		if url, err := h.blobs.URL(c.Context(), ex.Thumb, mediaURLExpiry); err == nil {
			m["thumb_url"] = url
		}
	}
	if withDiagnostics {
		m["uploaded_by"] = ex.UploadedBy
		m["processing"] = ex.Processing
		m["processing_error"] = ex.ProcessingError
		m["pending_file"] = ex.PendingFile
		m["file"] = ex.File
		m["thumb"] = ex.Thumb
		m["retry_count"] = ex.RetryCount
	} else {
		m["processing"] = ex.Processing
		if ex.Failed() {
			m["processing_error"] = ex.ProcessingError
		}
	}
	return m
}
