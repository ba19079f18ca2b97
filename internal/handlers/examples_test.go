package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"sdcp-backend/config"
	"sdcp-backend/internal/ingest"
	"sdcp-backend/internal/models"
	"sdcp-backend/internal/storage"
	"sdcp-backend/internal/store"
)

type recordingSubmitter struct {
	jobs []ingest.Job
}

func (s *recordingSubmitter) Submit(ctx context.Context, job ingest.Job) error {
	s.jobs = append(s.jobs, job)
	return nil
}

type galleryFixture struct {
	app       *fiber.App
	examples  store.Store[models.Example]
	submitter *recordingSubmitter
	uploadDir string
}

func newGalleryFixture(t *testing.T) *galleryFixture {
	t.Helper()
	root := t.TempDir()
	examples, err := store.NewJSONStore(filepath.Join(root, "data"), "examples",
		func(e models.Example) string { return e.ID.String() })
	if err != nil {
		t.Fatalf("open example store: %v", err)
	}
	blobs, err := storage.NewLocal(filepath.Join(root, "uploads"))
	if err != nil {
		t.Fatalf("open blob storage: %v", err)
	}
	cfg := &config.Config{UploadDir: filepath.Join(root, "uploads")}
	submitter := &recordingSubmitter{}
	h := NewExamplesHandler(cfg, examples, blobs, submitter)

	// Routes registered without auth middleware: these tests exercise the
	// handlers, not token parsing
	app := fiber.New()
	app.Get("/examples", h.ListExamples)
	app.Post("/examples/upload", h.UploadExample)

	return &galleryFixture{app: app, examples: examples, submitter: submitter, uploadDir: cfg.UploadDir}
}

func multipartUpload(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/examples/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	f := newGalleryFixture(t)

	resp, err := f.app.Test(multipartUpload(t, "malware.exe", []byte("MZ")))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("want 400, got %d", resp.StatusCode)
	}

	// Rejection happens before any record or pending file exists
	all, err := f.examples.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("rejected upload created %d record(s)", len(all))
	}
	if len(f.submitter.jobs) != 0 {
		t.Fatal("rejected upload reached the pipeline")
	}
}

func TestUploadMissingFilePart(t *testing.T) {
	f := newGalleryFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/examples/upload", nil)
	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("want 400, got %d", resp.StatusCode)
	}
}

func TestUploadAcceptedCreatesPendingRecord(t *testing.T) {
	f := newGalleryFixture(t)

	resp, err := f.app.Test(multipartUpload(t, "kitchen.png", []byte("png bytes")))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("want 201, got %d", resp.StatusCode)
	}

	all, err := f.examples.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("want 1 record, got %d", len(all))
	}
	ex := all[0]
	if !ex.Processing || ex.PendingFile == "" || ex.Title != "kitchen.png" {
		t.Fatalf("unexpected record shape: %+v", ex)
	}

	if len(f.submitter.jobs) != 1 {
		t.Fatalf("want 1 submitted job, got %d", len(f.submitter.jobs))
	}
	job := f.submitter.jobs[0]
	if job.ExampleID != ex.ID.String() || job.OriginalFilename != "kitchen.png" {
		t.Fatalf("unexpected job: %+v", job)
	}

	var body struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.ID != ex.ID {
		t.Fatalf("response id %s does not match record %s", body.ID, ex.ID)
	}
}

func TestListExamplesHidesUnapprovedAndUnprocessed(t *testing.T) {
	f := newGalleryFixture(t)
	ctx := context.Background()

	seed := []models.Example{
		{ID: uuid.New(), Title: "visible", Approved: true, File: "a.png", Thumb: "thumb_a.jpg", CreatedAt: time.Now().UTC()},
		{ID: uuid.New(), Title: "unapproved", File: "b.png", Thumb: "thumb_b.jpg", CreatedAt: time.Now().UTC()},
		{ID: uuid.New(), Title: "still-processing", Approved: true, Processing: true, CreatedAt: time.Now().UTC()},
		{ID: uuid.New(), Title: "failed", Approved: true, ProcessingError: "decode failed", CreatedAt: time.Now().UTC()},
	}
	for _, ex := range seed {
		if err := f.examples.Upsert(ctx, ex); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/examples", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}

	var body struct {
		Examples []struct {
			Title string `json:"title"`
		} `json:"examples"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Examples) != 1 || body.Examples[0].Title != "visible" {
		t.Fatalf("gallery leaked records: %+v", body.Examples)
	}
}
