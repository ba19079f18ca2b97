// Package ingest turns a raw upload into a displayable gallery entry or a
// recorded failure. It owns every processing-related field on the Example
// record; the web layer only ever writes the moderation fields.
package ingest

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"sdcp-backend/internal/media"
	"sdcp-backend/internal/models"
	"sdcp-backend/internal/storage"
	"sdcp-backend/internal/store"
)

// ErrUnsupportedType marks an extension outside the allow-lists. Not
// retryable without a new upload of a valid type.
var ErrUnsupportedType = errors.New("unsupported file type")

var (
	imageExts = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true, "bmp": true, "webp": true}
	videoExts = map[string]bool{"mp4": true}
)

// UploadExts is the allow-list the upload endpoint enforces before any
// record is created.
var UploadExts = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true, "mp4": true}

type Kind int

const (
	KindImage Kind = iota
	KindVideo
)

// Classify buckets a filename by extension.
func Classify(filename string) (Kind, error) {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return 0, fmt.Errorf("%w: %q has no extension", ErrUnsupportedType, filename)
	}
	ext := strings.ToLower(filename[i+1:])
	switch {
	case imageExts[ext]:
		return KindImage, nil
	case videoExts[ext]:
		return KindVideo, nil
	default:
		return 0, fmt.Errorf("%w: .%s", ErrUnsupportedType, ext)
	}
}

// Job is one unit of ingest work.
type Job struct {
	ExampleID        string `json:"example_id"`
	PendingPath      string `json:"pending_path"`
	OriginalFilename string `json:"original_filename"`
}

// Pipeline runs the upload-to-processed state machine for one job.
type Pipeline struct {
	Examples  store.Store[models.Example]
	Blobs     storage.Blobs
	Transform media.Transformer

	// Timeout bounds the transform step; exceeding it is a transform
	// failure like any other.
	Timeout time.Duration
}

const frameOffsetSeconds = 1.0

// Process validates, transforms, and places one uploaded file, then writes
// the outcome into the Example record. It never returns an error: every
// failure ends up in the record's processing_error, where admins can see it
// and retry.
//
// Transforms run against the pending copy BEFORE the file moves to
// permanent storage, so any transform failure leaves the pending file
// intact and retryable. Only a failure while storing the thumbnail can
// leave the source already moved; its permanent key is then recorded on
// the failed record so retry can fetch the file back.
func (p *Pipeline) Process(ctx context.Context, job Job) {
	log.Printf("📥 Processing media: %s (example=%s)", job.OriginalFilename, job.ExampleID)

	kind, err := Classify(job.OriginalFilename)
	if err != nil {
		p.fail(ctx, job, "", err)
		return
	}

	fileKey := NewStorageName(job.OriginalFilename)
	thumbKey := "thumb_" + fileKey + ".jpg"
	thumbTmp := job.PendingPath + ".thumb.jpg"
	defer os.Remove(thumbTmp)

	duration, err := p.transform(ctx, kind, job.PendingPath, thumbTmp)
	if err != nil {
		p.fail(ctx, job, "", err)
		return
	}

	// Point of no return for the pending copy
	if err := p.Blobs.Put(ctx, job.PendingPath, fileKey); err != nil {
		p.fail(ctx, job, "", err)
		return
	}
	if err := p.Blobs.Put(ctx, thumbTmp, thumbKey); err != nil {
		p.fail(ctx, job, fileKey, err)
		return
	}

	ex, err := p.Examples.Get(ctx, job.ExampleID)
	if err != nil {
		// Record deleted while we worked; drop the orphaned blobs
		log.Printf("⚠️  Example %s gone after processing: %v", job.ExampleID, err)
		_ = p.Blobs.Delete(ctx, fileKey)
		_ = p.Blobs.Delete(ctx, thumbKey)
		return
	}
	// A reprocessed record replaces its blobs; drop the superseded ones
	if ex.File != "" && ex.File != fileKey {
		_ = p.Blobs.Delete(ctx, ex.File)
	}
	if ex.Thumb != "" && ex.Thumb != thumbKey {
		_ = p.Blobs.Delete(ctx, ex.Thumb)
	}
	ex.File = fileKey
	ex.Thumb = thumbKey
	ex.Duration = duration
	ex.Processing = false
	ex.ProcessingError = ""
	ex.PendingFile = ""
	if err := p.Examples.Upsert(ctx, ex); err != nil {
		log.Printf("❌ Failed to save processed example %s: %v", job.ExampleID, err)
		return
	}
	log.Printf("✅ Processed %s: file=%s thumb=%s", job.OriginalFilename, fileKey, thumbKey)
}

// transform produces the thumbnail beside the pending file and, for video,
// probes the duration. The whole step runs under the pipeline timeout.
func (p *Pipeline) transform(ctx context.Context, kind Kind, srcPath, thumbPath string) (float64, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		duration float64
		err      error
	}
	done := make(chan result, 1)
	go func() {
		switch kind {
		case KindVideo:
			// Probe failure is not a pipeline failure, just no duration
			dur, _ := p.Transform.ProbeDuration(tctx, srcPath)
			err := p.Transform.ExtractFrame(tctx, srcPath, thumbPath, frameOffsetSeconds, media.ThumbBox)
			done <- result{duration: dur, err: err}
		default:
			done <- result{err: p.Transform.Thumbnail(srcPath, thumbPath, media.ThumbBox)}
		}
	}()

	select {
	case r := <-done:
		return r.duration, r.err
	case <-tctx.Done():
		// The transform goroutine may still be running and write its
		// output after the caller's temp cleanup; reap it once the
		// goroutine finishes
		go func() {
			<-done
			os.Remove(thumbPath)
		}()
		return 0, fmt.Errorf("transform timed out after %s", timeout)
	}
}

// fail records the attempt's outcome on the Example. storedKey names the
// permanent file when the source was already moved before the failure;
// keeping it on the record gives retry a recoverable source.
func (p *Pipeline) fail(ctx context.Context, job Job, storedKey string, cause error) {
	log.Printf("❌ Processing failed for %s (example=%s): %v", job.OriginalFilename, job.ExampleID, cause)
	ex, err := p.Examples.Get(ctx, job.ExampleID)
	if err != nil {
		log.Printf("⚠️  Example %s gone while recording failure: %v", job.ExampleID, err)
		if storedKey != "" {
			_ = p.Blobs.Delete(ctx, storedKey)
		}
		return
	}
	ex.Processing = false
	ex.ProcessingError = cause.Error()
	if storedKey != "" {
		ex.File = storedKey
		ex.PendingFile = ""
	}
	if err := p.Examples.Upsert(ctx, ex); err != nil {
		log.Printf("❌ Failed to record processing error for %s: %v", job.ExampleID, err)
	}
}

// NewStorageName returns a collision-resistant storage name for an upload,
// decoupled from the public filename. Two submissions of the same file get
// distinct names.
func NewStorageName(originalFilename string) string {
	id := uuid.New()
	return hex.EncodeToString(id[:]) + "_" + sanitizeFilename(originalFilename)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
