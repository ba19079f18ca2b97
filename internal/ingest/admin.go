package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"sdcp-backend/internal/models"
	"sdcp-backend/internal/storage"
	"sdcp-backend/internal/store"
)

// ErrNoSource means neither the pending copy nor the permanent file can be
// recovered, so there is nothing to reprocess.
var ErrNoSource = errors.New("no recoverable source")

// Admin exposes the operator-initiated controls over Example records.
// There is no automatic retry; every retry call comes from a person.
type Admin struct {
	Examples   store.Store[models.Example]
	Blobs      storage.Blobs
	Submitter  Submitter
	PendingDir string
}

// Retry reprocesses a failed example. The source is the pending copy when
// it still exists on disk; otherwise the last-known permanent file is
// pulled back from blob storage into the pending area. With no recoverable
// source the record is left exactly as it was, error message included.
func (a *Admin) Retry(ctx context.Context, id string) error {
	ex, err := a.Examples.Get(ctx, id)
	if err != nil {
		return err
	}
	if ex.Processing {
		return fmt.Errorf("example %s is already processing", id)
	}

	var pendingPath, original string
	switch {
	case ex.PendingFile != "" && fileExists(filepath.Join(a.PendingDir, ex.PendingFile)):
		pendingPath = filepath.Join(a.PendingDir, ex.PendingFile)
		original = OriginalName(ex.PendingFile)
	case ex.File != "":
		// The pending dir may not exist yet on a fresh process
		if err := os.MkdirAll(a.PendingDir, 0o755); err != nil {
			return fmt.Errorf("prepare pending dir: %w", err)
		}
		dest := filepath.Join(a.PendingDir, ex.File)
		if err := a.Blobs.Fetch(ctx, ex.File, dest); err != nil {
			return fmt.Errorf("%w: %v", ErrNoSource, err)
		}
		pendingPath = dest
		original = OriginalName(ex.File)
		ex.PendingFile = ex.File
	default:
		return ErrNoSource
	}

	ex.RetryCount = 0
	ex.Processing = true
	ex.ProcessingError = ""
	if err := a.Examples.Upsert(ctx, ex); err != nil {
		return err
	}

	return a.Submitter.Submit(ctx, Job{
		ExampleID:        id,
		PendingPath:      pendingPath,
		OriginalFilename: original,
	})
}

// Delete removes the record and best-effort deletes every associated blob.
// Individual delete failures are logged and never block record removal.
func (a *Admin) Delete(ctx context.Context, id string) error {
	ex, err := a.Examples.Get(ctx, id)
	if err != nil {
		return err
	}
	for _, key := range []string{ex.File, ex.Thumb} {
		if key == "" {
			continue
		}
		if err := a.Blobs.Delete(ctx, key); err != nil {
			log.Printf("⚠️  Failed to delete blob %s for example %s: %v", key, id, err)
		}
	}
	if ex.PendingFile != "" {
		_ = os.Remove(filepath.Join(a.PendingDir, ex.PendingFile))
	}
	return a.Examples.Delete(ctx, id)
}

// OriginalName strips the storage-name hex prefix, recovering the uploaded
// filename (used for re-classification on retry).
func OriginalName(storageName string) string {
	if _, rest, ok := strings.Cut(storageName, "_"); ok && rest != "" {
		return rest
	}
	return storageName
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
