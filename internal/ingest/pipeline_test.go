package ingest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"sdcp-backend/internal/media"
	"sdcp-backend/internal/models"
	"sdcp-backend/internal/storage"
	"sdcp-backend/internal/store"
)

type pipelineFixture struct {
	pipeline   *Pipeline
	examples   store.Store[models.Example]
	blobs      *storage.Local
	pendingDir string
}

func newPipelineFixture(t *testing.T, transform media.Transformer) *pipelineFixture {
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
	pendingDir := filepath.Join(root, "uploads", "pending")
	if err := os.MkdirAll(pendingDir, 0o755); err != nil {
		t.Fatalf("create pending dir: %v", err)
	}
	if transform == nil {
		transform = media.NewTools("", "")
	}
	return &pipelineFixture{
		pipeline: &Pipeline{
			Examples:  examples,
			Blobs:     blobs,
			Transform: transform,
			Timeout:   30 * time.Second,
		},
		examples:   examples,
		blobs:      blobs,
		pendingDir: pendingDir,
	}
}

// seed creates an Example in the pre-processing state with the given bytes
// parked in the pending area, mirroring what the upload endpoint does.
func (f *pipelineFixture) seed(t *testing.T, originalFilename string, content []byte) (models.Example, Job) {
	t.Helper()
	storeName := NewStorageName(originalFilename)
	pendingPath := filepath.Join(f.pendingDir, storeName)
	if err := os.WriteFile(pendingPath, content, 0o644); err != nil {
		t.Fatalf("write pending file: %v", err)
	}
	ex := models.Example{
		ID:          uuid.New(),
		Title:       originalFilename,
		Processing:  true,
		PendingFile: storeName,
		CreatedAt:   time.Now().UTC(),
	}
	if err := f.examples.Upsert(context.Background(), ex); err != nil {
		t.Fatalf("seed example: %v", err)
	}
	return ex, Job{
		ExampleID:        ex.ID.String(),
		PendingPath:      pendingPath,
		OriginalFilename: originalFilename,
	}
}

func (f *pipelineFixture) get(t *testing.T, id uuid.UUID) models.Example {
	t.Helper()
	ex, err := f.examples.Get(context.Background(), id.String())
	if err != nil {
		t.Fatalf("load example %s: %v", id, err)
	}
	return ex
}

// assertOneState checks the record invariant: pending, failed, or
// succeeded, never two at once.
func assertOneState(t *testing.T, ex models.Example) {
	t.Helper()
	states := 0
	if ex.Processing {
		states++
	}
	if !ex.Processing && ex.ProcessingError != "" {
		states++
	}
	if !ex.Processing && ex.ProcessingError == "" && ex.File != "" {
		states++
	}
	if states != 1 {
		t.Fatalf("example in %d states at once: processing=%v error=%q file=%q",
			states, ex.Processing, ex.ProcessingError, ex.File)
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestProcessImageSuccess(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ex, job := f.seed(t, "photo.png", pngBytes(t, 800, 600))

	f.pipeline.Process(context.Background(), job)

	got := f.get(t, ex.ID)
	assertOneState(t, got)
	if got.Processing {
		t.Fatal("still marked processing after pipeline run")
	}
	if got.ProcessingError != "" {
		t.Fatalf("unexpected processing error: %q", got.ProcessingError)
	}
	if got.File == "" || got.Thumb == "" {
		t.Fatalf("file/thumb not set: file=%q thumb=%q", got.File, got.Thumb)
	}
	if got.Duration != 0 {
		t.Fatalf("image picked up a duration: %v", got.Duration)
	}
	if got.PendingFile != "" {
		t.Fatalf("pending_file not cleared on success: %q", got.PendingFile)
	}
	for _, key := range []string{got.File, got.Thumb} {
		if _, err := os.Stat(f.blobs.Path(key)); err != nil {
			t.Fatalf("stored blob %s missing: %v", key, err)
		}
	}
	if _, err := os.Stat(job.PendingPath); !os.IsNotExist(err) {
		t.Fatalf("pending copy not consumed: %v", err)
	}
}

func TestProcessCorruptImage(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ex, job := f.seed(t, "photo.png", []byte("definitely not a png"))

	f.pipeline.Process(context.Background(), job)

	got := f.get(t, ex.ID)
	assertOneState(t, got)
	if !got.Failed() {
		t.Fatalf("expected failed state, got processing=%v error=%q", got.Processing, got.ProcessingError)
	}
	if got.File != "" || got.Thumb != "" {
		t.Fatalf("file/thumb set on failure: file=%q thumb=%q", got.File, got.Thumb)
	}
	if got.PendingFile == "" {
		t.Fatal("pending_file dropped on failure; retry needs it")
	}
	// Transform runs before the move, so the pending copy must survive
	// for a retry
	if _, err := os.Stat(job.PendingPath); err != nil {
		t.Fatalf("pending copy gone after transform failure: %v", err)
	}
}

func TestProcessUnsupportedType(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ex, job := f.seed(t, "notes.txt", []byte("plain text"))

	f.pipeline.Process(context.Background(), job)

	got := f.get(t, ex.ID)
	assertOneState(t, got)
	if !got.Failed() {
		t.Fatal("expected failed state for unsupported extension")
	}
	if !strings.Contains(got.ProcessingError, "unsupported") {
		t.Fatalf("error does not name the cause: %q", got.ProcessingError)
	}
}

// thumbFailingBlobs refuses thumbnail keys, simulating an object store
// failing midway through placing a processed upload.
type thumbFailingBlobs struct {
	*storage.Local
}

func (b *thumbFailingBlobs) Put(ctx context.Context, srcPath, key string) error {
	if strings.HasPrefix(key, "thumb_") {
		return errors.New("object store rejected thumbnail")
	}
	return b.Local.Put(ctx, srcPath, key)
}

func TestThumbStoreFailureRecordsPermanentKey(t *testing.T) {
	f := newPipelineFixture(t, nil)
	f.pipeline.Blobs = &thumbFailingBlobs{Local: f.blobs}
	ex, job := f.seed(t, "photo.png", pngBytes(t, 64, 64))

	f.pipeline.Process(context.Background(), job)

	got := f.get(t, ex.ID)
	assertOneState(t, got)
	if !got.Failed() {
		t.Fatalf("expected failed state, got processing=%v error=%q", got.Processing, got.ProcessingError)
	}
	// The source was already moved to permanent storage; the record must
	// keep its key or a retry has nothing to work from
	if got.File == "" {
		t.Fatal("permanent key lost on thumb-store failure")
	}
	if _, err := os.Stat(f.blobs.Path(got.File)); err != nil {
		t.Fatalf("permanent blob missing: %v", err)
	}
	if got.PendingFile != "" {
		t.Fatalf("pending_file still set after the pending copy was consumed: %q", got.PendingFile)
	}
	if got.Thumb != "" {
		t.Fatalf("thumb set despite store failure: %q", got.Thumb)
	}
}

// stubTransformer stands in for ffmpeg in video tests.
type stubTransformer struct {
	duration   float64
	durationOK bool
	frameErr   error
	blockOnCtx bool

	// released is closed after a blockOnCtx frame extraction has written
	// its (late) output
	released chan struct{}
}

func (s *stubTransformer) Thumbnail(srcPath, destPath string, box media.Box) error {
	return os.WriteFile(destPath, []byte("thumb"), 0o644)
}

func (s *stubTransformer) ProbeDuration(ctx context.Context, path string) (float64, bool) {
	return s.duration, s.durationOK
}

func (s *stubTransformer) ExtractFrame(ctx context.Context, srcPath, destPath string, atSeconds float64, box media.Box) error {
	if s.blockOnCtx {
		<-ctx.Done()
		// A real ffmpeg process killed by the deadline can still have
		// flushed partial output
		_ = os.WriteFile(destPath, []byte("late frame"), 0o644)
		if s.released != nil {
			close(s.released)
		}
		return ctx.Err()
	}
	if s.frameErr != nil {
		return s.frameErr
	}
	return os.WriteFile(destPath, []byte("frame"), 0o644)
}

func TestProcessVideoSetsDuration(t *testing.T) {
	f := newPipelineFixture(t, &stubTransformer{duration: 12.5, durationOK: true})
	ex, job := f.seed(t, "clip.mp4", []byte("fake video bytes"))

	f.pipeline.Process(context.Background(), job)

	got := f.get(t, ex.ID)
	assertOneState(t, got)
	if !got.Processed() {
		t.Fatalf("expected success, got error=%q", got.ProcessingError)
	}
	if got.Duration != 12.5 {
		t.Fatalf("duration: want 12.5, got %v", got.Duration)
	}
	if got.Thumb == "" {
		t.Fatal("video thumb not set")
	}
}

func TestProcessVideoProbeFailureIsNotFatal(t *testing.T) {
	f := newPipelineFixture(t, &stubTransformer{durationOK: false})
	ex, job := f.seed(t, "clip.mp4", []byte("fake video bytes"))

	f.pipeline.Process(context.Background(), job)

	got := f.get(t, ex.ID)
	if !got.Processed() {
		t.Fatalf("probe failure should not fail the pipeline: error=%q", got.ProcessingError)
	}
	if got.Duration != 0 {
		t.Fatalf("unknown duration should stay unset, got %v", got.Duration)
	}
}

func TestProcessVideoFrameFailure(t *testing.T) {
	f := newPipelineFixture(t, &stubTransformer{durationOK: true, duration: 3, frameErr: errors.New("moov atom not found")})
	ex, job := f.seed(t, "clip.mp4", []byte("truncated"))

	f.pipeline.Process(context.Background(), job)

	got := f.get(t, ex.ID)
	assertOneState(t, got)
	if !got.Failed() {
		t.Fatal("expected failed state when frame extraction fails")
	}
	if !strings.Contains(got.ProcessingError, "moov atom") {
		t.Fatalf("error lost the transform cause: %q", got.ProcessingError)
	}
}

func TestTransformTimeout(t *testing.T) {
	f := newPipelineFixture(t, &stubTransformer{blockOnCtx: true})
	f.pipeline.Timeout = 20 * time.Millisecond
	ex, job := f.seed(t, "clip.mp4", []byte("fake video bytes"))

	f.pipeline.Process(context.Background(), job)

	got := f.get(t, ex.ID)
	assertOneState(t, got)
	if !got.Failed() {
		t.Fatal("expected timeout to be recorded as a failure")
	}
	if !strings.Contains(got.ProcessingError, "timed out") {
		t.Fatalf("error does not mention the timeout: %q", got.ProcessingError)
	}
}

func TestTimedOutTransformLeavesNoTempThumb(t *testing.T) {
	stub := &stubTransformer{blockOnCtx: true, released: make(chan struct{})}
	f := newPipelineFixture(t, stub)
	f.pipeline.Timeout = 20 * time.Millisecond
	_, job := f.seed(t, "clip.mp4", []byte("fake video bytes"))

	f.pipeline.Process(context.Background(), job)

	// Wait for the late transform output, then expect it reaped
	<-stub.released
	thumbTmp := job.PendingPath + ".thumb.jpg"
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(thumbTmp); os.IsNotExist(err) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("late transform output not cleaned up: %s", thumbTmp)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStorageNamesNeverCollide(t *testing.T) {
	a := NewStorageName("photo.png")
	b := NewStorageName("photo.png")
	if a == b {
		t.Fatalf("two submissions of the same filename produced the same storage name: %s", a)
	}
	if !strings.HasSuffix(a, "_photo.png") {
		t.Fatalf("storage name lost the original filename: %s", a)
	}
}

// Simulated double-submit: the same upload processed twice must not make
// the second run's permanent name collide with the first's.
func TestDoubleSubmitDistinctKeys(t *testing.T) {
	f := newPipelineFixture(t, nil)
	content := pngBytes(t, 64, 64)
	ex1, job1 := f.seed(t, "photo.png", content)
	ex2, job2 := f.seed(t, "photo.png", content)

	f.pipeline.Process(context.Background(), job1)
	f.pipeline.Process(context.Background(), job2)

	got1 := f.get(t, ex1.ID)
	got2 := f.get(t, ex2.ID)
	if !got1.Processed() || !got2.Processed() {
		t.Fatalf("both submissions should process: %q / %q", got1.ProcessingError, got2.ProcessingError)
	}
	if got1.File == got2.File || got1.Thumb == got2.Thumb {
		t.Fatalf("storage keys collided: %s/%s vs %s/%s", got1.File, got1.Thumb, got2.File, got2.Thumb)
	}
}

func TestClassify(t *testing.T) {
	if kind, err := Classify("a.jpeg"); err != nil || kind != KindImage {
		t.Fatalf("jpeg: kind=%v err=%v", kind, err)
	}
	if kind, err := Classify("b.MP4"); err != nil || kind != KindVideo {
		t.Fatalf("MP4: kind=%v err=%v", kind, err)
	}
	if _, err := Classify("setup.exe"); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("exe: want ErrUnsupportedType, got %v", err)
	}
	if _, err := Classify("noextension"); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("no extension: want ErrUnsupportedType, got %v", err)
	}
}
