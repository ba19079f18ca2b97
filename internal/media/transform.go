// Package media holds stateless transforms over media files at rest. It
// knows nothing about records or storage; callers hand it paths.
//
// Video operations shell out to ffmpeg/ffprobe, which must be present in
// PATH (or pointed at via config) in any runtime that processes video.
package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"os/exec"
	"strconv"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

var (
	// ErrDecode wraps unreadable or corrupt media input.
	ErrDecode = errors.New("media decode failed")
	// ErrTranscode wraps a failed re-encode.
	ErrTranscode = errors.New("media transcode failed")
)

// Box is a bounding box thumbnails must fit within, aspect preserved.
type Box struct {
	W, H int
}

var ThumbBox = Box{W: 400, H: 400}

// Transformer is the transform capability set the ingestion pipeline uses.
type Transformer interface {
	Thumbnail(srcPath, destPath string, box Box) error
	ProbeDuration(ctx context.Context, path string) (float64, bool)
	ExtractFrame(ctx context.Context, srcPath, destPath string, atSeconds float64, box Box) error
}

// Tools implements Transformer with the Go image stack for stills and the
// ffmpeg binaries for video.
type Tools struct {
	FFmpegPath  string
	FFprobePath string
}

func NewTools(ffmpegPath, ffprobePath string) *Tools {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Tools{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

// Thumbnail decodes the image at srcPath, scales it down to fit within box
// preserving aspect ratio (never upscales), and writes a JPEG to destPath.
func (t *Tools) Thumbnail(srcPath, destPath string, box Box) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrDecode, srcPath, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, srcPath, err)
	}

	sb := src.Bounds()
	w, h := fitWithin(sb.Dx(), sb.Dy(), box)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// White backing so transparent PNG/GIF regions do not turn black in JPEG
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	if err := jpeg.Encode(out, dst, &jpeg.Options{Quality: 85}); err != nil {
		out.Close()
		return fmt.Errorf("encode %s: %w", destPath, err)
	}
	return out.Close()
}

// ProbeDuration returns the clip length in seconds. Any probing failure
// (malformed file, missing binary, timeout) yields unknown, never an error.
func (t *Tools) ProbeDuration(ctx context.Context, path string) (float64, bool) {
	cmd := exec.CommandContext(ctx, t.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, false
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || dur <= 0 {
		return 0, false
	}
	return dur, true
}

// ExtractFrame writes a single frame of the video at srcPath, taken at
// atSeconds (clamped to the start when the clip is shorter), scaled to fit
// within box, to destPath.
func (t *Tools) ExtractFrame(ctx context.Context, srcPath, destPath string, atSeconds float64, box Box) error {
	if dur, ok := t.ProbeDuration(ctx, srcPath); ok && atSeconds >= dur {
		atSeconds = 0
	}

	cmd := exec.CommandContext(ctx, t.FFmpegPath,
		"-y",
		"-ss", strconv.FormatFloat(atSeconds, 'f', 3, 64),
		"-i", srcPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", box.W, box.H),
		destPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: ffmpeg frame extract: %v; out=%s", ErrDecode, err, string(out))
	}
	if _, err := os.Stat(destPath); err != nil {
		return fmt.Errorf("%w: frame output missing at %s", ErrDecode, destPath)
	}
	return nil
}

// TranscodeMP4 re-encodes the video at srcPath to H.264/AAC for broad
// browser compatibility. Not part of the default ingest flow.
func (t *Tools) TranscodeMP4(ctx context.Context, srcPath, destPath string) error {
	cmd := exec.CommandContext(ctx, t.FFmpegPath,
		"-y",
		"-i", srcPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		destPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %v; out=%s", ErrTranscode, err, string(out))
	}
	return nil
}

func fitWithin(w, h int, box Box) (int, int) {
	if w <= box.W && h <= box.H {
		return w, h
	}
	rw := float64(box.W) / float64(w)
	rh := float64(box.H) / float64(h)
	r := rw
	if rh < rw {
		r = rh
	}
	nw := int(float64(w) * r)
	nh := int(float64(h) * r)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}
