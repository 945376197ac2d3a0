// Package clips cuts play clips out of full-game recordings with ffmpeg.
package clips

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrInvalidDuration is returned when a clip does not end after it starts.
	ErrInvalidDuration = errors.New("invalid clip duration")
	// ErrInvalidName is returned for output names that would escape the clip
	// directory.
	ErrInvalidName = errors.New("invalid clip name")
	// ErrSourceMissing is returned when the source recording does not exist.
	ErrSourceMissing = errors.New("source video not found")
)

// Clip describes one cut. Start and End are seconds into Source.
type Clip struct {
	Source string
	Start  float64
	End    float64
	Name   string // Output file name inside the clip directory
}

// Duration returns End - Start.
func (c Clip) Duration() float64 {
	return c.End - c.Start
}

// Slicer produces a clip file and returns its path.
type Slicer interface {
	Slice(ctx context.Context, clip Clip) (string, error)
}

// Runner executes a command. It exists so tests can capture arguments.
type Runner func(ctx context.Context, name string, args ...string) error

// ExecRunner runs the command, discarding stdout and keeping the tail of
// stderr for the error.
func ExecRunner(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[len(msg)-512:]
		}
		return fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return nil
}

// FFmpegSlicer cuts clips with a stream copy, so no re-encoding happens and
// cut points snap to the nearest keyframe.
type FFmpegSlicer struct {
	binary    string
	outputDir string
	run       Runner
}

// NewFFmpegSlicer creates a slicer writing into outputDir, creating it if
// needed. An empty binary uses "ffmpeg" from PATH.
func NewFFmpegSlicer(binary, outputDir string) (*FFmpegSlicer, error) {
	if binary == "" {
		binary = "ffmpeg"
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create clip directory: %w", err)
	}
	return &FFmpegSlicer{binary: binary, outputDir: outputDir, run: ExecRunner}, nil
}

// WithRunner replaces the command runner.
func (s *FFmpegSlicer) WithRunner(r Runner) *FFmpegSlicer {
	s.run = r
	return s
}

// Args returns the ffmpeg arguments for clip written to out.
func Args(clip Clip, out string) []string {
	return []string{
		"-y",
		"-ss", formatSeconds(clip.Start),
		"-i", clip.Source,
		"-t", formatSeconds(clip.Duration()),
		"-c", "copy",
		out,
	}
}

// Slice cuts clip and returns the output path.
func (s *FFmpegSlicer) Slice(ctx context.Context, clip Clip) (string, error) {
	if clip.Duration() <= 0 {
		return "", fmt.Errorf("%w: %.2fs", ErrInvalidDuration, clip.Duration())
	}
	name := filepath.Base(clip.Name)
	if clip.Name == "" || name != clip.Name || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, clip.Name)
	}
	if _, err := os.Stat(clip.Source); err != nil {
		return "", fmt.Errorf("%w: %s", ErrSourceMissing, clip.Source)
	}

	out := filepath.Join(s.outputDir, name)
	log.WithFields(log.Fields{
		"source": clip.Source,
		"start":  clip.Start,
		"end":    clip.End,
		"output": out,
	}).Debug("slicing clip")

	if err := s.run(ctx, s.binary, Args(clip, out)...); err != nil {
		return "", fmt.Errorf("failed to slice clip: %w", err)
	}
	return out, nil
}

// WindowAround returns a clip window of before seconds ahead of offset and
// after seconds past it, clamped at the start of the recording.
func WindowAround(offset, before, after float64) (start, end float64) {
	start = max(0, offset-before)
	end = max(start, offset+after)
	return start, end
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
