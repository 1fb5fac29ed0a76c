// Package media wraps the ffmpeg/ffprobe binaries behind a small
// contract: probe durations, join numbered audio files, and retime
// video to match audio. The binaries are spawned, never linked.
package media

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"
)

// CommandRunner executes an external binary and returns its stdout and
// stderr separately. Tests substitute a fake.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return out.Bytes(), errBuf.Bytes(), err
}

// Transcoder is the ffmpeg/ffprobe front end shared by the pipelines.
type Transcoder struct {
	run CommandRunner
}

func NewTranscoder() *Transcoder {
	return &Transcoder{run: execRunner{}}
}

// NewTranscoderWithRunner is used by tests.
func NewTranscoderWithRunner(r CommandRunner) *Transcoder {
	return &Transcoder{run: r}
}

// Duration probes a media file's container duration in seconds.
func (t *Transcoder) Duration(ctx context.Context, path string) (float64, error) {
	stdout, stderr, err := t.run.Run(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(string(stderr)))
	}

	d, err := strconv.ParseFloat(strings.TrimSpace(string(stdout)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: bad duration %q", path, strings.TrimSpace(string(stdout)))
	}
	if d <= 0 {
		return 0, fmt.Errorf("ffprobe %s: non-positive duration %f", path, d)
	}
	return d, nil
}

func (t *Transcoder) ffmpeg(ctx context.Context, args ...string) error {
	log.Printf("[FFmpeg] → ffmpeg %s", strings.Join(args, " "))
	_, stderr, err := t.run.Run(ctx, "ffmpeg", args...)
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(stderr)))
	}
	return nil
}
