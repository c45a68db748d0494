// Package media wraps the external encoder binary used for muxing, subtitle
// burn-in and upscaling of generated videos.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Encoder invokes an ffmpeg-compatible binary.
type Encoder struct {
	bin string
}

// NewEncoder returns an Encoder using bin, defaulting to "ffmpeg" on PATH.
func NewEncoder(bin string) *Encoder {
	if strings.TrimSpace(bin) == "" {
		bin = "ffmpeg"
	}
	return &Encoder{bin: bin}
}

func (e *Encoder) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, e.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 300 {
			msg = msg[len(msg)-300:]
		}
		return fmt.Errorf("media: %s failed: %w: %s", e.bin, err, msg)
	}
	return nil
}

// EncodeFrames encodes a numbered PNG frame sequence into an H.264 video.
// pattern is an ffmpeg image sequence pattern such as "frames/frame_%04d.png".
func (e *Encoder) EncodeFrames(ctx context.Context, pattern, outPath string, fps int) error {
	return e.run(ctx, encodeFramesArgs(pattern, outPath, fps))
}

func encodeFramesArgs(pattern, outPath string, fps int) []string {
	return []string{
		"-framerate", strconv.Itoa(fps),
		"-i", pattern,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-y",
		outPath,
	}
}

// BurnSubtitles burns an SRT file into the video frames, copying the audio
// stream untouched.
func (e *Encoder) BurnSubtitles(ctx context.Context, videoPath, srtPath, outPath string) error {
	return e.run(ctx, burnSubtitlesArgs(videoPath, srtPath, outPath))
}

func burnSubtitlesArgs(videoPath, srtPath, outPath string) []string {
	// The subtitles filter parses its argument, so backslashes and drive
	// colons in the path must be escaped.
	escaped := strings.ReplaceAll(srtPath, "\\", "/")
	escaped = strings.ReplaceAll(escaped, ":", "\\:")
	return []string{
		"-i", videoPath,
		"-vf", fmt.Sprintf("subtitles='%s'", escaped),
		"-c:a", "copy",
		"-y",
		outPath,
	}
}

// AddAudio muxes an audio track onto the video, re-encoding audio as AAC and
// ending at the shorter stream.
func (e *Encoder) AddAudio(ctx context.Context, videoPath, audioPath, outPath string) error {
	return e.run(ctx, addAudioArgs(videoPath, audioPath, outPath))
}

func addAudioArgs(videoPath, audioPath, outPath string) []string {
	return []string{
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		"-y",
		outPath,
	}
}

// Upscale rescales the video to width x height with Lanczos resampling.
func (e *Encoder) Upscale(ctx context.Context, videoPath, outPath string, width, height int) error {
	return e.run(ctx, upscaleArgs(videoPath, outPath, width, height))
}

func upscaleArgs(videoPath, outPath string, width, height int) []string {
	return []string{
		"-i", videoPath,
		"-vf", fmt.Sprintf("scale=%d:%d:flags=lanczos", width, height),
		"-c:a", "copy",
		"-y",
		outPath,
	}
}

var durationRe = regexp.MustCompile(`Duration: (\d+):(\d+):(\d+\.?\d*)`)

// Duration probes a video's duration in seconds by parsing encoder output.
func (e *Encoder) Duration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, e.bin, "-i", videoPath, "-f", "null", "-")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// ffmpeg exits non-zero for probe-only invocations; the duration line is
	// still printed, so only the parse result matters.
	_ = cmd.Run()

	m := durationRe.FindStringSubmatch(stderr.String())
	if m == nil {
		return 0, fmt.Errorf("media: no duration in %s output", e.bin)
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.ParseFloat(m[3], 64)
	return float64(hours)*3600 + float64(minutes)*60 + seconds, nil
}

// NeedsUpscale reports whether the target resolution differs enough from the
// native output to make rescaling worthwhile. Small deltas are skipped to
// avoid blurring frames that are already the right size.
func NeedsUpscale(nativeW, nativeH, targetW, targetH int) bool {
	return abs(targetW-nativeW) > 16 || abs(targetH-nativeH) > 16
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
