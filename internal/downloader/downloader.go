// Package downloader drives the external spotdl executable that fetches audio for Spotify URLs.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsync/internal/shared"
)

// Downloader fetches the audio behind a track or playlist URL into dir.
type Downloader interface {
	Download(ctx context.Context, url, dir string) error
}

// SpotDL runs `spotdl <url> --output <dir>`.
type SpotDL struct {
	Binary    string
	FFmpeg    string
	ExtraArgs []string
	logger    *log.Logger
}

var _ Downloader = (*SpotDL)(nil)

// New creates a SpotDL from cfg. Empty binary names default to "spotdl" and "ffmpeg".
func New(cfg shared.DownloaderConfig, logger *log.Logger) *SpotDL {
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	binary := cfg.Binary
	if binary == "" {
		binary = "spotdl"
	}
	ffmpeg := cfg.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &SpotDL{
		Binary:    binary,
		FFmpeg:    ffmpeg,
		ExtraArgs: cfg.ExtraArgs,
		logger:    logger,
	}
}

// Download invokes spotdl for url, writing into dir. A non-zero exit is reported as [shared.ErrDownloadFailed].
func (s *SpotDL) Download(ctx context.Context, url, dir string) error {
	if url == "" {
		return fmt.Errorf("%w: empty url", shared.ErrInvalidArgument)
	}

	args := append([]string{url, "--output", dir}, s.ExtraArgs...)
	s.logger.Debug("running downloader", "binary", s.Binary, "args", args)

	if err := run(ctx, s.Binary, args...); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s: %v", shared.ErrMissingDependency, s.Binary, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %v", shared.ErrDownloadFailed, url, err)
	}
	return nil
}

// CheckDependencies verifies that spotdl and ffmpeg can be executed.
//
// A missing ffmpeg is installed once through `spotdl --download-ffmpeg`.
func (s *SpotDL) CheckDependencies(ctx context.Context) error {
	if err := run(ctx, s.Binary, "--version"); err != nil {
		return fmt.Errorf("%w: %s is not installed (pip install spotdl): %v", shared.ErrMissingDependency, s.Binary, err)
	}
	s.logger.Debug("downloader available", "binary", s.Binary)

	if err := run(ctx, s.FFmpeg, "-version"); err == nil {
		s.logger.Debug("ffmpeg available", "binary", s.FFmpeg)
		return nil
	}

	s.logger.Warn("ffmpeg not found, installing with spotdl --download-ffmpeg")
	if err := run(ctx, s.Binary, "--download-ffmpeg"); err != nil {
		return fmt.Errorf("%w: ffmpeg could not be installed: %v", shared.ErrMissingDependency, err)
	}
	s.logger.Info("ffmpeg installed")
	return nil
}

// run executes name with args and folds trimmed combined output into the error.
func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		trimmedOutput := strings.TrimSpace(string(output))
		if trimmedOutput == "" {
			return err
		}
		return fmt.Errorf("%w: %s", err, lastLines(trimmedOutput, 5))
	}
	return nil
}

// lastLines keeps the tail of noisy downloader output.
func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
