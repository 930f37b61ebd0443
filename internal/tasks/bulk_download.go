package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/spotsync/internal/formatter"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/services"
	"github.com/desertthunder/spotsync/internal/shared"
	"golang.org/x/time/rate"
)

// ManifestName is the file written into the output directory after a bulk download.
const ManifestName = "download_manifest.json"

// BulkDownloadOpts contains configuration for bulk playlist downloads.
type BulkDownloadOpts struct {
	OutputDir  string  // Base output directory (default: engine root)
	NumWorkers int     // Concurrent downloader processes (default: 3)
	RateLimit  float64 // Downloader starts per second (default: 1)
}

// PlaylistDownloadResult is the outcome for a single playlist.
type PlaylistDownloadResult struct {
	PlaylistID   string
	PlaylistName string
	URL          string
	Folder       string
	Success      bool
	Skipped      bool
	Error        error
}

// BulkDownloadResult contains all data from a bulk download.
type BulkDownloadResult struct {
	Run                 *models.SyncRun
	TotalPlaylists      int
	SuccessfulDownloads int
	FailedDownloads     int
	Skipped             int
	OutputDirectory     string
	ManifestPath        string
	Results             []PlaylistDownloadResult
}

type downloadJob struct {
	playlist models.Playlist
	url      string
	folder   string
}

// BulkDownload downloads every playlist into its own folder with a pool of downloader processes.
//
// Each playlist's folder is the sanitised playlist name under the output directory. Playlists without a
// canonical URL are skipped. A failing download affects only its own playlist. Downloader starts are
// paced by a rate limiter and a manifest summarising the results is written to the output directory.
func (e *PlaylistEngine) BulkDownload(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	playlists []models.Playlist,
	opts BulkDownloadOpts,
) (*BulkDownloadResult, error) {
	if e.downloader == nil {
		return nil, fmt.Errorf("%w: downloader not initialized", shared.ErrServiceUnavailable)
	}
	if len(playlists) == 0 {
		return nil, shared.ErrNoSelection
	}

	if opts.OutputDir == "" {
		opts.OutputDir = e.root
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	run := &models.SyncRun{
		ID:        shared.GenerateID(),
		Kind:      models.RunKindDownload,
		StartedAt: time.Now(),
	}
	result := &BulkDownloadResult{
		Run:             run,
		TotalPlaylists:  len(playlists),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistDownloadResult, 0, len(playlists)),
	}
	logger := e.logger.With("run_id", run.ID)

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan downloadJob, len(playlists))
	results := make(chan PlaylistDownloadResult, len(playlists))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.downloadWorker(ctx, &wg, limiter, jobs, results)
	}

	go func() {
		defer close(jobs)
		for _, p := range playlists {
			if ctx.Err() != nil {
				return
			}

			folder, err := shared.PlaylistFolder(opts.OutputDir, p.Name)
			if err != nil {
				logger.Warn("unsafe playlist folder, skipping", "playlist", p.Name, "error", err)
				results <- PlaylistDownloadResult{PlaylistID: p.ID, PlaylistName: p.Name, Skipped: true}
				continue
			}
			url := p.URL
			if url == "" && p.ID != "" {
				url = services.PlaylistURL(p.ID)
			}

			if url == "" {
				logger.Warn("playlist has no URL, skipping", "playlist", p.Name)
				results <- PlaylistDownloadResult{
					PlaylistID:   p.ID,
					PlaylistName: p.Name,
					Folder:       folder,
					Skipped:      true,
				}
				continue
			}

			jobs <- downloadJob{playlist: p, url: url, folder: folder}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		action := models.SyncAction{
			PlaylistID: res.PlaylistID,
			Action:     models.ActionDownloadPlaylist,
			Target:     res.URL,
		}

		switch {
		case res.Skipped:
			result.Skipped++
			e.sendProgress(prog, downloadSkippedUpdate(completed, len(playlists), res.PlaylistName))
			continue
		case res.Success:
			result.SuccessfulDownloads++
			e.sendProgress(prog, downloadCompletedUpdate(completed, len(playlists), res.PlaylistName))
		default:
			result.FailedDownloads++
			action.Error = res.Error.Error()
			e.sendProgress(prog, downloadFailedUpdate(completed, len(playlists), res.PlaylistName, res.Error))
		}
		run.Actions = append(run.Actions, action)
	}

	run.Playlists = len(result.Results) - result.Skipped
	run.Failures = result.FailedDownloads
	run.FinishedAt = time.Now()
	switch {
	case ctx.Err() != nil:
		run.Status = models.RunStatusFailed
		run.Error = ctx.Err().Error()
	case result.FailedDownloads > 0:
		run.Status = models.RunStatusPartial
	default:
		run.Status = models.RunStatusSucceeded
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestName)
	if err := formatter.WriteDownloadManifest(result.Manifest(), manifestPath); err != nil {
		e.finishRun(run)
		return result, fmt.Errorf("download completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	logger.Info("bulk download finished",
		"status", run.Status, "successful", result.SuccessfulDownloads,
		"failed", result.FailedDownloads, "skipped", result.Skipped)
	e.finishRun(run)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// downloadWorker runs the downloader for jobs until the channel closes or ctx is done.
func (e *PlaylistEngine) downloadWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan downloadJob,
	results chan<- PlaylistDownloadResult,
) {
	defer wg.Done()

	for job := range jobs {
		res := PlaylistDownloadResult{
			PlaylistID:   job.playlist.ID,
			PlaylistName: job.playlist.Name,
			URL:          job.url,
			Folder:       job.folder,
		}

		if err := limiter.Wait(ctx); err != nil {
			res.Error = err
			results <- res
			continue
		}

		if err := os.MkdirAll(job.folder, 0755); err != nil {
			res.Error = fmt.Errorf("failed to create playlist folder: %w", err)
			results <- res
			continue
		}

		e.logger.Info("downloading playlist", "playlist", job.playlist.Name, "folder", job.folder)
		if err := e.downloader.Download(ctx, job.url, job.folder); err != nil {
			e.logger.Error("playlist download failed", "playlist", job.playlist.Name, "error", err)
			res.Error = err
		} else {
			res.Success = true
		}
		results <- res
	}
}

// Manifest converts the result into the manifest written next to the downloads.
func (r *BulkDownloadResult) Manifest() formatter.DownloadManifest {
	m := formatter.DownloadManifest{
		OutputDirectory: r.OutputDirectory,
		TotalPlaylists:  r.TotalPlaylists,
		Successful:      r.SuccessfulDownloads,
		Failed:          r.FailedDownloads,
		Skipped:         r.Skipped,
		Playlists:       make([]formatter.ManifestEntry, 0, len(r.Results)),
	}
	if r.Run != nil {
		m.GeneratedAt = r.Run.FinishedAt
	}

	for _, res := range r.Results {
		entry := formatter.ManifestEntry{
			PlaylistID:   res.PlaylistID,
			PlaylistName: res.PlaylistName,
			URL:          res.URL,
			Folder:       res.Folder,
		}
		switch {
		case res.Skipped:
			entry.Status = "skipped"
		case res.Success:
			entry.Status = "success"
		default:
			entry.Status = "failed"
			if res.Error != nil {
				entry.Error = res.Error.Error()
			}
		}
		m.Playlists = append(m.Playlists, entry)
	}
	return m
}
