package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lrstanley/go-ytdlp"
	"github.com/sirupsen/logrus"

	"medidown/internal/model"
)

const progressInterval = 500 * time.Millisecond

// YTDLP drives the yt-dlp tool. It owns format-selector translation, retry
// of upstream failures, and resolution of the merged output file.
type YTDLP struct {
	attempts int
	backoff  time.Duration
}

// NewYTDLP builds the default extractor. attempts is the number of extra
// tries after the first failure; only upstream failures are retried.
func NewYTDLP(attempts int, backoff time.Duration) *YTDLP {
	if attempts < 0 {
		attempts = 0
	}
	return &YTDLP{attempts: attempts, backoff: backoff}
}

func (y *YTDLP) Fetch(ctx context.Context, req Request, onProgress ProgressFunc) (*Result, error) {
	dl := ytdlp.New().
		ForceOverwrites().
		RestrictFilenames().
		Output(filepath.Join(req.DestDir, req.TaskID+".%(ext)s"))

	switch req.Format {
	case model.FormatMP4:
		dl = dl.Format("mp4")
	case model.FormatMP3:
		dl = dl.ExtractAudio().AudioFormat("mp3")
	case model.FormatAudio:
		dl = dl.Format("bestaudio/best")
	default:
		dl = dl.Format("bv*+ba/b")
	}

	if req.CookiesFile != "" {
		dl = dl.Cookies(req.CookiesFile)
	}

	var title string
	dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
		percent := -1.0
		if update.TotalBytes > 0 {
			percent = float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100
		}

		speed := ""
		etaSec := -1
		if !update.Started.IsZero() {
			elapsed := time.Since(update.Started)
			if elapsed > 0 && update.DownloadedBytes > 0 {
				bps := float64(update.DownloadedBytes) / elapsed.Seconds()
				speed = humanize.Bytes(uint64(bps)) + "/s"
			}
		}
		if eta := update.ETA(); eta > 0 {
			etaSec = int(eta.Seconds())
		}

		if update.Info != nil && update.Info.Title != nil && *update.Info.Title != "" {
			title = *update.Info.Title
		}

		if percent >= 0 {
			onProgress(percent, speed, etaSec)
		}
	})

	result, err := y.runWithRetry(ctx, dl, req)
	if err != nil {
		return nil, err
	}

	path := y.resolveOutput(result, req)
	if path == "" {
		return nil, model.NewTaskError(model.KindProcessingFailure,
			"artifact not found after download", fmt.Errorf("no output file for task %s", req.TaskID))
	}

	return &Result{Path: path, Title: title}, nil
}

// runWithRetry retries upstream failures with a flat backoff, the same
// policy yt-dlp applies to fragment errors internally.
func (y *YTDLP) runWithRetry(ctx context.Context, dl *ytdlp.Command, req Request) (*ytdlp.Result, error) {
	var lastErr *model.TaskError

	for attempt := 0; attempt <= y.attempts; attempt++ {
		if attempt > 0 {
			logrus.WithFields(logrus.Fields{
				"task":    req.TaskID,
				"attempt": attempt + 1,
			}).Info("retrying download")

			select {
			case <-time.After(y.backoff):
			case <-ctx.Done():
				return nil, Classify(ctx.Err())
			}
		}

		result, err := dl.Run(ctx, req.URL)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, Classify(ctx.Err())
		}

		lastErr = Classify(err)
		if !Retryable(lastErr) {
			break
		}
	}

	return nil, lastErr
}

// resolveOutput finds the artifact path, preferring the tool's own report
// and falling back to a directory scan for the task id. The scan covers the
// merge case where the reported filename carries a pre-merge extension.
func (y *YTDLP) resolveOutput(result *ytdlp.Result, req Request) string {
	if result != nil {
		if info, err := result.GetExtractedInfo(); err == nil && len(info) > 0 {
			if info[0].Filename != nil {
				if _, statErr := os.Stat(*info[0].Filename); statErr == nil {
					return *info[0].Filename
				}
			}
		}
	}

	path, err := findFinalFile(req.DestDir, req.TaskID)
	if err != nil {
		return ""
	}
	return path
}

// findFinalFile returns the newest non-temporary file in dir whose name
// starts with prefix.
func findFinalFile(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var chosen string
	var newest time.Time
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if isTempFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if chosen == "" || info.ModTime().After(newest) {
			newest = info.ModTime()
			chosen = filepath.Join(dir, entry.Name())
		}
	}

	if chosen == "" {
		return "", fmt.Errorf("no file matching %q in %s", prefix, dir)
	}
	return chosen, nil
}

func isTempFile(name string) bool {
	for _, suffix := range []string{".part", ".ytdl", ".temp", ".aria2"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
