// Package extractor is the boundary to the external media extraction tool.
// The rest of the service only sees the Client interface; the concrete
// implementation drives yt-dlp through github.com/lrstanley/go-ytdlp.
package extractor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// ProgressStatus classifies callback events from the extraction tool.
type ProgressStatus string

const (
	ProgressDownloading ProgressStatus = "downloading"
	ProgressFinished    ProgressStatus = "finished"
)

// Progress is one byte-level progress event. TotalBytes is zero when the
// total size is unknown.
type Progress struct {
	Status          ProgressStatus
	DownloadedBytes int64
	TotalBytes      int64
}

// ProgressFunc receives Progress events during a download.
type ProgressFunc func(Progress)

// Metadata is the result of a metadata-only probe.
type Metadata struct {
	Title    string
	Uploader string
	Duration float64
}

// Error wraps any failure reported by the extraction tool.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Client is the extraction collaborator contract. Probe never writes a file;
// Download writes the converted audio at outputTemplate and reports progress
// through fn. Both return an error on any upstream failure.
type Client interface {
	Probe(ctx context.Context, url string) (*Metadata, error)
	Download(ctx context.Context, url, outputTemplate string, fn ProgressFunc) error
}

const progressCadence = 500 * time.Millisecond

// Service implements Client on top of yt-dlp.
type Service struct {
	logger      *slog.Logger
	cookiesFile string
}

// NewService creates a yt-dlp backed extraction client. cookiesFile is
// optional; when the file exists it is passed through for gated content.
func NewService(logger *slog.Logger, cookiesFile string) *Service {
	return &Service{logger: logger, cookiesFile: cookiesFile}
}

// EnsureInstalled resolves the yt-dlp binary, downloading it when absent.
func EnsureInstalled(ctx context.Context) error {
	_, err := ytdlp.Install(ctx, nil)
	return err
}

func (s *Service) Probe(ctx context.Context, url string) (*Metadata, error) {
	s.logger.Debug("probing metadata", "url", url)
	dl := ytdlp.New().
		Format("bestaudio").
		NoPlaylist().
		SkipDownload().
		DumpSingleJSON()
	s.applyCookies(dl)

	result, err := dl.Run(ctx, url)
	if err != nil {
		return nil, &Error{Op: "probe", Err: err}
	}

	info, err := result.GetExtractedInfo()
	if err != nil {
		return nil, &Error{Op: "probe", Err: err}
	}
	if len(info) == 0 {
		return nil, &Error{Op: "probe", Err: errors.New("extractor returned no metadata")}
	}

	meta := &Metadata{}
	if info[0].Title != nil {
		meta.Title = *info[0].Title
	}
	if info[0].Uploader != nil {
		meta.Uploader = *info[0].Uploader
	}
	if info[0].Duration != nil {
		meta.Duration = *info[0].Duration
	}
	return meta, nil
}

func (s *Service) Download(ctx context.Context, url, outputTemplate string, fn ProgressFunc) error {
	s.logger.Debug("starting download", "url", url, "output", outputTemplate)
	dl := ytdlp.New().
		Format("bestaudio").
		NoPlaylist().
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality("192K").
		ForceOverwrites().
		Output(outputTemplate)
	s.applyCookies(dl)

	if fn != nil {
		dl.ProgressFunc(progressCadence, func(update ytdlp.ProgressUpdate) {
			fn(translateProgress(update))
		})
	}

	if _, err := dl.Run(ctx, url); err != nil {
		return &Error{Op: "download", Err: err}
	}
	return nil
}

func (s *Service) applyCookies(dl *ytdlp.Command) {
	if s.cookiesFile == "" {
		return
	}
	if _, err := os.Stat(s.cookiesFile); err != nil {
		return
	}
	dl.Cookies(s.cookiesFile)
}

func translateProgress(update ytdlp.ProgressUpdate) Progress {
	p := Progress{
		Status:          ProgressDownloading,
		DownloadedBytes: int64(update.DownloadedBytes),
		TotalBytes:      int64(update.TotalBytes),
	}
	switch update.Status {
	case ytdlp.ProgressStatusFinished, ytdlp.ProgressStatusPostProcessing:
		p.Status = ProgressFinished
	}
	return p
}
