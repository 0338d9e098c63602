package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sync"
	"time"

	"github.com/cliphub/backend/internal/logging"
)

// Storage persists a media object and returns its public location.
type Storage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// VideoUpdater persists ingestion status updates for uploaded videos.
type VideoUpdater interface {
	MarkMediaReady(ctx context.Context, id, mediaURL, thumbnailURL string, duration float64) error
	MarkMediaFailed(ctx context.Context, id string) error
}

// Upload describes a video's staged files awaiting transfer to object storage.
type Upload struct {
	VideoID       string
	MediaPath     string
	ThumbnailPath string
	Duration      float64
}

// IngestorConfig controls the concurrency characteristics of the ingestor.
type IngestorConfig struct {
	QueueSize int
	Workers   int
}

// Ingestor asynchronously moves staged upload files into object storage and
// flips the owning video to ready or failed.
type Ingestor struct {
	storage Storage
	updater VideoUpdater
	logger  *slog.Logger

	jobs   chan Upload
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

var (
	// ErrQueueFull is returned by Enqueue when every worker is busy and the
	// backlog is at capacity. Callers should surface it as backpressure.
	ErrQueueFull = errors.New("media ingest queue full")

	errIngestorClosed = errors.New("media ingestor closed")
)

// NewIngestor constructs a background worker pool that persists media files.
func NewIngestor(storage Storage, updater VideoUpdater, cfg IngestorConfig, logger *slog.Logger) *Ingestor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	ing := &Ingestor{
		storage: storage,
		updater: updater,
		logger:  logger,
		jobs:    make(chan Upload, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	ing.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go ing.worker()
	}

	return ing
}

// Enqueue schedules media persistence for the supplied upload.
func (i *Ingestor) Enqueue(ctx context.Context, upload Upload) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return errIngestorClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return errIngestorClosed
	case i.jobs <- upload:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (i *Ingestor) Shutdown(ctx context.Context) error {
	i.once.Do(func() {
		i.cancel()
		close(i.jobs)
	})

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (i *Ingestor) worker() {
	defer i.wg.Done()

	for {
		select {
		case <-i.ctx.Done():
			return
		case job, ok := <-i.jobs:
			if !ok {
				return
			}
			i.handleJob(job)
		}
	}
}

func (i *Ingestor) handleJob(job Upload) {
	if i.storage == nil || i.updater == nil {
		i.logger.Error("media ingestor missing dependencies", "hasStorage", i.storage != nil, "hasUpdater", i.updater != nil)
		return
	}

	defer func() {
		_ = os.Remove(job.MediaPath)
		if job.ThumbnailPath != "" {
			_ = os.Remove(job.ThumbnailPath)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ctx, span := logging.StartSpan(logging.WithLogger(ctx, i.logger.With("videoId", job.VideoID)), "media.ingest")
	defer span.End()

	mediaURL, err := i.saveFile(ctx, job.VideoID, "media", job.MediaPath)
	if err != nil {
		i.logger.Error("media ingestion failed", "videoId", job.VideoID, "error", err)
		i.recordFailure(job.VideoID)
		return
	}

	var thumbnailURL string
	if job.ThumbnailPath != "" {
		thumbnailURL, err = i.saveFile(ctx, job.VideoID, "thumbnail", job.ThumbnailPath)
		if err != nil {
			i.logger.Error("thumbnail ingestion failed", "videoId", job.VideoID, "error", err)
			i.recordFailure(job.VideoID)
			return
		}
	}

	if err := i.updater.MarkMediaReady(ctx, job.VideoID, mediaURL, thumbnailURL, job.Duration); err != nil {
		i.logger.Error("mark media ready", "videoId", job.VideoID, "error", err)
		i.recordFailure(job.VideoID)
	}
}

func (i *Ingestor) saveFile(ctx context.Context, videoID, kind, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open staged file: %w", err)
	}
	defer file.Close()

	key := path.Join(videoID, kind+path.Ext(localPath))
	location, err := i.storage.Save(ctx, key, file)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", kind, err)
	}
	return location, nil
}

func (i *Ingestor) recordFailure(videoID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := i.updater.MarkMediaFailed(ctx, videoID); err != nil {
		i.logger.Error("record media failure", "videoId", videoID, "error", err)
	}
}
