package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recordingStorage struct {
	mu    sync.Mutex
	saved map[string][]byte
	err   error
}

func newRecordingStorage() *recordingStorage {
	return &recordingStorage{saved: make(map[string][]byte)}
}

func (s *recordingStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.saved[name] = data
	s.mu.Unlock()
	return "https://media.test/" + name, nil
}

type recordingUpdater struct {
	mu     sync.Mutex
	ready  []string
	failed []string
	urls   map[string][2]string
	done   chan struct{}
}

func newRecordingUpdater() *recordingUpdater {
	return &recordingUpdater{urls: make(map[string][2]string), done: make(chan struct{}, 4)}
}

func (u *recordingUpdater) MarkMediaReady(_ context.Context, videoID, mediaURL, thumbnailURL string, _ float64) error {
	u.mu.Lock()
	u.ready = append(u.ready, videoID)
	u.urls[videoID] = [2]string{mediaURL, thumbnailURL}
	u.mu.Unlock()
	u.done <- struct{}{}
	return nil
}

func (u *recordingUpdater) MarkMediaFailed(_ context.Context, videoID string) error {
	u.mu.Lock()
	u.failed = append(u.failed, videoID)
	u.mu.Unlock()
	u.done <- struct{}{}
	return nil
}

func (u *recordingUpdater) wait(t *testing.T) {
	t.Helper()
	select {
	case <-u.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ingestor to finish job")
	}
}

func stageTempFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write staged file: %v", err)
	}
	return path
}

func TestIngestorPersistsUpload(t *testing.T) {
	storage := newRecordingStorage()
	updater := newRecordingUpdater()
	ingestor := NewIngestor(storage, updater, IngestorConfig{QueueSize: 4, Workers: 1}, nil)

	mediaPath := stageTempFile(t, "videoFile.mp4", "media-bytes")
	thumbnailPath := stageTempFile(t, "thumbnail.jpg", "thumb-bytes")

	upload := Upload{VideoID: "vid-1", MediaPath: mediaPath, ThumbnailPath: thumbnailPath, Duration: 9.5}
	if err := ingestor.Enqueue(context.Background(), upload); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	updater.wait(t)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ingestor.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if len(updater.ready) != 1 || updater.ready[0] != "vid-1" {
		t.Fatalf("expected vid-1 marked ready, got ready=%v failed=%v", updater.ready, updater.failed)
	}

	urls := updater.urls["vid-1"]
	if urls[0] != "https://media.test/vid-1/media.mp4" {
		t.Fatalf("unexpected media URL %q", urls[0])
	}
	if urls[1] != "https://media.test/vid-1/thumbnail.jpg" {
		t.Fatalf("unexpected thumbnail URL %q", urls[1])
	}

	if string(storage.saved["vid-1/media.mp4"]) != "media-bytes" {
		t.Fatal("expected media bytes to reach storage")
	}

	// Staged files are cleaned up after the job completes.
	for _, path := range []string{mediaPath, thumbnailPath} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected staged file %s to be removed, err=%v", path, err)
		}
	}
}

func TestIngestorMarksFailureOnStorageError(t *testing.T) {
	storage := newRecordingStorage()
	storage.err = errors.New("bucket unavailable")
	updater := newRecordingUpdater()
	ingestor := NewIngestor(storage, updater, IngestorConfig{QueueSize: 4, Workers: 1}, nil)

	mediaPath := stageTempFile(t, "videoFile.mp4", "media-bytes")

	if err := ingestor.Enqueue(context.Background(), Upload{VideoID: "vid-1", MediaPath: mediaPath}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	updater.wait(t)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ingestor.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if len(updater.failed) != 1 || updater.failed[0] != "vid-1" {
		t.Fatalf("expected vid-1 marked failed, got ready=%v failed=%v", updater.ready, updater.failed)
	}
}

func TestIngestorEnqueueAfterShutdown(t *testing.T) {
	ingestor := NewIngestor(newRecordingStorage(), newRecordingUpdater(), IngestorConfig{QueueSize: 1, Workers: 1}, nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ingestor.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if err := ingestor.Enqueue(context.Background(), Upload{VideoID: "vid-1"}); err == nil {
		t.Fatal("expected enqueue after shutdown to fail")
	}
}

func TestIngestorRejectsWhenQueueFull(t *testing.T) {
	// No workers would drain instantly; block the single worker with a job
	// that waits on storage.
	block := make(chan struct{})
	storage := &blockingStorage{release: block}
	updater := newRecordingUpdater()
	ingestor := NewIngestor(storage, updater, IngestorConfig{QueueSize: 1, Workers: 1}, nil)

	first := stageTempFile(t, "a.mp4", "a")
	second := stageTempFile(t, "b.mp4", "b")
	third := stageTempFile(t, "c.mp4", "c")

	if err := ingestor.Enqueue(context.Background(), Upload{VideoID: "vid-1", MediaPath: first}); err != nil {
		t.Fatalf("enqueue first: %v", err)
	}

	// Wait until the worker picks up the first job so the queue slot frees.
	select {
	case <-storage.started():
	case <-time.After(5 * time.Second):
		t.Fatal("worker never started first job")
	}

	if err := ingestor.Enqueue(context.Background(), Upload{VideoID: "vid-2", MediaPath: second}); err != nil {
		t.Fatalf("enqueue second: %v", err)
	}
	if err := ingestor.Enqueue(context.Background(), Upload{VideoID: "vid-3", MediaPath: third}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	close(block)
	updater.wait(t)
	updater.wait(t)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ingestor.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

type blockingStorage struct {
	release   chan struct{}
	startOnce sync.Once
	startedCh chan struct{}
	mu        sync.Mutex
}

func (s *blockingStorage) started() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startedCh == nil {
		s.startedCh = make(chan struct{})
	}
	return s.startedCh
}

func (s *blockingStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	s.startOnce.Do(func() { close(s.started()) })
	<-s.release
	_, _ = io.ReadAll(r)
	return "https://media.test/" + name, nil
}
