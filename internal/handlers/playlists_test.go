package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cliphub/backend/internal/models"
	"github.com/cliphub/backend/internal/repositories"
)

type fakePlaylistStore struct {
	playlists map[string]models.Playlist
	videos    map[string][]string
}

func newFakePlaylistStore() *fakePlaylistStore {
	return &fakePlaylistStore{playlists: make(map[string]models.Playlist), videos: make(map[string][]string)}
}

func (s *fakePlaylistStore) Create(_ context.Context, playlist models.Playlist) error {
	s.playlists[playlist.ID] = playlist
	return nil
}

func (s *fakePlaylistStore) ListForUser(_ context.Context, userID string) ([]models.PlaylistView, error) {
	var out []models.PlaylistView
	for _, playlist := range s.playlists {
		if playlist.OwnerID == userID {
			out = append(out, models.PlaylistView{ID: playlist.ID, Name: playlist.Name})
		}
	}
	return out, nil
}

func (s *fakePlaylistStore) FindByID(_ context.Context, id string) (models.PlaylistView, error) {
	playlist, ok := s.playlists[id]
	if !ok {
		return models.PlaylistView{}, repositories.ErrNotFound
	}
	return models.PlaylistView{ID: playlist.ID, Name: playlist.Name}, nil
}

func (s *fakePlaylistStore) UpdateOwned(_ context.Context, id, ownerID, name, description string) error {
	playlist, ok := s.playlists[id]
	if !ok || playlist.OwnerID != ownerID {
		return repositories.ErrNotFound
	}
	playlist.Name = name
	playlist.Description = description
	s.playlists[id] = playlist
	return nil
}

func (s *fakePlaylistStore) DeleteOwned(_ context.Context, id, ownerID string) error {
	playlist, ok := s.playlists[id]
	if !ok || playlist.OwnerID != ownerID {
		return repositories.ErrNotFound
	}
	delete(s.playlists, id)
	return nil
}

func (s *fakePlaylistStore) AddVideo(_ context.Context, playlistID, ownerID, videoID string) error {
	playlist, ok := s.playlists[playlistID]
	if !ok || playlist.OwnerID != ownerID {
		return repositories.ErrNotFound
	}
	for _, existing := range s.videos[playlistID] {
		if existing == videoID {
			return nil
		}
	}
	s.videos[playlistID] = append(s.videos[playlistID], videoID)
	return nil
}

func (s *fakePlaylistStore) RemoveVideo(_ context.Context, playlistID, ownerID, videoID string) error {
	playlist, ok := s.playlists[playlistID]
	if !ok || playlist.OwnerID != ownerID {
		return repositories.ErrNotFound
	}
	for i, existing := range s.videos[playlistID] {
		if existing == videoID {
			s.videos[playlistID] = append(s.videos[playlistID][:i], s.videos[playlistID][i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func TestPlaylistHandlerCreate(t *testing.T) {
	store := newFakePlaylistStore()
	handler := PlaylistHandler{Playlists: store}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/playlists",
		jsonBody(t, playlistRequest{Name: "Favorites"}))
	req = requestWithUser(req, models.User{ID: "user-1"})
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if len(store.playlists) != 1 {
		t.Fatalf("expected one playlist, got %d", len(store.playlists))
	}
}

func TestPlaylistHandlerAddVideoIdempotent(t *testing.T) {
	store := newFakePlaylistStore()
	store.playlists["pl-1"] = models.Playlist{ID: "pl-1", OwnerID: "user-1", Name: "Favorites"}
	handler := PlaylistHandler{Playlists: store}

	add := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/playlists/add/vid-1/pl-1", nil)
		req = withChiParams(req, map[string]string{"videoId": "vid-1", "playlistId": "pl-1"})
		req = requestWithUser(req, models.User{ID: "user-1"})
		rec := httptest.NewRecorder()
		handler.AddVideo(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := add(); rec.Code != http.StatusOK {
			t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
		}
	}

	if got := store.videos["pl-1"]; len(got) != 1 {
		t.Fatalf("expected video to appear once, got %v", got)
	}
}

func TestPlaylistHandlerAddVideoToForeignPlaylist(t *testing.T) {
	store := newFakePlaylistStore()
	store.playlists["pl-1"] = models.Playlist{ID: "pl-1", OwnerID: "owner"}
	handler := PlaylistHandler{Playlists: store}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/playlists/add/vid-1/pl-1", nil)
	req = withChiParams(req, map[string]string{"videoId": "vid-1", "playlistId": "pl-1"})
	req = requestWithUser(req, models.User{ID: "intruder"})
	rec := httptest.NewRecorder()

	handler.AddVideo(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestPlaylistHandlerRemoveVideo(t *testing.T) {
	store := newFakePlaylistStore()
	store.playlists["pl-1"] = models.Playlist{ID: "pl-1", OwnerID: "user-1"}
	store.videos["pl-1"] = []string{"vid-1", "vid-2"}
	handler := PlaylistHandler{Playlists: store}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/playlists/remove/vid-1/pl-1", nil)
	req = withChiParams(req, map[string]string{"videoId": "vid-1", "playlistId": "pl-1"})
	req = requestWithUser(req, models.User{ID: "user-1"})
	rec := httptest.NewRecorder()

	handler.RemoveVideo(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if got := store.videos["pl-1"]; len(got) != 1 || got[0] != "vid-2" {
		t.Fatalf("expected vid-1 removed, got %v", got)
	}
}
