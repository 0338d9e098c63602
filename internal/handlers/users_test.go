package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/cliphub/backend/internal/auth"
	"github.com/cliphub/backend/internal/middleware"
	"github.com/cliphub/backend/internal/models"
	"github.com/cliphub/backend/internal/repositories"
)

type fakeUserStore struct {
	users   map[string]models.User
	history map[string][]string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.User), history: make(map[string][]string)}
}

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *fakeUserStore) FindByLogin(_ context.Context, identifier string) (models.User, error) {
	for _, user := range s.users {
		if user.Username == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *fakeUserStore) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return s.FindByLogin(ctx, username)
}

func (s *fakeUserStore) UpdateProfile(_ context.Context, id, fullName, email string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.FullName = fullName
	user.Email = email
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.Password = passwordHash
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) UpdateAvatar(_ context.Context, id, avatarURL string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.AvatarURL = avatarURL
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) UpdateCoverImage(_ context.Context, id, coverImageURL string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.CoverImageURL = coverImageURL
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) ChannelProfile(_ context.Context, username, _ string) (models.ChannelProfile, error) {
	for _, user := range s.users {
		if user.Username == username {
			return models.ChannelProfile{PublicUser: user.Public()}, nil
		}
	}
	return models.ChannelProfile{}, repositories.ErrNotFound
}

func (s *fakeUserStore) ChannelStats(_ context.Context, _ string) (models.ChannelStats, error) {
	return models.ChannelStats{}, nil
}

func (s *fakeUserStore) AddToWatchHistory(_ context.Context, userID, videoID string) error {
	s.history[userID] = append(s.history[userID], videoID)
	return nil
}

func (s *fakeUserStore) WatchHistory(_ context.Context, _ string) ([]models.WatchHistoryItem, error) {
	return nil, nil
}

type fakeMediaStorage struct {
	saved map[string][]byte
}

func newFakeMediaStorage() *fakeMediaStorage {
	return &fakeMediaStorage{saved: make(map[string][]byte)}
}

func (s *fakeMediaStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.saved[name] = data
	return "https://media.test/" + name, nil
}

func newTestSessionManager(t *testing.T) (*auth.Manager, *auth.InMemorySessionStore) {
	t.Helper()
	store := auth.NewInMemorySessionStore()
	manager, err := auth.NewManager("handler-test-secret", time.Minute, time.Hour, store)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return manager, store
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	for name, filename := range files {
		part, err := writer.CreateFormFile(name, filename)
		if err != nil {
			t.Fatalf("create form file %s: %v", name, err)
		}
		fmt.Fprintf(part, "fake contents of %s", filename)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data any) apiResponse {
	t.Helper()
	raw := struct {
		StatusCode int             `json:"statusCode"`
		Data       json.RawMessage `json:"data"`
		Message    string          `json:"message"`
		Success    bool            `json:"success"`
	}{}
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("decode envelope data: %v", err)
		}
	}
	return apiResponse{StatusCode: raw.StatusCode, Message: raw.Message, Success: raw.Success}
}

func requestWithUser(req *http.Request, user models.User) *http.Request {
	return req.WithContext(middleware.WithUser(req.Context(), user))
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(data)
}

func TestUserHandlerRegister(t *testing.T) {
	store := newFakeUserStore()
	manager, _ := newTestSessionManager(t)
	images := newFakeMediaStorage()
	handler := UserHandler{Users: store, Sessions: manager, Images: images}

	body, contentType := multipartBody(t, map[string]string{
		"fullName": "Test User",
		"email":    "test@example.com",
		"username": "testuser",
		"password": "supersafe1",
	}, map[string]string{
		"avatar": "avatar.png",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var created models.PublicUser
	envelope := decodeEnvelope(t, rec, &created)
	if !envelope.Success {
		t.Fatalf("expected success envelope, got %+v", envelope)
	}
	if created.Username != "testuser" {
		t.Fatalf("expected username testuser got %q", created.Username)
	}
	if !strings.HasPrefix(created.AvatarURL, "https://media.test/") {
		t.Fatalf("expected stored avatar URL, got %q", created.AvatarURL)
	}

	stored, err := store.FindByLogin(context.Background(), "testuser")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("supersafe1")) != nil {
		t.Fatal("stored password is not hashed")
	}
}

func TestUserHandlerRegisterShortCredentials(t *testing.T) {
	store := newFakeUserStore()
	manager, _ := newTestSessionManager(t)
	handler := UserHandler{Users: store, Sessions: manager, Images: newFakeMediaStorage()}

	// Only non-empty fields are required; short usernames and passwords are
	// accepted.
	body, contentType := multipartBody(t, map[string]string{
		"fullName": "A B",
		"email":    "a@b.com",
		"username": "ab",
		"password": "x",
	}, map[string]string{
		"avatar": "avatar.png",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if _, err := store.FindByLogin(context.Background(), "ab"); err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
}

func TestUserHandlerRegisterRequiresAvatar(t *testing.T) {
	handler := UserHandler{Users: newFakeUserStore(), Images: newFakeMediaStorage()}

	body, contentType := multipartBody(t, map[string]string{
		"fullName": "Test User",
		"email":    "test@example.com",
		"username": "testuser",
		"password": "supersafe1",
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestUserHandlerRegisterDuplicate(t *testing.T) {
	store := newFakeUserStore()
	store.users["existing"] = models.User{ID: "existing", Username: "testuser", Email: "test@example.com"}
	handler := UserHandler{Users: store, Images: newFakeMediaStorage()}

	body, contentType := multipartBody(t, map[string]string{
		"fullName": "Test User",
		"email":    "test@example.com",
		"username": "testuser",
		"password": "supersafe1",
	}, map[string]string{"avatar": "avatar.png"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d got %d", http.StatusConflict, rec.Code)
	}
}

func seedUser(t *testing.T, store *fakeUserStore, id, username, password string) models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{
		ID:       id,
		Username: username,
		Email:    username + "@example.com",
		Password: string(hashed),
		FullName: "Seed User",
	}
	store.users[id] = user
	return user
}

func TestUserHandlerLogin(t *testing.T) {
	store := newFakeUserStore()
	manager, sessions := newTestSessionManager(t)
	seedUser(t, store, "user-1", "alice", "password123")
	handler := UserHandler{Users: store, Sessions: manager}

	body, err := json.Marshal(loginRequest{Username: "alice", Password: "password123"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp loginResponse
	decodeEnvelope(t, rec, &resp)
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("expected tokens to be issued, got %+v", resp)
	}
	if resp.User.Username != "alice" {
		t.Fatalf("expected sanitized user in response, got %+v", resp.User)
	}
	if !sessions.Has(resp.RefreshToken) {
		t.Fatal("expected session to be persisted")
	}

	cookies := rec.Result().Cookies()
	var names []string
	for _, cookie := range cookies {
		names = append(names, cookie.Name)
		if !cookie.HttpOnly {
			t.Fatalf("expected cookie %s to be http-only", cookie.Name)
		}
	}
	for _, want := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		found := false
		for _, name := range names {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected cookie %s to be set, got %v", want, names)
		}
	}
}

func TestUserHandlerLoginWrongPassword(t *testing.T) {
	store := newFakeUserStore()
	manager, _ := newTestSessionManager(t)
	seedUser(t, store, "user-1", "alice", "password123")
	handler := UserHandler{Users: store, Sessions: manager}

	body, _ := json.Marshal(loginRequest{Username: "alice", Password: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestUserHandlerRefreshRotation(t *testing.T) {
	manager, sessions := newTestSessionManager(t)
	handler := UserHandler{Sessions: manager}

	issued, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	body, _ := json.Marshal(refreshRequest{RefreshToken: issued.RefreshToken})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.RefreshToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var rotated models.SessionTokens
	decodeEnvelope(t, rec, &rotated)
	if rotated.RefreshToken == issued.RefreshToken {
		t.Fatal("expected refresh token to rotate")
	}
	if sessions.Has(issued.RefreshToken) {
		t.Fatal("expected consumed refresh token to be removed")
	}

	// Replaying the consumed token must fail.
	body, _ = json.Marshal(refreshRequest{RefreshToken: issued.RefreshToken})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", bytes.NewReader(body))
	rec = httptest.NewRecorder()

	handler.RefreshToken(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d on replay got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestUserHandlerRefreshFromCookie(t *testing.T) {
	manager, _ := newTestSessionManager(t)
	handler := UserHandler{Sessions: manager}

	issued, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: issued.RefreshToken})
	rec := httptest.NewRecorder()

	handler.RefreshToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestUserHandlerChangePasswordRevokesSessions(t *testing.T) {
	store := newFakeUserStore()
	manager, sessions := newTestSessionManager(t)
	user := seedUser(t, store, "user-1", "alice", "password123")
	handler := UserHandler{Users: store, Sessions: manager}

	issued, err := manager.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	body, _ := json.Marshal(changePasswordRequest{OldPassword: "password123", NewPassword: "newpassword1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/change-password", bytes.NewReader(body))
	req = requestWithUser(req, user)
	rec := httptest.NewRecorder()

	handler.ChangePassword(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if sessions.Has(issued.RefreshToken) {
		t.Fatal("expected all sessions to be revoked after password change")
	}

	updated := store.users[user.ID]
	if bcrypt.CompareHashAndPassword([]byte(updated.Password), []byte("newpassword1")) != nil {
		t.Fatal("expected password to be re-hashed")
	}
}

func TestUserHandlerLogoutRevokesPresentedSession(t *testing.T) {
	store := newFakeUserStore()
	manager, sessions := newTestSessionManager(t)
	user := seedUser(t, store, "user-1", "alice", "password123")
	handler := UserHandler{Users: store, Sessions: manager}

	kept, err := manager.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	revoked, err := manager.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: revoked.RefreshToken})
	req = requestWithUser(req, user)
	rec := httptest.NewRecorder()

	handler.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if sessions.Has(revoked.RefreshToken) {
		t.Fatal("expected presented session to be revoked")
	}
	if !sessions.Has(kept.RefreshToken) {
		t.Fatal("expected other device sessions to survive logout")
	}
}

func TestUserHandlerCurrentUserSanitizes(t *testing.T) {
	user := models.User{ID: "user-1", Username: "alice", Email: "alice@example.com", Password: "hash"}
	handler := UserHandler{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req = requestWithUser(req, user)
	rec := httptest.NewRecorder()

	handler.CurrentUser(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if strings.Contains(rec.Body.String(), "hash") {
		t.Fatal("expected password hash to be omitted from response")
	}
}
