package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cliphub/backend/internal/models"
)

type fakeSubscriptionStore struct {
	subs map[string]map[string]bool
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{subs: make(map[string]map[string]bool)}
}

func (s *fakeSubscriptionStore) Toggle(_ context.Context, subscriberID, channelID string) (bool, error) {
	channel := s.subs[channelID]
	if channel == nil {
		channel = make(map[string]bool)
		s.subs[channelID] = channel
	}
	if channel[subscriberID] {
		delete(channel, subscriberID)
		return false, nil
	}
	channel[subscriberID] = true
	return true, nil
}

func (s *fakeSubscriptionStore) Subscribers(_ context.Context, channelID string) ([]models.SubscriberView, error) {
	var out []models.SubscriberView
	for subscriberID := range s.subs[channelID] {
		out = append(out, models.SubscriberView{Username: subscriberID})
	}
	return out, nil
}

func (s *fakeSubscriptionStore) SubscribedChannels(_ context.Context, subscriberID string) ([]models.ChannelView, error) {
	var out []models.ChannelView
	for channelID, channel := range s.subs {
		if channel[subscriberID] {
			out = append(out, models.ChannelView{ID: channelID})
		}
	}
	return out, nil
}

func TestSubscriptionHandlerToggle(t *testing.T) {
	store := newFakeSubscriptionStore()
	handler := SubscriptionHandler{Subscriptions: store}

	toggle := func() (bool, int) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/c/channel-1", nil)
		req = withChiParams(req, map[string]string{"channelId": "channel-1"})
		req = requestWithUser(req, models.User{ID: "user-1"})
		rec := httptest.NewRecorder()
		handler.Toggle(rec, req)

		var payload struct {
			Subscribed bool `json:"subscribed"`
		}
		decodeEnvelope(t, rec, &payload)
		return payload.Subscribed, rec.Code
	}

	subscribed, code := toggle()
	if code != http.StatusOK || !subscribed {
		t.Fatalf("expected first toggle to subscribe (status %d subscribed %v)", code, subscribed)
	}

	subscribed, code = toggle()
	if code != http.StatusOK || subscribed {
		t.Fatalf("expected second toggle to unsubscribe (status %d subscribed %v)", code, subscribed)
	}
}

func TestSubscriptionHandlerRejectsSelfSubscribe(t *testing.T) {
	handler := SubscriptionHandler{Subscriptions: newFakeSubscriptionStore()}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/c/user-1", nil)
	req = withChiParams(req, map[string]string{"channelId": "user-1"})
	req = requestWithUser(req, models.User{ID: "user-1"})
	rec := httptest.NewRecorder()

	handler.Toggle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestSubscriptionHandlerSubscribers(t *testing.T) {
	store := newFakeSubscriptionStore()
	store.subs["channel-1"] = map[string]bool{"user-1": true, "user-2": true}
	handler := SubscriptionHandler{Subscriptions: store}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/c/channel-1", nil)
	req = withChiParams(req, map[string]string{"channelId": "channel-1"})
	req = requestWithUser(req, models.User{ID: "viewer"})
	rec := httptest.NewRecorder()

	handler.Subscribers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var subscribers []models.SubscriberView
	decodeEnvelope(t, rec, &subscribers)
	if len(subscribers) != 2 {
		t.Fatalf("expected 2 subscribers got %d", len(subscribers))
	}
}
