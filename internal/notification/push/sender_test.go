package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"sync"
	"testing"

	"painel_leads_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu      sync.Mutex
	subs    map[uuid.UUID][]Subscription
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{subs: make(map[uuid.UUID][]Subscription)}
}

func (s *fakeStore) add(userID uuid.UUID, endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[userID] = append(s.subs[userID], Subscription{ID: uuid.New(), UserID: userID, Endpoint: endpoint})
}

func (s *fakeStore) ListByUser(_ context.Context, userID uuid.UUID) ([]Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[userID], nil
}

func (s *fakeStore) DeleteByEndpoint(_ context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, endpoint)
	return nil
}

type staticPushConfig struct {
	url string
	key string
}

func (c staticPushConfig) GetPushGatewayURL() string { return c.url }
func (c staticPushConfig) GetPushGatewayKey() string { return c.key }
func (c staticPushConfig) IsPushEnabled() bool       { return c.url != "" }

func TestSendToUserDeliversEverySubscriptionThroughGateway(t *testing.T) {
	var mu sync.Mutex
	var endpoints []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/send" {
			t.Errorf("path = %q, want /send", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer chave-teste" {
			t.Errorf("Authorization = %q", got)
		}
		var req gatewayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode gateway request: %v", err)
		}
		mu.Lock()
		endpoints = append(endpoints, req.Endpoint)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := newFakeStore()
	userID := uuid.New()
	store.add(userID, "device-token-a")
	store.add(userID, "device-token-b")

	sender := NewSender(staticPushConfig{url: srv.URL, key: "chave-teste"}, store, logger.New("test"))
	if err := sender.SendToUser(context.Background(), userID, Message{Title: "t", Body: "b"}); err != nil {
		t.Fatalf("SendToUser() error = %v", err)
	}
	sort.Strings(endpoints)
	want := []string{"device-token-a", "device-token-b"}
	if !reflect.DeepEqual(endpoints, want) {
		t.Errorf("delivered endpoints = %v, want %v", endpoints, want)
	}
}

func TestSendToUserRemovesGoneEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	store := newFakeStore()
	userID := uuid.New()
	endpoint := "device-token-stale"
	store.add(userID, endpoint)

	sender := NewSender(staticPushConfig{url: srv.URL}, store, logger.New("test"))
	if err := sender.SendToUser(context.Background(), userID, Message{Title: "t", Body: "b"}); err != nil {
		t.Fatalf("SendToUser() error = %v, stale endpoints are not failures", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != endpoint {
		t.Errorf("deleted = %v, want [%s]", store.deleted, endpoint)
	}
}

func TestSendToUserReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := newFakeStore()
	userID := uuid.New()
	store.add(userID, "device-token")

	sender := NewSender(staticPushConfig{url: srv.URL}, store, logger.New("test"))
	if err := sender.SendToUser(context.Background(), userID, Message{Title: "t", Body: "b"}); err == nil {
		t.Fatal("SendToUser() error = nil, want transport error")
	}
	if len(store.deleted) != 0 {
		t.Errorf("deleted = %v, want none on 500", store.deleted)
	}
}

func TestNilSenderIsNoOp(t *testing.T) {
	sender := NewSender(staticPushConfig{}, newFakeStore(), logger.New("test"))
	if sender.Enabled() {
		t.Fatal("Enabled() = true for unconfigured gateway")
	}
	if err := sender.SendToUser(context.Background(), uuid.New(), Message{}); err != nil {
		t.Fatalf("SendToUser() on nil sender error = %v", err)
	}
}

func TestSendToUserNoSubscriptionsIsNoOp(t *testing.T) {
	sender := NewSender(staticPushConfig{url: "http://localhost:1"}, newFakeStore(), logger.New("test"))
	if err := sender.SendToUser(context.Background(), uuid.New(), Message{Title: "t"}); err != nil {
		t.Fatalf("SendToUser() error = %v", err)
	}
}
