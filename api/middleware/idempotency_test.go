package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefronthq/storefront-backend/pkg/enums"
	pkgredis "github.com/storefronthq/storefront-backend/pkg/redis"
)

type memIdempotencyStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{values: map[string]string{}}
}

func (s *memIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return "", pkgredis.ErrNil
	}
	return value, nil
}

func (s *memIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *memIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (s *memIdempotencyStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func newOrdersRouter(store pkgredis.IdempotencyStore, handler http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.With(Idempotency(store, nil)).Post("/api/orders", handler)
	return r
}

func placeRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	principal := Principal{Kind: enums.PrincipalKindUser, ID: uuid.New()}
	return req.WithContext(WithPrincipal(req.Context(), principal))
}

func TestIdempotencyRequiresKey(t *testing.T) {
	router := newOrdersRouter(newMemIdempotencyStore(), func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, placeRequest("", `{"items":[]}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newMemIdempotencyStore()
	calls := 0
	router := newOrdersRouter(store, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	})

	principal := Principal{Kind: enums.PrincipalKindUser, ID: uuid.New()}
	body := `{"items":[{"product_id":"x","quantity":1}]}`

	first := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	first.Header.Set("Idempotency-Key", "key-1")
	first = first.WithContext(WithPrincipal(first.Context(), principal))
	firstRec := httptest.NewRecorder()
	router.ServeHTTP(firstRec, first)
	require.Equal(t, http.StatusCreated, firstRec.Code)

	second := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	second.Header.Set("Idempotency-Key", "key-1")
	second = second.WithContext(WithPrincipal(second.Context(), principal))
	secondRec := httptest.NewRecorder()
	router.ServeHTTP(secondRec, second)

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, secondRec.Code)
	assert.JSONEq(t, `{"id":"abc"}`, secondRec.Body.String())
	assert.Equal(t, "application/json", secondRec.Header().Get("Content-Type"))
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newMemIdempotencyStore()
	router := newOrdersRouter(store, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	})

	principal := Principal{Kind: enums.PrincipalKindUser, ID: uuid.New()}

	first := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"items":[{"quantity":1}]}`))
	first.Header.Set("Idempotency-Key", "key-1")
	first = first.WithContext(WithPrincipal(first.Context(), principal))
	router.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"items":[{"quantity":2}]}`))
	second.Header.Set("Idempotency-Key", "key-1")
	second = second.WithContext(WithPrincipal(second.Context(), principal))
	secondRec := httptest.NewRecorder()
	router.ServeHTTP(secondRec, second)

	assert.Equal(t, http.StatusConflict, secondRec.Code)
	assert.Contains(t, secondRec.Body.String(), "IDEMPOTENCY_KEY_REUSED")
}

func TestIdempotencyScopesKeysPerPrincipal(t *testing.T) {
	store := newMemIdempotencyStore()
	calls := 0
	router := newOrdersRouter(store, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	body := `{"items":[{"quantity":1}]}`
	for i := 0; i < 2; i++ {
		req := placeRequest("shared-key", body)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	assert.Equal(t, 2, calls)
}

func TestIdempotencyIgnoresUnguardedRoutes(t *testing.T) {
	store := newMemIdempotencyStore()
	r := chi.NewRouter()
	r.With(Idempotency(store, nil)).Get("/api/products", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.values)
}
