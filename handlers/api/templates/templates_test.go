package templates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"templatecanvas/core"

	"github.com/go-chi/chi/v5"
)

// Mock template store for testing
type mockTemplateStore struct {
	mu        sync.RWMutex
	templates map[string]*core.Template
	listErr   error
	getErr    error
	deleteErr error
}

func newMockStore() *mockTemplateStore {
	return &mockTemplateStore{
		templates: make(map[string]*core.Template),
	}
}

func (m *mockTemplateStore) List(ctx context.Context) ([]*core.Template, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var list []*core.Template
	for _, t := range m.templates {
		list = append(list, t.Meta())
	}
	return list, nil
}

func (m *mockTemplateStore) Get(ctx context.Context, id string) (*core.Template, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, core.ErrTemplateNotFound
	}
	return t.Clone(), nil
}

func (m *mockTemplateStore) Save(ctx context.Context, t *core.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.ID] = t.Clone()
	return nil
}

func (m *mockTemplateStore) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return core.ErrTemplateNotFound
	}
	delete(m.templates, id)
	return nil
}

func routerWith(store core.TemplateStore) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/api/templates", HandleList(store))
	r.Get("/api/templates/{id}", HandleGet(store))
	r.Delete("/api/templates/{id}", HandleDelete(store))
	return r
}

func TestHandleList_Empty(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/templates", nil)

	routerWith(newMockStore()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	var list []*core.Template
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if list == nil {
		t.Error("Expected an empty JSON array, got null")
	}
}

func TestHandleList_Success(t *testing.T) {
	store := newMockStore()
	store.templates["t1"] = &core.Template{ID: "t1", Name: "Invoice"}
	store.templates["t2"] = &core.Template{ID: "t2", Name: "Flyer"}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/templates", nil)
	routerWith(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	var list []*core.Template
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("Expected 2 templates, got %d", len(list))
	}
}

func TestHandleList_StoreError(t *testing.T) {
	store := newMockStore()
	store.listErr = errors.New("backend down")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/templates", nil)
	routerWith(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestHandleGet_Success(t *testing.T) {
	store := newMockStore()
	store.templates["t1"] = &core.Template{ID: "t1", Name: "Invoice", Thumbnail: "data:..."}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/templates/t1", nil)
	routerWith(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	var got core.Template
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.ID != "t1" || got.Name != "Invoice" {
		t.Errorf("Unexpected template: %+v", got)
	}
	if got.Thumbnail == "" {
		t.Error("Get should return the full template, thumbnail included")
	}
}

func TestHandleGet_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/templates/missing", nil)
	routerWith(newMockStore()).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleDelete_Success(t *testing.T) {
	store := newMockStore()
	store.templates["t1"] = &core.Template{ID: "t1"}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/templates/t1", nil)
	routerWith(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusNoContent)
	}
	if len(store.templates) != 0 {
		t.Error("Template not deleted from store")
	}
}

func TestHandleDelete_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/templates/missing", nil)
	routerWith(newMockStore()).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}
