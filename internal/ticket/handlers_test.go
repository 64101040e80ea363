package ticket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestMux(t *testing.T) (*http.ServeMux, *MemStore) {
	t.Helper()
	store := NewMemStore()
	mux := http.NewServeMux()
	NewHandler(store).SetupRoutes(mux)
	return mux, store
}

func TestCreateTicket(t *testing.T) {
	mux, _ := newTestMux(t)

	body := `{"title":"Add retry","description":"d","acceptance_criteria":"a"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", strings.NewReader(body))
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var created Ticket
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == 0 || created.Title != "Add retry" {
		t.Errorf("created = %+v", created)
	}
}

func TestCreateTicket_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"InvalidJSON", `{not json`},
		{"MissingTitle", `{"description":"d"}`},
		{"BlankTitle", `{"title":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, _ := newTestMux(t)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/tickets", strings.NewReader(tt.body))
			mux.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestGetTicket(t *testing.T) {
	mux, store := newTestMux(t)
	created, _ := store.Create(context.Background(), Ticket{Title: "lookup me"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tickets/1", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got Ticket
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != created.ID || got.Title != "lookup me" {
		t.Errorf("got %+v", got)
	}
}

func TestGetTicket_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		want int
	}{
		{"NotFound", "/api/tickets/999", http.StatusNotFound},
		{"InvalidID", "/api/tickets/abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, _ := newTestMux(t)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/tickets/1", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
