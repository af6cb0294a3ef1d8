package content

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/frontmatter"
	"github.com/starford/notebase/internal/models"
)

func statusServer(t *testing.T, status int, body string) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestHTTPClient_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, apperr.ErrUnauthorized},
		{http.StatusForbidden, apperr.ErrUnauthorized},
		{http.StatusNotFound, apperr.ErrNotFound},
		{http.StatusConflict, apperr.ErrConflict},
		{http.StatusPreconditionFailed, apperr.ErrConflict},
		{http.StatusBadRequest, apperr.ErrBackend},
		{http.StatusInternalServerError, apperr.ErrBackend},
	}
	for _, c := range cases {
		client := statusServer(t, c.status, `{"error":"boom"}`)
		_, err := client.GetItem(context.Background(), "abc")
		if !errors.Is(err, c.want) {
			t.Errorf("status %d: error = %v, want %v", c.status, err, c.want)
		}
	}
}

func TestHTTPClient_BackendErrorCarriesStatus(t *testing.T) {
	client := statusServer(t, http.StatusBadGateway, "upstream down")
	_, err := client.GetList(context.Background(), 1, 10, "")
	var be *apperr.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("error = %v, want *BackendError", err)
	}
	if be.Status != http.StatusBadGateway || be.Message != "upstream down" {
		t.Errorf("backend error = %+v", be)
	}
}

func TestHTTPClient_TransportErrorIsBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewHTTPClient(url, WithTimeout(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.GetItem(context.Background(), "x"); !errors.Is(err, apperr.ErrBackend) {
		t.Errorf("error = %v, want backend error", err)
	}
}

func TestHTTPClient_InvalidPageNeverCallsServer(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()
	client, _ := NewHTTPClient(srv.URL)
	if _, err := client.GetList(context.Background(), 0, 10, ""); !errors.Is(err, ErrInvalidPage) {
		t.Errorf("error = %v", err)
	}
	if called {
		t.Error("server should not be called")
	}
}

func TestHTTPClient_AuthAndBearer(t *testing.T) {
	expires := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	var gotAuth, gotFilter string
	var patched models.UpdateFrontmatterRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/password", func(w http.ResponseWriter, r *http.Request) {
		var req models.AuthRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: "invalid credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(models.AuthResponse{
			Token: "tok-1", Email: req.Email, Expires: expires.Format(time.RFC3339),
		})
	})
	mux.HandleFunc("GET /api/records", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotFilter = r.URL.Query().Get("filter")
		_ = json.NewEncoder(w).Encode(models.RawListResult{
			Items: []models.RawRecord{{ID: "1", Path: "a.md", Frontmatter: map[string]any{"title": "A", "type": "task"}}},
			Page:  1, PerPage: 10, TotalItems: 1, TotalPages: 1,
		})
	})
	mux.HandleFunc("PATCH /api/records/{id}/frontmatter", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&patched)
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	client, err := NewHTTPClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if client.IsAuthenticated(ctx) {
		t.Error("fresh client should not be authenticated")
	}
	if _, err := client.Authenticate(ctx, "me@example.com", "nope"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("bad credentials error = %v", err)
	}
	res, err := client.Authenticate(ctx, "me@example.com", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if res.Token != "tok-1" || !res.Expires.Equal(expires) {
		t.Errorf("auth result = %+v", res)
	}
	if !client.IsAuthenticated(ctx) {
		t.Error("client should be authenticated")
	}

	list, err := client.GetList(ctx, 1, 10, "deleted = ''")
	if err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotFilter != "deleted = ''" {
		t.Errorf("filter = %q", gotFilter)
	}
	if len(list.Items) != 1 || list.Items[0].Title() != "A" {
		t.Errorf("list = %+v", list)
	}

	fm := list.Items[0].Frontmatter.Clone()
	fm.Completed = "2024-01-01T00:00:00Z"
	if err := client.UpdateFrontmatter(ctx, "1", fm); err != nil {
		t.Fatal(err)
	}
	if patched.Data["completed"] != "2024-01-01T00:00:00Z" || patched.Data["type"] != string(frontmatter.TypeTask) {
		t.Errorf("patched data = %v", patched.Data)
	}

	client.ClearAuth(ctx)
	if client.IsAuthenticated(ctx) {
		t.Error("ClearAuth should drop the token")
	}
}

func TestNewHTTPClient_RejectsRelativeURL(t *testing.T) {
	if _, err := NewHTTPClient("localhost/api"); err == nil {
		t.Error("expected error for relative url")
	}
}
