package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/filterexpr"
	"github.com/starford/notebase/internal/index"
)

// List defaults when the query omits page or perPage.
const (
	defaultPage    = 1
	defaultPerPage = 30
)

// Handler holds API route handlers.
type Handler struct {
	svc      RecordService
	sessions *Sessions
}

// NewHandler creates a new Handler.
func NewHandler(svc RecordService, sessions *Sessions) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

// Authenticate handles POST /api/auth/password.
//
//	@Summary		Exchange superuser credentials for a bearer token
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AuthRequest	true	"Credentials"
//	@Success		200		{object}	AuthResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Router			/auth/password [post]
func (h *Handler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if h.sessions.Enabled() {
		if err := req.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
	}
	sess, err := h.sessions.Login(req.Email, req.Password)
	if err != nil {
		slog.Warn("authentication failed", slog.String("email", req.Email))
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid credentials"))
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{
		Token:   sess.Token,
		Email:   sess.Email,
		Expires: sess.Expires.Format(time.RFC3339),
	})
}

// ListRecords handles GET /api/records.
//
//	@Summary		List records ordered by creation
//	@Tags			records
//	@Produce		json
//	@Param			page	query		int		false	"1-based page"	default(1)
//	@Param			perPage	query		int		false	"Page size"		default(30)
//	@Param			filter	query		string	false	"Filter expression"
//	@Success		200		{object}	RecordListResponse
//	@Failure		400		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/records [get]
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), defaultPage)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("page must be an integer"))
		return
	}
	perPage, err := intParam(q.Get("perPage"), defaultPerPage)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("perPage must be an integer"))
		return
	}

	res, err := h.svc.List(r.Context(), page, perPage, q.Get("filter"))
	if err != nil {
		switch {
		case errors.Is(err, index.ErrInvalidPage), errors.Is(err, filterexpr.ErrSyntax):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		default:
			slog.Error("list records failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetRecord handles GET /api/records/{id}.
//
//	@Summary		Get a single live record
//	@Tags			records
//	@Produce		json
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{object}	Record
//	@Failure		404	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/records/{id} [get]
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, "get record", id, err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(rec.Hash))
	writeJSON(w, http.StatusOK, rec)
}

// UpdateFrontmatter handles PATCH /api/records/{id}/frontmatter.
//
//	@Summary		Replace the frontmatter of a record
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string						true	"Record id"
//	@Param			If-Match	header		string						false	"Expected record hash"
//	@Param			body		body		UpdateFrontmatterRequest	true	"New frontmatter"
//	@Success		200			{object}	Record
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/records/{id}/frontmatter [patch]
func (h *Handler) UpdateFrontmatter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateFrontmatterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	rec, err := h.svc.UpdateFrontmatter(r.Context(), id, req.Data, ifMatch(r))
	if err != nil {
		h.writeError(w, "update frontmatter", id, err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(rec.Hash))
	writeJSON(w, http.StatusOK, rec)
}

// UpdateContent handles PUT /api/records/{id}/content.
//
//	@Summary		Replace the body of a record
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string					true	"Record id"
//	@Param			If-Match	header		string					false	"Expected record hash"
//	@Param			body		body		UpdateContentRequest	true	"New body"
//	@Success		200			{object}	Record
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/records/{id}/content [put]
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateContentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	rec, err := h.svc.UpdateContent(r.Context(), id, req.Content, ifMatch(r))
	if err != nil {
		h.writeError(w, "update content", id, err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(rec.Hash))
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) writeError(w http.ResponseWriter, op, id string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("hash mismatch"))
	default:
		slog.Error(op+" failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ifMatch returns the If-Match header without ETag quotes.
func ifMatch(r *http.Request) string {
	return strings.Trim(r.Header.Get("If-Match"), `"`)
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
