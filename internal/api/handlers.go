package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notifsync/internal/apperr"
	"github.com/starford/notifsync/internal/models"
)

const maxBodyBytes = 1 << 20

// Service is the store surface the handlers need. *store.Store implements it.
type Service interface {
	List() []models.Commitment
	Get(id string) (models.Commitment, bool)
	Create(ctx context.Context, c models.Commitment) (models.Commitment, error)
	Update(ctx context.Context, id string, c models.Commitment) (models.Commitment, error)
	SoftDelete(ctx context.Context, id string) (models.Commitment, error)
	PurgeDeleted(ctx context.Context) (int, error)
}

// Handler holds API route handlers.
type Handler struct {
	svc Service
}

// NewHandler creates a new Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// readCommitment decodes the request body. It writes the error response
// itself and reports false when the body is unusable.
func readCommitment(w http.ResponseWriter, r *http.Request) (models.Commitment, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return models.Commitment{}, false
	}
	c, err := models.Decode(body)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			writeStoreError(w, "decode commitment", "", err)
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		}
		return models.Commitment{}, false
	}
	return c, true
}

// ListCommitments handles GET /api/events.
//
//	@Summary		List all commitments, soft-deleted ones included
//	@Tags			commitments
//	@Produce		json
//	@Success		200	{array}	Commitment
//	@Router			/events [get]
func (h *Handler) ListCommitments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.List())
}

// GetCommitment handles GET /api/events/{id}.
//
//	@Summary		Get a single commitment
//	@Tags			commitments
//	@Produce		json
//	@Param			id	path		string	true	"Commitment id"
//	@Success		200	{object}	Commitment
//	@Failure		404	{object}	errResponse
//	@Router			/events/{id} [get]
func (h *Handler) GetCommitment(w http.ResponseWriter, r *http.Request) {
	c, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateCommitment handles POST /api/events.
//
//	@Summary		Create a commitment; the id is assigned when omitted
//	@Tags			commitments
//	@Accept			json
//	@Produce		json
//	@Param			body	body		Commitment	true	"Commitment to create"
//	@Success		201		{object}	Commitment
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Router			/events [post]
func (h *Handler) CreateCommitment(w http.ResponseWriter, r *http.Request) {
	c, ok := readCommitment(w, r)
	if !ok {
		return
	}
	created, err := h.svc.Create(r.Context(), c)
	if err != nil {
		writeStoreError(w, "create commitment", c.ID, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateCommitment handles PUT /api/events/{id}. The path id wins over any
// id in the body.
//
//	@Summary		Replace a commitment
//	@Tags			commitments
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Commitment id"
//	@Param			body	body		Commitment	true	"New field values"
//	@Success		200		{object}	Commitment
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Router			/events/{id} [put]
func (h *Handler) UpdateCommitment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, ok := readCommitment(w, r)
	if !ok {
		return
	}
	updated, err := h.svc.Update(r.Context(), id, c)
	if err != nil {
		writeStoreError(w, "update commitment", id, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteCommitment handles DELETE /api/events/{id}. The record is only
// marked deleted; ClearTrash removes it.
//
//	@Summary		Soft-delete a commitment
//	@Tags			commitments
//	@Produce		json
//	@Param			id	path		string	true	"Commitment id"
//	@Success		200	{object}	Commitment
//	@Failure		404	{object}	errResponse
//	@Router			/events/{id} [delete]
func (h *Handler) DeleteCommitment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := h.svc.SoftDelete(r.Context(), id)
	if err != nil {
		writeStoreError(w, "delete commitment", id, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

// ClearTrash handles DELETE /api/events/trash.
//
//	@Summary		Permanently remove soft-deleted commitments
//	@Tags			commitments
//	@Produce		json
//	@Success		200	{object}	TrashResponse
//	@Router			/events/trash [delete]
func (h *Handler) ClearTrash(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.PurgeDeleted(r.Context())
	if err != nil {
		writeStoreError(w, "purge deleted", "", err)
		return
	}
	writeJSON(w, http.StatusOK, TrashResponse{Detail: "Trash cleared", Purged: n})
}
