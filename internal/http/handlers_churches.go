// Package httpx provides the HTTP handlers and middleware for the church records API.
package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/johnrichard23/connectedin/internal/domain/model"
)

// ChurchService is the subset of service.ChurchService the handlers need.
type ChurchService interface {
	Create(ctx context.Context, req model.CreateChurchRequest) (*model.Church, error)
	GetByID(ctx context.Context, id string) (*model.Church, error)
	List(ctx context.Context) ([]*model.Church, error)
	Update(ctx context.Context, id string, req model.UpdateChurchRequest) (*model.Church, error)
}

// ChurchHandlers serves the /churches resource.
type ChurchHandlers struct {
	Svc    ChurchService
	Logger *slog.Logger
}

// Create handles POST /churches.
func (h *ChurchHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateChurchRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	church, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		writeAppError(w, r, h.Logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, church)
}

// List handles GET /churches.
func (h *ChurchHandlers) List(w http.ResponseWriter, r *http.Request) {
	churches, err := h.Svc.List(r.Context())
	if err != nil {
		writeAppError(w, r, h.Logger, err)
		return
	}
	if churches == nil {
		churches = []*model.Church{}
	}

	WriteJSON(w, http.StatusOK, model.ChurchList{Churches: churches})
}

// GetByID handles GET /churches/{id}.
func (h *ChurchHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	church, err := h.Svc.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAppError(w, r, h.Logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, church)
}

// Update handles PUT /churches/{id}.
func (h *ChurchHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateChurchRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	church, err := h.Svc.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeAppError(w, r, h.Logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, church)
}
