// Package handler wires donor endpoints to the donor service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"donaria/internal/donor/models"
	"donaria/internal/platform/middleware"
	dErrors "donaria/pkg/domain-errors"
	"donaria/pkg/platform/httputil"
)

// Service defines the interface for donor operations.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error)
	Authenticate(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	GetPublicProfile(ctx context.Context, id uuid.UUID) (*models.PublicView, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.FullView, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req *models.UpdateRequest) (*models.FullView, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, target models.Status) error
	ChangePassword(ctx context.Context, id uuid.UUID, req *models.ChangePasswordRequest) error
	Logout(ctx context.Context, tokenString string) error
}

// Handler serves the donor HTTP surface.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a donor handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts donor endpoints. The requireAuth middleware gates the
// owner-facing routes; registration, login, and the public profile stay
// anonymous.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Post("/donors", h.HandleRegister)
	r.Post("/donors/login", h.HandleLogin)
	r.Get("/donors/{id}", h.HandlePublicProfile)

	r.Group(func(pr chi.Router) {
		pr.Use(requireAuth)
		pr.Get("/donors/me", h.HandleProfile)
		pr.Put("/donors/me", h.HandleUpdateProfile)
		pr.Post("/donors/me/password", h.HandleChangePassword)
		pr.Post("/donors/me/status", h.HandleChangeStatus)
		pr.Post("/donors/logout", h.HandleLogout)
	})
}

// HandleRegister handles POST /donors.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	var req models.RegisterRequest
	if !httputil.DecodeBody(w, r, h.logger, ctx, requestID, &req) {
		return
	}

	resp, err := h.service.Register(ctx, &req)
	if err != nil {
		h.logger.WarnContext(ctx, "donor registration rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "donor registered",
		"request_id", requestID,
		"email", resp.Email,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// HandleLogin handles POST /donors/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req models.LoginRequest
	if !httputil.DecodeBody(w, r, h.logger, ctx, requestID, &req) {
		return
	}

	resp, err := h.service.Authenticate(ctx, &req)
	if err != nil {
		h.logger.WarnContext(ctx, "donor login rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandlePublicProfile handles GET /donors/{id}. Anonymous callers only ever
// see the public projection.
func (h *Handler) HandlePublicProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid donor id"))
		return
	}

	view, err := h.service.GetPublicProfile(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleProfile handles GET /donors/me: the full projection for the owner.
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.authenticatedDonorID(w, ctx)
	if !ok {
		return
	}

	view, err := h.service.GetProfile(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleUpdateProfile handles PUT /donors/me.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	id, ok := h.authenticatedDonorID(w, ctx)
	if !ok {
		return
	}

	var req models.UpdateRequest
	if !httputil.DecodeBody(w, r, h.logger, ctx, requestID, &req) {
		return
	}

	view, err := h.service.UpdateProfile(ctx, id, &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleChangePassword handles POST /donors/me/password.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	id, ok := h.authenticatedDonorID(w, ctx)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if !httputil.DecodeBody(w, r, h.logger, ctx, requestID, &req) {
		return
	}

	if err := h.service.ChangePassword(ctx, id, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleChangeStatus handles POST /donors/me/status.
func (h *Handler) HandleChangeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	id, ok := h.authenticatedDonorID(w, ctx)
	if !ok {
		return
	}

	var req models.ChangeStatusRequest
	if !httputil.DecodeBody(w, r, h.logger, ctx, requestID, &req) {
		return
	}

	if err := h.service.ChangeStatus(ctx, id, models.Status(req.Status)); err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleLogout handles POST /donors/logout by revoking the presented token.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenString := middleware.GetBearerToken(ctx)
	if tokenString == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	if err := h.service.Logout(ctx, tokenString); err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) authenticatedDonorID(w http.ResponseWriter, ctx context.Context) (uuid.UUID, bool) {
	raw := middleware.GetDonorID(ctx)
	if raw == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
		return uuid.Nil, false
	}
	return id, true
}
