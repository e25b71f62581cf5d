package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donaria/internal/donor/handler"
	"donaria/internal/donor/revocation"
	"donaria/internal/donor/service"
	"donaria/internal/donor/store"
	"donaria/internal/donor/token"
	"donaria/internal/platform/middleware"
)

func newDonorRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer, err := token.NewIssuer("test-signing-key")
	require.NoError(t, err)
	revocations := revocation.NewInMemory()
	svc := service.New(store.NewInMemory(), issuer, revocations, service.WithLogger(logger))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	requireAuth := middleware.RequireAuth(token.NewIssuerAdapter(issuer), revocations, logger)
	handler.New(svc, logger).Register(r, requireAuth)
	return r
}

func registerBody() map[string]any {
	return map[string]any{
		"curp":           "GOMC900101HDFLRN09",
		"first_name":     "Carmen",
		"last_name":      "Gomez",
		"date_of_birth":  "1990-01-01",
		"gender":         "Femenino",
		"email":          "carmen@example.com",
		"phone_number":   "5512345678",
		"blood_type":     "O+",
		"certified_file": "certs/carmen.pdf",
		"form_answers":   map[string]any{"q1": "yes"},
		"status":         "activo",
		"password":       "hunter2hunter2",
	}
}

func doJSON(t *testing.T, router http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func registerDonor(t *testing.T, router http.Handler) (tokenString string) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/donors", "", registerBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	payload := decodeJSON(t, rec)
	tokenString, _ = payload["token"].(string)
	require.NotEmpty(t, tokenString)
	return tokenString
}

func TestRegisterEndpoint(t *testing.T) {
	router := newDonorRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/donors", "", registerBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	payload := decodeJSON(t, rec)
	assert.Equal(t, "carmen@example.com", payload["email"])
	assert.NotEmpty(t, payload["token"])
	assert.NotContains(t, payload, "secret_hash")
}

func TestRegisterEndpointValidationErrors(t *testing.T) {
	router := newDonorRouter(t)

	body := registerBody()
	body["curp"] = "bad"
	body["email"] = "also-bad"
	rec := doJSON(t, router, http.MethodPost, "/donors", "", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	payload := decodeJSON(t, rec)
	assert.Equal(t, "validation_error", payload["error"])
	fields, ok := payload["fields"].([]any)
	require.True(t, ok, "field violations should be listed")
	assert.Len(t, fields, 2)
}

func TestRegisterEndpointMalformedBody(t *testing.T) {
	router := newDonorRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/donors", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterEndpointDuplicateEmail(t *testing.T) {
	router := newDonorRouter(t)
	registerDonor(t, router)

	body := registerBody()
	body["curp"] = "GOMD900101HDFLRN08"
	rec := doJSON(t, router, http.MethodPost, "/donors", "", body)
	require.Equal(t, http.StatusConflict, rec.Code)

	payload := decodeJSON(t, rec)
	assert.Equal(t, "conflict", payload["error"])
	assert.Contains(t, rec.Body.String(), "El campo email ya esta en uso.")
}

func TestLoginEndpoint(t *testing.T) {
	router := newDonorRouter(t)
	registerDonor(t, router)

	rec := doJSON(t, router, http.MethodPost, "/donors/login", "", map[string]any{
		"email":    "carmen@example.com",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decodeJSON(t, rec)
	assert.NotEmpty(t, payload["token"])

	rec = doJSON(t, router, http.MethodPost, "/donors/login", "", map[string]any{
		"email":    "carmen@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPublicProfileEndpoint(t *testing.T) {
	router := newDonorRouter(t)
	bearer := registerDonor(t, router)

	me := doJSON(t, router, http.MethodGet, "/donors/me", bearer, nil)
	require.Equal(t, http.StatusOK, me.Code)
	id, _ := decodeJSON(t, me)["id"].(string)
	require.NotEmpty(t, id)

	rec := doJSON(t, router, http.MethodGet, "/donors/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decodeJSON(t, rec)
	assert.Equal(t, "Carmen", payload["first_name"])
	assert.Equal(t, "O+", payload["blood_type"])
	assert.NotContains(t, payload, "curp")
	assert.NotContains(t, payload, "phone_number")
}

func TestPublicProfileEndpointBadID(t *testing.T) {
	router := newDonorRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/donors/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/donors/00000000-0000-0000-0000-000000000001", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOwnerRoutesRequireAuth(t *testing.T) {
	router := newDonorRouter(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/donors/me"},
		{http.MethodPut, "/donors/me"},
		{http.MethodPost, "/donors/me/password"},
		{http.MethodPost, "/donors/me/status"},
		{http.MethodPost, "/donors/logout"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			rec := doJSON(t, router, route.method, route.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestProfileEndpoint(t *testing.T) {
	router := newDonorRouter(t)
	bearer := registerDonor(t, router)

	rec := doJSON(t, router, http.MethodGet, "/donors/me", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decodeJSON(t, rec)
	assert.Equal(t, "GOMC900101HDFLRN09", payload["curp"])
	assert.Equal(t, "5512345678", payload["phone_number"])
	assert.NotContains(t, payload, "secret_hash")
}

func TestUpdateProfileEndpoint(t *testing.T) {
	router := newDonorRouter(t)
	bearer := registerDonor(t, router)

	rec := doJSON(t, router, http.MethodPut, "/donors/me", bearer, map[string]any{
		"place_of_residence": "Guadalajara",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Guadalajara", decodeJSON(t, rec)["place_of_residence"])

	rec = doJSON(t, router, http.MethodPut, "/donors/me", bearer, map[string]any{
		"blood_type": "C+",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangePasswordEndpoint(t *testing.T) {
	router := newDonorRouter(t)
	bearer := registerDonor(t, router)

	rec := doJSON(t, router, http.MethodPost, "/donors/me/password", bearer, map[string]any{
		"current_password": "hunter2hunter2",
		"new_password":     "fresh-password",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/donors/login", "", map[string]any{
		"email":    "carmen@example.com",
		"password": "fresh-password",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChangeStatusEndpoint(t *testing.T) {
	router := newDonorRouter(t)
	bearer := registerDonor(t, router)

	rec := doJSON(t, router, http.MethodPost, "/donors/me/status", bearer, map[string]any{
		"status": "inactivo",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/donors/me/status", bearer, map[string]any{
		"status": "banned",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// inactivo -> inactivo is not a transition
	rec = doJSON(t, router, http.MethodPost, "/donors/me/status", bearer, map[string]any{
		"status": "inactivo",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	router := newDonorRouter(t)
	bearer := registerDonor(t, router)

	rec := doJSON(t, router, http.MethodPost, "/donors/logout", bearer, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The revoked token no longer opens owner routes.
	rec = doJSON(t, router, http.MethodGet, "/donors/me", bearer, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangeStatusBlocksLogin(t *testing.T) {
	router := newDonorRouter(t)
	bearer := registerDonor(t, router)

	rec := doJSON(t, router, http.MethodPost, "/donors/me/status", bearer, map[string]any{
		"status": "inactivo",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/donors/login", "", map[string]any{
		"email":    "carmen@example.com",
		"password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
