// Package handlers exposes the JSON API. Handlers decode the request, call
// one service operation and map its error to a status code.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/diewo77/go-offers/auth"
	"github.com/diewo77/go-offers/gate"
	"github.com/diewo77/go-offers/httpx"
	"github.com/diewo77/go-offers/internal/offers"
	"github.com/diewo77/go-offers/internal/services"
)

// writeError maps service and workflow errors onto HTTP responses. Anything
// unrecognised is logged and answered with a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", verr.Violations)
		return
	}

	var details any
	var oerr *offers.Error
	if errors.As(err, &oerr) && oerr.Msg != "" {
		details = map[string]string{"message": oerr.Msg}
	}

	switch {
	case errors.Is(err, httpx.ErrBadJSON):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
	case errors.Is(err, offers.ErrValidation):
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", details)
	case errors.Is(err, offers.ErrThreshold):
		httpx.JSONError(w, http.StatusForbidden, "threshold_exceeded", details)
	case errors.Is(err, offers.ErrAuthorization), errors.Is(err, services.ErrForbidden), errors.Is(err, gate.ErrUnauthorized):
		httpx.JSONError(w, http.StatusForbidden, "forbidden", details)
	case errors.Is(err, offers.ErrState):
		httpx.JSONError(w, http.StatusConflict, "invalid_state", details)
	case errors.Is(err, offers.ErrNotFound), errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", details)
	case errors.Is(err, services.ErrConflict):
		httpx.JSONError(w, http.StatusConflict, "already_exists", nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
	case errors.Is(err, services.ErrNotApproved):
		httpx.JSONError(w, http.StatusForbidden, "account_not_approved", nil)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// currentUser returns the authenticated user id. Routes are mounted behind
// auth.RequireAuth, so a missing id only happens when a handler is wired wrong.
func currentUser(w http.ResponseWriter, r *http.Request) (uint, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok || uid == 0 {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return 0, false
	}
	return uid, true
}

// pathID reads a positive id wildcard, answering 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := httpx.PathID(r, name)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_"+name, nil)
		return 0, false
	}
	return id, true
}

// queryInt reads a non-negative integer query parameter, def when absent or invalid.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}
