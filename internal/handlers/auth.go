package handlers

import (
	"context"
	"net/http"

	"github.com/diewo77/go-offers/auth"
	"github.com/diewo77/go-offers/gate"
	"github.com/diewo77/go-offers/httpx"
	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/services"
)

// Gate is the part of the authorization gate used by handlers.
type Gate interface {
	Capabilities(ctx context.Context, userID uint) []gate.Permission
	IsAdmin(ctx context.Context, userID uint) bool
	Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error
	InvalidateAll()
}

type AuthHandler struct {
	accounts *services.AccountService
	gate     Gate
}

func NewAuthHandler(accounts *services.AccountService, g Gate) *AuthHandler {
	return &AuthHandler{accounts: accounts, gate: g}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks the credentials and starts a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, h.me(r.Context(), user))
}

// Signup registers an account. It stays unusable until approved, so no
// session is created.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in services.SignupInput
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.accounts.Signup(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	httpx.NoContent(w)
}

type meResponse struct {
	User         *models.User      `json:"user"`
	Capabilities []gate.Permission `json:"capabilities"`
	IsAdmin      bool              `json:"is_admin"`
}

func (h *AuthHandler) me(ctx context.Context, u *models.User) meResponse {
	caps := h.gate.Capabilities(ctx, u.ID)
	if caps == nil {
		caps = []gate.Permission{}
	}
	return meResponse{User: u, Capabilities: caps, IsAdmin: h.gate.IsAdmin(ctx, u.ID)}
}

// Me returns the current user and their effective capabilities.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	user, err := h.accounts.Get(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.me(r.Context(), user))
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req passwordRequest
	if err := httpx.Decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.accounts.ChangePassword(r.Context(), uid, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}
