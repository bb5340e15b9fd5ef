package handlers

import (
	"net/http"

	"github.com/diewo77/go-offers/httpx"
	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/services"
)

// AdminUserProfileHandler handles account approval and profile assignment.
// Approval is also open to managers for their own staff; the other
// operations are routed behind the admin check.
type AdminUserProfileHandler struct {
	accounts *services.AccountService
	gate     Gate
}

func NewAdminUserProfileHandler(accounts *services.AccountService, g Gate) *AdminUserProfileHandler {
	return &AdminUserProfileHandler{accounts: accounts, gate: g}
}

// List returns accounts, only pending ones with ?pending=true. Managers see
// their own staff only.
func (h *AdminUserProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	pending := r.URL.Query().Get("pending") == "true"
	users, err := h.accounts.List(r.Context(), pending)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !h.gate.IsAdmin(r.Context(), uid) {
		mine := []models.User{}
		for _, u := range users {
			if u.ManagerID != nil && *u.ManagerID == uid {
				mine = append(mine, u)
			}
		}
		users = mine
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *AdminUserProfileHandler) Approve(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.accounts.Approve(r.Context(), uid, h.gate.IsAdmin(r.Context(), uid), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

// Reject deletes a pending signup.
func (h *AdminUserProfileHandler) Reject(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.accounts.Reject(r.Context(), uid, h.gate.IsAdmin(r.Context(), uid), id); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

type assignProfileRequest struct {
	ProfileID *uint `json:"profile_id"`
}

// AssignProfile sets the profile of a user; a null or zero id clears it.
func (h *AdminUserProfileHandler) AssignProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req assignProfileRequest
	if err := httpx.Decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ProfileID != nil && *req.ProfileID == 0 {
		req.ProfileID = nil
	}
	if err := h.accounts.AssignProfile(r.Context(), id, req.ProfileID); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": id, "profile_id": req.ProfileID})
}

func (h *AdminUserProfileHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req activeRequest
	if err := httpx.Decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if id == uid && !req.Active {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", map[string]string{"active": "cannot_disable_self"})
		return
	}
	if err := h.accounts.SetActive(r.Context(), id, req.Active); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}
