package handlers

import (
	"net/http"

	"github.com/diewo77/go-offers/gate"
	"github.com/diewo77/go-offers/httpx"
	"github.com/diewo77/go-offers/internal/policy"
	"github.com/diewo77/go-offers/internal/services"
)

// StaffHandler lets a manager tune the capabilities of their own team.
type StaffHandler struct {
	staff    *services.StaffService
	accounts *services.AccountService
}

func NewStaffHandler(staff *services.StaffService, accounts *services.AccountService) *StaffHandler {
	return &StaffHandler{staff: staff, accounts: accounts}
}

func (h *StaffHandler) Team(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	team, err := h.staff.Team(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, team)
}

type capabilityView struct {
	Permission  gate.Permission `json:"permission"`
	Description string          `json:"description"`
}

// Grantable lists the capabilities the current manager may hand out.
func (h *StaffHandler) Grantable(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	me, err := h.accounts.Get(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	allowed := map[gate.Permission]bool{}
	for _, p := range services.Grantable(me.Role) {
		allowed[p] = true
	}
	out := []capabilityView{}
	for _, c := range policy.Catalogue {
		if allowed[c.Perm] {
			out = append(out, capabilityView{Permission: c.Perm, Description: c.Description})
		}
	}
	httpx.JSON(w, http.StatusOK, out)
}

type capabilityRequest struct {
	Permission gate.Permission `json:"permission"`
	Granted    bool            `json:"granted"`
}

// SetCapability grants or revokes one capability for a team member.
func (h *StaffHandler) SetCapability(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	staffID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req capabilityRequest
	if err := httpx.Decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.staff.SetCapability(r.Context(), uid, staffID, req.Permission, req.Granted); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// ResetCapability drops an override so the profile decides again.
func (h *StaffHandler) ResetCapability(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	staffID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	perm := gate.Permission(r.PathValue("perm"))
	if err := h.staff.ResetCapability(r.Context(), uid, staffID, perm); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

type activeRequest struct {
	Active bool `json:"active"`
}

func (h *StaffHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	staffID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req activeRequest
	if err := httpx.Decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.staff.SetActive(r.Context(), uid, staffID, req.Active); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}
