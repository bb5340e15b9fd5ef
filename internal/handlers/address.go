package handlers

import (
	"net/http"

	"github.com/diewo77/go-offers/gate"
	"github.com/diewo77/go-offers/httpx"
	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/policy"
	"github.com/diewo77/go-offers/internal/services"
)

// AddressHandler manages the current user's address book. Entries of other
// users answer 404.
type AddressHandler struct {
	addresses *services.AddressService
	gate      Gate
}

func NewAddressHandler(addresses *services.AddressService, g Gate) *AddressHandler {
	return &AddressHandler{addresses: addresses, gate: g}
}

// load fetches the {id} address and checks action against the ownership policy.
func (h *AddressHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.Address, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	a, err := h.addresses.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if err := h.gate.Authorize(r.Context(), action, policy.ResourceAddress, a); err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return nil, false
	}
	return a, true
}

func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.addresses.List(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *AddressHandler) View(w http.ResponseWriter, r *http.Request) {
	a, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	var in services.AddressInput
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.addresses.Create(r.Context(), uid, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	a, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	var in services.AddressInput
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.addresses.Update(r.Context(), a, in); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

// SetDefault makes the address the user's default one.
func (h *AddressHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	a, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	if err := h.addresses.SetDefault(r.Context(), a); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := h.load(w, r, gate.ActionDelete)
	if !ok {
		return
	}
	if err := h.addresses.Delete(r.Context(), a); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}
