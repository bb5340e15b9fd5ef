package handlers

import (
	"net/http"

	"github.com/diewo77/go-offers/httpx"
	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/offers"
	"github.com/diewo77/go-offers/internal/pricing"
	"github.com/diewo77/go-offers/internal/services"
)

// OfferHandler serves the cart, the offer lists and the supplier side of the
// lifecycle.
type OfferHandler struct {
	offers    *offers.Service
	favorites *services.FavoriteService
	activity  *services.ActivityService
}

func NewOfferHandler(o *offers.Service, favorites *services.FavoriteService, activity *services.ActivityService) *OfferHandler {
	return &OfferHandler{offers: o, favorites: favorites, activity: activity}
}

type offerResponse struct {
	Offer     *models.Offer       `json:"offer"`
	Totals    pricing.OrderTotals `json:"totals"`
	HighValue bool                `json:"high_value"`
}

func newOfferResponse(svc *offers.Service, o *models.Offer) offerResponse {
	return offerResponse{Offer: o, Totals: o.Totals(), HighValue: svc.IsHighValue(o)}
}

func writeOffer(w http.ResponseWriter, status int, svc *offers.Service, o *models.Offer) {
	httpx.JSON(w, status, newOfferResponse(svc, o))
}

// Cart returns the active draft, creating it on first use.
func (h *OfferHandler) Cart(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	o, err := h.offers.ActiveDraft(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOffer(w, http.StatusOK, h.offers, o)
}

type addItemRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

func (h *OfferHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := httpx.Decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.offers.AddItem(r.Context(), uid, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *OfferHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}
	var req quantityRequest
	if err := httpx.Decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.offers.UpdateItemQuantity(r.Context(), uid, itemID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *OfferHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}
	if err := h.offers.RemoveItem(r.Context(), uid, itemID); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// Activate makes a parked draft the cart.
func (h *OfferHandler) Activate(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	o, err := h.offers.ActivateDraft(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOffer(w, http.StatusOK, h.offers, o)
}

// List returns the visible offers, optionally filtered with ?status= and ?limit=.
func (h *OfferHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.offers.ListForUser(r.Context(), uid, offers.ListFilter{
		Status: models.OfferStatus(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit", 0),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

type offerDetail struct {
	offerResponse
	IsLatest bool `json:"is_latest"`
}

func (h *OfferHandler) View(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	o, err := h.offers.Get(r.Context(), id, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	latest, err := h.offers.IsLatest(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, offerDetail{
		offerResponse: newOfferResponse(h.offers, o),
		IsLatest:      latest,
	})
}

// History lists the revision chain of the offer, oldest first.
func (h *OfferHandler) History(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	chain, err := h.offers.History(r.Context(), id, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, chain)
}

// Activity lists the audit entries of a visible offer.
func (h *OfferHandler) Activity(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !h.offers.CanView(r.Context(), uid, id) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	logs, err := h.activity.ForOffer(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, logs)
}

type submitResponse struct {
	offerResponse
	Escalated bool `json:"escalated"`
}

// Submit sends the draft to the pharmacy, or to the manager when it is high-value.
func (h *OfferHandler) Submit(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.offers.Submit(r.Context(), id, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Escalated {
		status = http.StatusAccepted
	}
	httpx.JSON(w, status, submitResponse{
		offerResponse: newOfferResponse(h.offers, res.Offer),
		Escalated:     res.Escalated,
	})
}

type noteRequest struct {
	Note string `json:"note"`
}

// Revise opens a new draft revision of a rejected offer.
func (h *OfferHandler) Revise(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req noteRequest
	if r.ContentLength != 0 {
		if err := httpx.Decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	o, err := h.offers.Revise(r.Context(), id, uid, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOffer(w, http.StatusCreated, h.offers, o)
}

func (h *OfferHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.offers.Delete(r.Context(), id, uid); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *OfferHandler) Stats(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	st, err := h.offers.Stats(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

type deliveryRequest struct {
	Assignments []struct {
		ItemID    uint `json:"item_id"`
		AddressID uint `json:"address_id"`
	} `json:"assignments"`
}

// AssignDelivery sets per-line delivery addresses on an approved offer.
func (h *OfferHandler) AssignDelivery(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req deliveryRequest
	if err := httpx.Decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	assignments := make(map[uint]uint, len(req.Assignments))
	for _, a := range req.Assignments {
		assignments[a.ItemID] = a.AddressID
	}
	o, err := h.offers.AssignDeliveryAddresses(r.Context(), id, uid, assignments)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOffer(w, http.StatusOK, h.offers, o)
}

// ToggleFavorite bookmarks or un-bookmarks one of the user's drafts.
func (h *OfferHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req noteRequest
	if r.ContentLength != 0 {
		if err := httpx.Decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	added, err := h.favorites.ToggleDraft(r.Context(), uid, id, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"favorite": added})
}

func (h *OfferHandler) FavoriteDrafts(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	favs, err := h.favorites.Drafts(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, favs)
}
