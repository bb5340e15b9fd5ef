package handlers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/go-offers/httpx"
	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/offers"
	"github.com/diewo77/go-offers/internal/pricing"
)

// ReviewHandler serves the decisions taken on someone else's offer: the
// pharmacy inbox, approval, rejection, discounts and invoice data, and the
// manager pre-approval of high-value drafts.
type ReviewHandler struct {
	offers *offers.Service
}

func NewReviewHandler(o *offers.Service) *ReviewHandler {
	return &ReviewHandler{offers: o}
}

// decide runs one offer decision and answers with the updated offer.
func (h *ReviewHandler) decide(w http.ResponseWriter, r *http.Request, fn func(offerID, actorID uint) (*models.Offer, error)) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	o, err := fn(id, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOffer(w, http.StatusOK, h.offers, o)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func decodeReason(r *http.Request) (string, error) {
	var req reasonRequest
	if r.ContentLength == 0 {
		return "", nil
	}
	if err := httpx.Decode(r, &req); err != nil {
		return "", err
	}
	return req.Reason, nil
}

// Inbox lists the sent offers waiting for the pharmacy.
func (h *ReviewHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.offers.Inbox(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Offer{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *ReviewHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(offerID, actorID uint) (*models.Offer, error) {
		return h.offers.Approve(r.Context(), offerID, actorID)
	})
}

func (h *ReviewHandler) Reject(w http.ResponseWriter, r *http.Request) {
	reason, err := decodeReason(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.decide(w, r, func(offerID, actorID uint) (*models.Offer, error) {
		return h.offers.Reject(r.Context(), offerID, actorID, reason)
	})
}

type discountRequest struct {
	Items []struct {
		ItemID uint                 `json:"item_id"`
		Type   pricing.DiscountType `json:"type"`
		Value  decimal.Decimal      `json:"value"`
		Note   *string              `json:"note"`
	} `json:"items"`
	OverallType  pricing.DiscountType `json:"overall_type"`
	OverallValue decimal.Decimal      `json:"overall_value"`
}

func (req discountRequest) input() offers.DiscountInput {
	in := offers.DiscountInput{OverallType: req.OverallType, OverallValue: req.OverallValue}
	if in.OverallType == "" {
		in.OverallType = pricing.DiscountNone
	}
	for _, it := range req.Items {
		kind := it.Type
		if kind == "" {
			kind = pricing.DiscountNone
		}
		in.Items = append(in.Items, offers.ItemDiscount{ItemID: it.ItemID, Type: kind, Value: it.Value, Note: it.Note})
	}
	return in
}

// Discounts applies line and overall discounts to a sent offer.
func (h *ReviewHandler) Discounts(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if err := httpx.Decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.decide(w, r, func(offerID, actorID uint) (*models.Offer, error) {
		return h.offers.ApplyDiscounts(r.Context(), offerID, actorID, req.input())
	})
}

type invoiceRequest struct {
	Number           string `json:"invoice_number"`
	Date             string `json:"invoice_date"`
	DeliveryDeadline string `json:"delivery_deadline"`
}

func parseDay(field, raw string, dst **time.Time, bad map[string]string) {
	if raw == "" {
		return
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		bad[field] = "invalid_date"
		return
	}
	*dst = &t
}

// Invoice stores invoice number, date and delivery deadline (YYYY-MM-DD).
func (h *ReviewHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := httpx.Decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := offers.InvoiceInput{Number: req.Number}
	bad := map[string]string{}
	parseDay("invoice_date", req.Date, &in.Date, bad)
	parseDay("delivery_deadline", req.DeliveryDeadline, &in.DeliveryDeadline, bad)
	if len(bad) > 0 {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", bad)
		return
	}
	h.decide(w, r, func(offerID, actorID uint) (*models.Offer, error) {
		return h.offers.UpdateInvoice(r.Context(), offerID, actorID, in)
	})
}

func (h *ReviewHandler) RequestInvoiceRevision(w http.ResponseWriter, r *http.Request) {
	reason, err := decodeReason(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.decide(w, r, func(offerID, actorID uint) (*models.Offer, error) {
		return h.offers.RequestInvoiceRevision(r.Context(), offerID, actorID, reason)
	})
}

func (h *ReviewHandler) ApproveInvoiceRevision(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(offerID, actorID uint) (*models.Offer, error) {
		return h.offers.ApproveInvoiceRevision(r.Context(), offerID, actorID)
	})
}

func (h *ReviewHandler) RejectInvoiceRevision(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(offerID, actorID uint) (*models.Offer, error) {
		return h.offers.RejectInvoiceRevision(r.Context(), offerID, actorID)
	})
}

// PendingManager lists the high-value drafts waiting for the current manager.
func (h *ReviewHandler) PendingManager(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.offers.PendingManagerApproval(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Offer{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *ReviewHandler) ManagerApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(offerID, actorID uint) (*models.Offer, error) {
		return h.offers.ManagerApprove(r.Context(), offerID, actorID)
	})
}

func (h *ReviewHandler) ManagerReject(w http.ResponseWriter, r *http.Request) {
	reason, err := decodeReason(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.decide(w, r, func(offerID, actorID uint) (*models.Offer, error) {
		return h.offers.ManagerReject(r.Context(), offerID, actorID, reason)
	})
}
