package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/go-offers/internal/export"
	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/offers"
	"github.com/diewo77/go-offers/internal/services"
)

// maxExportRows bounds the list exports.
const maxExportRows = 5000

// ExportHandler serves PDF and Excel downloads.
type ExportHandler struct {
	offers    *offers.Service
	catalogue *services.CatalogueService
	now       func() time.Time
}

func NewExportHandler(o *offers.Service, catalogue *services.CatalogueService) *ExportHandler {
	return &ExportHandler{offers: o, catalogue: catalogue, now: time.Now}
}

// send renders into memory first so a failed render still answers JSON.
func send(w http.ResponseWriter, r *http.Request, contentType, name string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		writeError(w, r, fmt.Errorf("render %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *ExportHandler) offer(w http.ResponseWriter, r *http.Request) (*models.Offer, bool) {
	uid, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	o, err := h.offers.Get(r.Context(), id, uid)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return o, true
}

func (h *ExportHandler) OfferPDF(w http.ResponseWriter, r *http.Request) {
	o, ok := h.offer(w, r)
	if !ok {
		return
	}
	now := h.now()
	name := export.FileName(fmt.Sprintf("offer-%d", o.RootID()), "pdf")
	send(w, r, export.ContentTypePDF, name, func(out io.Writer) error {
		return export.OfferPDF(out, o, now)
	})
}

func (h *ExportHandler) OfferExcel(w http.ResponseWriter, r *http.Request) {
	o, ok := h.offer(w, r)
	if !ok {
		return
	}
	now := h.now()
	name := export.FileName(fmt.Sprintf("offer-%d", o.RootID()), "xlsx")
	send(w, r, export.ContentTypeXLSX, name, func(out io.Writer) error {
		return export.OfferWorkbook(out, o, now)
	})
}

// Offers exports the offers visible to the caller, optionally by ?status.
func (h *ExportHandler) Offers(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.offers.ListForUser(r.Context(), uid, offers.ListFilter{
		Status: models.OfferStatus(r.URL.Query().Get("status")),
		Limit:  maxExportRows,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	now := h.now()
	send(w, r, export.ContentTypeXLSX, export.FileName("offers", "xlsx"), func(out io.Writer) error {
		return export.OfferListWorkbook(out, list, now)
	})
}

func (h *ExportHandler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalogue.All(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	now := h.now()
	send(w, r, export.ContentTypeXLSX, export.FileName("products", "xlsx"), func(out io.Writer) error {
		return export.ProductListWorkbook(out, products, now)
	})
}
