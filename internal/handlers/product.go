package handlers

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/diewo77/go-offers/httpx"
	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/services"
)

// maxImportBytes bounds an uploaded product workbook.
const maxImportBytes = 10 << 20

type ProductHandler struct {
	catalogue *services.CatalogueService
	favorites *services.FavoriteService
}

func NewProductHandler(catalogue *services.CatalogueService, favorites *services.FavoriteService) *ProductHandler {
	return &ProductHandler{catalogue: catalogue, favorites: favorites}
}

type productPage struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
}

// List searches the catalogue by name or barcode (?q=), paged with ?limit= and ?offset=.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, total, err := h.catalogue.List(r.Context(), services.ProductFilter{
		Query:  r.URL.Query().Get("q"),
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, productPage{Products: products, Total: total})
}

func (h *ProductHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.catalogue.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ProductInput
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.catalogue.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.ProductInput
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.catalogue.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

type priceRequest struct {
	Price decimal.Decimal `json:"price"`
}

// UpdatePrice changes only the gross price. Existing offer lines keep theirs.
func (h *ProductHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req priceRequest
	if err := httpx.Decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.catalogue.UpdatePrice(r.Context(), id, req.Price)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.catalogue.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// Import loads products from the xlsx workbook in the "file" form field.
func (h *ProductHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"file": "required"})
		return
	}
	defer file.Close()

	res, err := h.catalogue.Import(r.Context(), file)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("product import rejected")
		httpx.JSONError(w, http.StatusUnprocessableEntity, "invalid_workbook", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

// ToggleFavorite adds or removes the product from the user's favourites.
func (h *ProductHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	added, err := h.favorites.ToggleProduct(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"favorite": added})
}

func (h *ProductHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	favs, err := h.favorites.Products(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, favs)
}
