package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/diewo77/go-offers/internal/export"
	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/services"
)

func TestExportHandler_Products(t *testing.T) {
	gdb, _ := setupTestDB(t)
	u := createUser(t, gdb, "eczaci@eczane.test", models.RoleEczane, "")
	catalogue := services.NewCatalogueService(gdb)
	for _, name := range []string{"PARACETAMOL 500MG", "ASPIRIN 100MG"} {
		_, err := catalogue.Create(context.Background(), services.ProductInput{Name: name, Price: decimal.NewFromInt(20)})
		require.NoError(t, err)
	}

	h := NewExportHandler(nil, catalogue)
	h.now = func() time.Time { return time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC) }
	rr := httptest.NewRecorder()
	h.Products(rr, request(t, http.MethodGet, u.ID, nil))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, export.ContentTypeXLSX, rr.Header().Get("Content-Type"))
	assert.Regexp(t, `attachment; filename="products-[0-9a-f]{8}\.xlsx"`, rr.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(rr.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Products")
	require.NoError(t, err)
	assert.Contains(t, rows[1][0], "02.03.2026 09:30")
	assert.Contains(t, rows[1][0], "2 products")
}

func TestSendRenderFailureAnswersJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	send(rr, request(t, http.MethodGet, 1, nil), export.ContentTypePDF, "x.pdf", func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("font missing")
	})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, rr.Header().Get("Content-Disposition"))
	assert.JSONEq(t, `{"error":"internal_error"}`, rr.Body.String())
}
