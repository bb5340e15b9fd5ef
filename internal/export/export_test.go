package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/pricing"
)

var exportedAt = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

func sampleOffer() *models.Offer {
	root := uint(7)
	sent := exportedAt.Add(-time.Hour)
	barcode := "8690000000001"
	return &models.Offer{
		ID:                   12,
		Status:               models.OfferSent,
		SentAt:               &sent,
		OriginalOfferID:      &root,
		RevisionNumber:       2,
		OverallDiscountType:  pricing.DiscountPercent,
		OverallDiscountValue: decimal.NewFromInt(10),
		User:                 &models.User{Name: "Ayşe Yılmaz", Email: "ayse@firma.test", OrganizationName: "Deva Ecza"},
		Items: []models.OfferItem{
			{
				ProductName:  "PAROL 500MG",
				Product:      &models.Product{Barcode: &barcode},
				Quantity:     10,
				UnitPrice:    decimal.RequireFromString("50"),
				VATRate:      10,
				DiscountType: pricing.DiscountNone,
			},
			{
				ProductName:   "ASPIRIN",
				Quantity:      2,
				UnitPrice:     decimal.RequireFromString("100"),
				VATRate:       20,
				DiscountType:  pricing.DiscountAmount,
				DiscountValue: decimal.RequireFromString("10"),
				DeliveryAddress: &models.Address{
					Title: "Depo", Line: "Atatürk Cd. 1", District: "Kadıköy", City: "İstanbul",
				},
			},
		},
	}
}

func TestReferenceAndStatus(t *testing.T) {
	o := sampleOffer()
	assert.Equal(t, "#7 (Rev.2)", Reference(o))
	assert.Equal(t, "#3", Reference(&models.Offer{ID: 3, RevisionNumber: 1}))
	assert.Equal(t, "Waiting", StatusLabel(models.OfferSent))
	assert.Equal(t, "archived", StatusLabel("archived"))
}

func TestFileName(t *testing.T) {
	a := FileName("offer-12", "pdf")
	b := FileName("offer-12", "pdf")
	assert.True(t, strings.HasPrefix(a, "offer-12-"))
	assert.True(t, strings.HasSuffix(a, ".pdf"))
	assert.Len(t, a, len("offer-12-")+8+len(".pdf"))
	assert.NotEqual(t, a, b)
}

func TestOfferPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, OfferPDF(&buf, sampleOffer(), exportedAt))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 500)
}

func TestOfferWorkbook(t *testing.T) {
	var buf bytes.Buffer
	o := sampleOffer()
	require.NoError(t, OfferWorkbook(&buf, o, exportedAt))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Offer", "Lines"}, f.GetSheetList())

	title, err := f.GetCellValue("Offer", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Offer #7 (Rev.2)", title)

	rows, err := f.GetRows("Lines")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Product", rows[0][1])
	assert.Equal(t, "PAROL 500MG", rows[1][1])
	assert.Equal(t, "8690000000001", rows[1][2])
	assert.Equal(t, "-", rows[1][10])
	assert.Equal(t, "ASPIRIN", rows[2][1])
	assert.Equal(t, "Depo: Atatürk Cd. 1, Kadıköy, İstanbul", rows[2][10])
	assert.Equal(t, "550", rows[1][9], "10 x 50 net plus 10% VAT")
}

func TestOfferListWorkbook(t *testing.T) {
	var buf bytes.Buffer
	first := sampleOffer()
	second := models.Offer{ID: 3, Status: models.OfferRejected, RevisionNumber: 1, RejectReason: "too expensive", OverallDiscountType: pricing.DiscountNone}
	require.NoError(t, OfferListWorkbook(&buf, []models.Offer{*first, second}, exportedAt))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Offers")
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "Offer report", rows[0][0])
	assert.Equal(t, []string{"#7", "Rev.2", "Ayşe Yılmaz", "Waiting"}, rows[4][:4])
	assert.Equal(t, "#3", rows[5][0])
	assert.Equal(t, "-", rows[5][2])
	assert.Equal(t, "too expensive", rows[5][10])
}

func TestProductListWorkbook(t *testing.T) {
	var buf bytes.Buffer
	barcode := "8691"
	products := []models.Product{
		{Name: "ASPIRIN", Price: decimal.RequireFromString("12.5"), VATRate: 10, PriceUpdatedAt: exportedAt},
		{Name: "PAROL", Barcode: &barcode, Price: decimal.RequireFromString("55.9"), VATRate: 10, PriceUpdatedAt: exportedAt},
	}
	require.NoError(t, ProductListWorkbook(&buf, products, exportedAt))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Products")
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "Exported 14.03.2026 10:30 | 2 products", rows[1][0])
	assert.Equal(t, []string{"1", "ASPIRIN", "-", "12.5", "10", "14.03.2026 10:30", "-"}, rows[4])
	assert.Equal(t, "8691", rows[5][2])
}
