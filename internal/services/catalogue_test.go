package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/pricing"
)

func workbook(t *testing.T, rows [][]any) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &rows[i]))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestCatalogueService_Create(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewCatalogueService(gdb)
	ctx := context.Background()

	p, err := svc.Create(ctx, ProductInput{Name: "  parol 500mg ", Price: decimal.RequireFromString("55.904")})
	require.NoError(t, err)
	assert.Equal(t, "PAROL 500MG", p.Name)
	assert.Equal(t, models.DefaultVATRate, p.VATRate)
	assert.Equal(t, "55.9", p.Price.String())
	assert.Nil(t, p.Barcode)
	assert.False(t, p.PriceUpdatedAt.IsZero())

	_, err = svc.Create(ctx, ProductInput{Name: "PAROL 500MG", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrConflict)

	rate := 120
	_, err = svc.Create(ctx, ProductInput{Name: "", Price: decimal.NewFromInt(-1), VATRate: &rate})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "required", verr.Violations["name"])
	assert.Equal(t, "must_not_be_negative", verr.Violations["price"])
	assert.Equal(t, "out_of_range", verr.Violations["vat_rate"])
}

func TestCatalogueService_PriceChangeKeepsOfferSnapshots(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewCatalogueService(gdb)
	ctx := context.Background()
	u := createUser(t, gdb, "a@test", models.RoleFirma, false)

	created := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return created }
	p, err := svc.Create(ctx, ProductInput{Name: "IBUPROFEN", Price: decimal.RequireFromString("110")})
	require.NoError(t, err)

	offer := models.Offer{UserID: u.ID, Status: models.OfferDraft, RevisionNumber: 1, OverallDiscountType: pricing.DiscountNone}
	require.NoError(t, gdb.Create(&offer).Error)
	item := models.OfferItem{OfferID: offer.ID, ProductID: p.ID, ProductName: p.Name, Quantity: 1, UnitPrice: p.NetPrice(), VATRate: p.VATRate, DiscountType: pricing.DiscountNone}
	require.NoError(t, gdb.Create(&item).Error)

	changed := created.Add(48 * time.Hour)
	svc.now = func() time.Time { return changed }
	updated, err := svc.UpdatePrice(ctx, p.ID, decimal.RequireFromString("132"))
	require.NoError(t, err)
	assert.Equal(t, "132", updated.Price.String())
	assert.True(t, updated.PriceUpdatedAt.Equal(changed))

	var stored models.OfferItem
	require.NoError(t, gdb.First(&stored, item.ID).Error)
	assert.Equal(t, "100", stored.UnitPrice.String(), "offer items keep the price snapshot")

	renamed, err := svc.Update(ctx, p.ID, ProductInput{Name: "ibuprofen 400mg", Price: decimal.RequireFromString("132")})
	require.NoError(t, err)
	assert.Equal(t, "IBUPROFEN 400MG", renamed.Name)
	assert.True(t, renamed.PriceUpdatedAt.Equal(changed), "same price keeps the price date")

	_, err = svc.UpdatePrice(ctx, 9999, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogueService_ListAndDelete(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewCatalogueService(gdb)
	ctx := context.Background()
	for _, in := range []ProductInput{
		{Name: "Aspirin 100mg", Barcode: "8690001", Price: decimal.NewFromInt(20)},
		{Name: "Aspirin 500mg", Barcode: "8690002", Price: decimal.NewFromInt(30)},
		{Name: "Parol", Barcode: "8691111", Price: decimal.NewFromInt(40)},
	} {
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}

	list, total, err := svc.List(ctx, ProductFilter{Query: "aspirin"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "ASPIRIN 100MG", list[0].Name)

	list, total, err = svc.List(ctx, ProductFilter{Query: "8691"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "PAROL", list[0].Name)

	require.NoError(t, svc.Delete(ctx, list[0].ID))
	assert.ErrorIs(t, svc.Delete(ctx, list[0].ID), ErrNotFound)
	_, total, err = svc.List(ctx, ProductFilter{Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	all, err := svc.All(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2, "deleted products are not exported")
	assert.Equal(t, "ASPIRIN 500MG", all[1].Name)
	all, err = svc.All(ctx, "500")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCatalogueService_Import(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewCatalogueService(gdb)
	ctx := context.Background()

	res, err := svc.Import(ctx, workbook(t, [][]any{
		{"Ürün Adı", "Barkod", "Fiyat", "KDV"},
		{"parol 500mg", "8690000000001", "55,90", 10},
		{"", "ignored", 1, 1},
		{"BROKEN", "", "abc", 10},
		{"aspirin", "", 12.5},
		{"Parol 500MG", "", 1, 10},
		{"VITAMIN C", "", "15", "1,5"},
	}))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Added)
	assert.Equal(t, 2, res.Skipped)
	assert.Len(t, res.Errors, 2)

	var parol, aspirin, vitamin models.Product
	require.NoError(t, gdb.Where("name = ?", "PAROL 500MG").First(&parol).Error)
	assert.Equal(t, "55.9", parol.Price.String())
	require.NotNil(t, parol.Barcode)
	assert.Equal(t, "8690000000001", *parol.Barcode)

	require.NoError(t, gdb.Where("name = ?", "ASPIRIN").First(&aspirin).Error)
	assert.Equal(t, models.DefaultVATRate, aspirin.VATRate)
	assert.Equal(t, "12.5", aspirin.Price.String())

	require.NoError(t, gdb.Where("name = ?", "VITAMIN C").First(&vitamin).Error)
	assert.Equal(t, 1, vitamin.VATRate)

	_, err = svc.Import(ctx, bytes.NewReader([]byte("not a workbook")))
	assert.Error(t, err)
}
