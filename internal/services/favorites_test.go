package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/pricing"
)

func TestFavoriteService_Products(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewFavoriteService(gdb)
	ctx := context.Background()
	u := createUser(t, gdb, "a@test", models.RoleFirma, false)
	p := models.Product{Name: "ASPIRIN 100MG", Price: decimal.RequireFromString("45.50"), VATRate: 10}
	require.NoError(t, gdb.Create(&p).Error)

	added, err := svc.ToggleProduct(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, added)

	favs, err := svc.Products(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	require.NotNil(t, favs[0].Product)
	assert.Equal(t, "ASPIRIN 100MG", favs[0].Product.Name)

	added, err = svc.ToggleProduct(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, added)
	favs, err = svc.Products(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, favs)

	_, err = svc.ToggleProduct(ctx, u.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFavoriteService_Drafts(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewFavoriteService(gdb)
	ctx := context.Background()
	u := createUser(t, gdb, "a@test", models.RoleFirma, false)
	other := createUser(t, gdb, "b@test", models.RoleFirma, false)

	draft := models.Offer{UserID: u.ID, Status: models.OfferDraft, RevisionNumber: 1, OverallDiscountType: pricing.DiscountNone}
	sent := models.Offer{UserID: u.ID, Status: models.OfferSent, RevisionNumber: 1, OverallDiscountType: pricing.DiscountNone}
	require.NoError(t, gdb.Create(&draft).Error)
	require.NoError(t, gdb.Create(&sent).Error)

	added, err := svc.ToggleDraft(ctx, u.ID, draft.ID, "  weekly order ")
	require.NoError(t, err)
	assert.True(t, added)

	drafts, err := svc.Drafts(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "weekly order", drafts[0].Note)
	assert.Equal(t, draft.ID, drafts[0].Offer.ID)

	_, err = svc.ToggleDraft(ctx, u.ID, sent.ID, "")
	assert.ErrorIs(t, err, ErrNotFound, "only drafts can be bookmarked")
	_, err = svc.ToggleDraft(ctx, other.ID, draft.ID, "")
	assert.ErrorIs(t, err, ErrNotFound, "only own drafts can be bookmarked")

	added, err = svc.ToggleDraft(ctx, u.ID, draft.ID, "")
	require.NoError(t, err)
	assert.False(t, added)
}
