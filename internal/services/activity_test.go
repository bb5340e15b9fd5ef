package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/go-offers/internal/logging"
	"github.com/diewo77/go-offers/internal/models"
)

func TestActivityService_RecordAndList(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewActivityService(gdb)
	u := createUser(t, gdb, "a@test", models.RoleFirma, false)
	offerID := uint(7)
	ctx := logging.WithClientIP(context.Background(), "10.0.0.9")

	require.NoError(t, svc.Record(ctx, models.ActivityLog{UserID: u.ID, Action: models.ActivityOfferCreated, OfferID: &offerID}))
	require.NoError(t, svc.Record(ctx, models.ActivityLog{UserID: u.ID, Action: models.ActivityOfferSent, OfferID: &offerID, IPAddress: "192.0.2.1"}))
	require.NoError(t, svc.Record(context.Background(), models.ActivityLog{UserID: u.ID, Action: models.ActivityUserApproved, TargetUserID: &u.ID}))

	logs, err := svc.ForOffer(context.Background(), offerID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.ActivityOfferCreated, logs[0].Action)
	assert.Equal(t, "10.0.0.9", logs[0].IPAddress)
	assert.Equal(t, "192.0.2.1", logs[1].IPAddress)

	mine, err := svc.ForUser(context.Background(), u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 3)
	assert.Equal(t, models.ActivityUserApproved, mine[0].Action)
}
