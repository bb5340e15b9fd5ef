package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/policy"
	"github.com/diewo77/go-offers/internal/services"
)

func TestAddressHandler_Ownership(t *testing.T) {
	gdb, ag := setupTestDB(t)
	owner := createUser(t, gdb, "owner@eczane.test", models.RoleEczane, policy.ProfileEczaneStaff)
	other := createUser(t, gdb, "other@eczane.test", models.RoleEczane, policy.ProfileEczaneStaff)
	admin := createUser(t, gdb, "admin@offers.test", models.RoleFirma, policy.ProfileAdmin)
	h := NewAddressHandler(services.NewAddressService(gdb), ag)

	rr := httptest.NewRecorder()
	h.Create(rr, request(t, http.MethodPost, owner.ID, map[string]any{"title": "Depo", "line": "Atatürk Cd. 5", "city": "Ankara"}))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var a models.Address
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &a))
	id := fmt.Sprint(a.ID)

	rr = httptest.NewRecorder()
	h.View(rr, request(t, http.MethodGet, owner.ID, nil, "id", id))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.View(rr, request(t, http.MethodGet, other.ID, nil, "id", id))
	assert.Equal(t, http.StatusNotFound, rr.Code, "foreign addresses are hidden")

	rr = httptest.NewRecorder()
	h.Delete(rr, request(t, http.MethodDelete, other.ID, nil, "id", id))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	h.View(rr, request(t, http.MethodGet, admin.ID, nil, "id", id))
	assert.Equal(t, http.StatusOK, rr.Code, "admins bypass ownership")

	rr = httptest.NewRecorder()
	h.Create(rr, request(t, http.MethodPost, owner.ID, map[string]any{"title": "Eksik"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `"line":"required"`)

	rr = httptest.NewRecorder()
	h.List(rr, request(t, http.MethodGet, other.ID, nil))
	assert.JSONEq(t, `[]`, rr.Body.String())
}
