package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/go-offers/internal/config"
	"github.com/diewo77/go-offers/internal/db"
	"github.com/diewo77/go-offers/internal/logging"
	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/policy"
)

const testPassword = "secret-pass"

func newTestApp(t *testing.T) (*App, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))
	require.NoError(t, db.Seed(gdb))

	cfg := &config.Config{
		App: config.AppConfig{ProfileCacheTTL: time.Minute},
		Offers: config.OfferConfig{
			HighValueThreshold:  decimal.NewFromInt(50000),
			HighDiscountPercent: decimal.NewFromInt(20),
		},
	}
	return NewApp(gdb, cfg, zerolog.Nop()), gdb
}

func createUser(t *testing.T, gdb *gorm.DB, email string, role models.Role, profile string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	var p models.Profile
	require.NoError(t, gdb.Where("name = ?", profile).First(&p).Error)
	u := models.User{
		Email:      email,
		Password:   string(hash),
		Role:       role,
		IsApproved: true,
		IsActive:   true,
		ProfileID:  &p.ID,
	}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

// client replays the session cookie of one user.
type client struct {
	t       *testing.T
	app     *App
	cookies []*http.Cookie
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rr := httptest.NewRecorder()
	c.app.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, app *App, email string) *client {
	t.Helper()
	c := &client{t: t, app: app}
	rr := c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": testPassword})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	c.cookies = rr.Result().Cookies()
	require.NotEmpty(t, c.cookies)
	return c
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthAndRequestID(t *testing.T) {
	app, _ := newTestApp(t)
	anon := &client{t: t, app: app}

	rr := anon.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(logging.RequestIDHeader))

	rr = anon.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestAuthentication(t *testing.T) {
	app, gdb := newTestApp(t)
	createUser(t, gdb, "staff@firma.test", models.RoleFirma, policy.ProfileFirmaStaff)
	anon := &client{t: t, app: app}

	rr := anon.do(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = anon.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "staff@firma.test", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid_credentials")

	staff := login(t, app, "staff@firma.test")
	rr = staff.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decode[struct {
		Capabilities []string `json:"capabilities"`
		IsAdmin      bool     `json:"is_admin"`
	}](t, rr)
	assert.Contains(t, me.Capabilities, string(policy.CapOfferSend))
	assert.False(t, me.IsAdmin)

	rr = staff.do(http.MethodPost, "/api/auth/signup", map[string]any{
		"email": "new@eczane.test", "password": "long-enough-1", "name": "New", "role": "eczane",
		"organization_name": "Merkez Eczanesi", "is_manager": true,
	})
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = anon.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "new@eczane.test", "password": "long-enough-1"})
	assert.Equal(t, http.StatusForbidden, rr.Code, "pending accounts cannot log in")
}

func TestRouteCapabilities(t *testing.T) {
	app, gdb := newTestApp(t)
	createUser(t, gdb, "staff@firma.test", models.RoleFirma, policy.ProfileFirmaStaff)
	createUser(t, gdb, "eczaci@eczane.test", models.RoleEczane, policy.ProfileEczaci)
	createUser(t, gdb, "admin@offers.test", models.RoleFirma, policy.ProfileAdmin)

	staff := login(t, app, "staff@firma.test")
	pharmacist := login(t, app, "eczaci@eczane.test")
	admin := login(t, app, "admin@offers.test")

	rr := staff.do(http.MethodPost, "/api/products", map[string]any{"name": "aspirin", "price": "10"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = pharmacist.do(http.MethodGet, "/api/admin/profiles", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = admin.do(http.MethodGet, "/api/admin/profiles", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), policy.ProfileEczaci)

	rr = pharmacist.do(http.MethodGet, "/api/cart", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestOfferFlow(t *testing.T) {
	app, gdb := newTestApp(t)
	createUser(t, gdb, "staff@firma.test", models.RoleFirma, policy.ProfileFirmaStaff)
	createUser(t, gdb, "eczaci@eczane.test", models.RoleEczane, policy.ProfileEczaci)
	staff := login(t, app, "staff@firma.test")
	pharmacist := login(t, app, "eczaci@eczane.test")

	rr := pharmacist.do(http.MethodPost, "/api/products", map[string]any{"name": "aspirin 100mg", "price": "118", "vat_rate": 18})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	product := decode[models.Product](t, rr)
	assert.Equal(t, "ASPIRIN 100MG", product.Name)

	rr = staff.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": product.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = staff.do(http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	type offerBody struct {
		Offer struct {
			ID     uint   `json:"id"`
			Status string `json:"status"`
		} `json:"offer"`
		Escalated bool `json:"escalated"`
	}
	cart := decode[offerBody](t, rr)
	require.NotZero(t, cart.Offer.ID)
	offerPath := fmt.Sprintf("/api/offers/%d", cart.Offer.ID)

	rr = staff.do(http.MethodPost, offerPath+"/submit", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	sent := decode[offerBody](t, rr)
	assert.Equal(t, "sent", sent.Offer.Status)
	assert.False(t, sent.Escalated)

	rr = staff.do(http.MethodPost, offerPath+"/submit", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = pharmacist.do(http.MethodGet, "/api/inbox", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]json.RawMessage](t, rr), 1)

	rr = pharmacist.do(http.MethodPost, offerPath+"/approve", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "approved", decode[offerBody](t, rr).Offer.Status)

	rr = staff.do(http.MethodGet, offerPath+"/pdf", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "%PDF-"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "offer-")

	rr = staff.do(http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Offer approved")
}

func TestManagerApprovesOwnStaff(t *testing.T) {
	app, gdb := newTestApp(t)
	manager := createUser(t, gdb, "boss@firma.test", models.RoleFirma, policy.ProfileFirmaManager)
	require.NoError(t, gdb.Model(&manager).Update("is_manager", true).Error)
	createUser(t, gdb, "staff@firma.test", models.RoleFirma, policy.ProfileFirmaStaff)
	boss := login(t, app, "boss@firma.test")
	anon := &client{t: t, app: app}

	rr := anon.do(http.MethodPost, "/api/auth/signup", map[string]any{
		"email": "junior@firma.test", "password": "long-enough-1", "role": "firma", "manager_id": manager.ID,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	junior := decode[models.User](t, rr)

	rr = boss.do(http.MethodGet, "/api/users?pending=true", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	pending := decode[struct {
		Users []models.User `json:"users"`
	}](t, rr)
	require.Len(t, pending.Users, 1)
	assert.Equal(t, junior.ID, pending.Users[0].ID)

	staff := login(t, app, "staff@firma.test")
	rr = staff.do(http.MethodPost, fmt.Sprintf("/api/users/%d/approve", junior.ID), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = boss.do(http.MethodPost, fmt.Sprintf("/api/users/%d/approve", junior.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	approved := decode[models.User](t, rr)
	assert.True(t, approved.IsApproved)
	require.NotNil(t, approved.Profile)
	assert.Equal(t, policy.ProfileFirmaStaff, approved.Profile.Name)

	login(t, app, "junior@firma.test")
}
