package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/go-offers/auth"
	"github.com/diewo77/go-offers/internal/db"
	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/policy"
)

func setupTestDB(t *testing.T) (*gorm.DB, *policy.AuthGate) {
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
	return gdb, policy.NewAppGate(gdb, time.Minute)
}

func createUser(t *testing.T, gdb *gorm.DB, email string, role models.Role, profile string) models.User {
	t.Helper()
	u := models.User{Email: email, Password: "x", Role: role, IsApproved: true, IsActive: true}
	if profile != "" {
		var p models.Profile
		require.NoError(t, gdb.Where("name = ?", profile).First(&p).Error)
		u.ProfileID = &p.ID
	}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

// request builds a JSON request acting as uid, with optional path values
// given as name, value pairs.
func request(t *testing.T, method string, uid uint, body any, path ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/", &buf)
	if uid != 0 {
		req = req.WithContext(auth.WithUserID(req.Context(), uid))
	}
	for i := 0; i+1 < len(path); i += 2 {
		req.SetPathValue(path[i], path[i+1])
	}
	return req
}
