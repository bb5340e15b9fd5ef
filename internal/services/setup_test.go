package services

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/go-offers/internal/db"
	"github.com/diewo77/go-offers/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
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
	return gdb
}

// recordingCache remembers invalidated users.
type recordingCache struct {
	mu    sync.Mutex
	users []uint
}

func (c *recordingCache) InvalidateUser(ids ...uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = append(c.users, ids...)
}

func (c *recordingCache) invalidated() []uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint(nil), c.users...)
}

type userOpt func(*models.User)

func managedBy(m models.User) userOpt {
	return func(u *models.User) { u.ManagerID = &m.ID }
}

func pending(u *models.User) { u.IsApproved = false }

func createUser(t *testing.T, gdb *gorm.DB, email string, role models.Role, manager bool, opts ...userOpt) models.User {
	t.Helper()
	u := models.User{
		Email:      email,
		Password:   "x",
		Role:       role,
		IsManager:  manager,
		IsApproved: true,
		IsActive:   true,
	}
	for _, o := range opts {
		o(&u)
	}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

func withProfile(t *testing.T, gdb *gorm.DB, u *models.User, name string) {
	t.Helper()
	var p models.Profile
	require.NoError(t, gdb.Where("name = ?", name).First(&p).Error)
	require.NoError(t, gdb.Model(u).Update("profile_id", p.ID).Error)
	u.ProfileID = &p.ID
}
