package offers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/go-offers/gate"
	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/policy"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) to(userID uint) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.sent {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type recordingActivity struct {
	mu      sync.Mutex
	entries []models.ActivityLog
}

func (r *recordingActivity) Record(_ context.Context, e models.ActivityLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordingActivity) actions() []models.ActivityAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ActivityAction, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

type testEnv struct {
	db       *gorm.DB
	svc      *Service
	profiles *gate.StaticResolver[uint]
	notes    *recordingNotifier
	log      *recordingActivity
	seq      int

	manager    models.User // firma manager
	staff      models.User // firma staff reporting to manager
	pharmacist models.User // eczaci
	clerk      models.User // eczane staff reporting to pharmacist
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	env := &testEnv{
		db:       db,
		profiles: gate.NewStaticResolver[uint](),
		notes:    &recordingNotifier{},
		log:      &recordingActivity{},
	}
	env.svc = NewService(Deps{
		DB:       db,
		Caps:     gate.NewHybridGate[uint](env.profiles),
		Notifier: env.notes,
		Activity: env.log,
	}, DefaultConfig())

	env.manager = env.user(t, "manager@firma.test", models.RoleFirma, true, nil, policy.ProfileFirmaManager)
	env.staff = env.user(t, "staff@firma.test", models.RoleFirma, false, &env.manager.ID, policy.ProfileFirmaStaff)
	env.pharmacist = env.user(t, "eczaci@eczane.test", models.RoleEczane, true, nil, policy.ProfileEczaci)
	env.clerk = env.user(t, "clerk@eczane.test", models.RoleEczane, false, &env.pharmacist.ID, policy.ProfileEczaneStaff)
	return env
}

func (e *testEnv) user(t *testing.T, email string, role models.Role, manager bool, managerID *uint, profile string) models.User {
	t.Helper()
	u := models.User{
		Email:      email,
		Password:   "x",
		Role:       role,
		IsManager:  manager,
		IsApproved: true,
		IsActive:   true,
		ManagerID:  managerID,
	}
	require.NoError(t, e.db.Create(&u).Error)
	e.grant(u.ID, profile)
	return u
}

func (e *testEnv) grant(userID uint, profile string, extra ...gate.Permission) {
	perms := append(append([]gate.Permission{}, policy.SystemProfiles[profile]...), extra...)
	e.profiles.Set(userID, gate.NewStaticProfile(userID, profile, perms...))
}

// product creates a catalogue entry with a VAT-inclusive price.
func (e *testEnv) product(t *testing.T, name, gross string, vat int) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: decimal.RequireFromString(gross), VATRate: vat}
	require.NoError(t, e.db.Create(&p).Error)
	return p
}

// draftWith fills the user's cart with the given products and quantities.
func (e *testEnv) draftWith(t *testing.T, userID uint, lines map[*models.Product]int) *models.Offer {
	t.Helper()
	ctx := context.Background()
	for p, qty := range lines {
		_, err := e.svc.AddItem(ctx, userID, p.ID, qty)
		require.NoError(t, err)
	}
	o, err := e.svc.ActiveDraft(ctx, userID)
	require.NoError(t, err)
	return o
}

// sentOffer returns a low-value offer already sent to the pharmacy.
func (e *testEnv) sentOffer(t *testing.T) *models.Offer {
	t.Helper()
	e.seq++
	p := e.product(t, fmt.Sprintf("PARACETAMOL 500MG #%d", e.seq), "110.00", 10)
	o := e.draftWith(t, e.staff.ID, map[*models.Product]int{&p: 2})
	res, err := e.svc.Submit(context.Background(), o.ID, e.staff.ID)
	require.NoError(t, err)
	require.Equal(t, models.OfferSent, res.Offer.Status)
	return res.Offer
}

func (e *testEnv) reload(t *testing.T, id uint) models.Offer {
	t.Helper()
	var o models.Offer
	require.NoError(t, e.db.Preload("Items").First(&o, id).Error)
	return o
}
