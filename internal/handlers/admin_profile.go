package handlers

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/go-offers/httpx"
	"github.com/diewo77/go-offers/internal/models"
)

// AdminProfileHandler manages profiles and the permissions they grant.
type AdminProfileHandler struct {
	DB   *gorm.DB
	Gate Gate // invalidated whenever a profile changes
}

func NewAdminProfileHandler(db *gorm.DB, g Gate) *AdminProfileHandler {
	return &AdminProfileHandler{DB: db, Gate: g}
}

type profileRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// List returns every profile with its permissions and user count.
func (h *AdminProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	type profileRow struct {
		models.Profile
		UserCount int `json:"user_count"`
	}
	var profiles []models.Profile
	if err := h.DB.WithContext(r.Context()).Preload("Permissions").Preload("Users").Order("name").Find(&profiles).Error; err != nil {
		writeError(w, r, err)
		return
	}
	rows := make([]profileRow, 0, len(profiles))
	for _, p := range profiles {
		n := len(p.Users)
		p.Users = nil
		rows = append(rows, profileRow{Profile: p, UserCount: n})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"profiles": rows})
}

func (h *AdminProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := httpx.Decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	profile := models.Profile{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	}
	if profile.Name == "" {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", map[string]string{"name": "required"})
		return
	}
	if err := h.DB.WithContext(r.Context()).Create(&profile).Error; err != nil {
		if duplicate(err) {
			httpx.JSONError(w, http.StatusConflict, "name_already_exists", nil)
			return
		}
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, profile)
}

// load answers 404 itself when the profile does not exist.
func (h *AdminProfileHandler) load(w http.ResponseWriter, r *http.Request, preload ...string) (*models.Profile, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	q := h.DB.WithContext(r.Context())
	for _, p := range preload {
		q = q.Preload(p)
	}
	var profile models.Profile
	if err := q.First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		} else {
			writeError(w, r, err)
		}
		return nil, false
	}
	return &profile, true
}

// Update renames a profile. System profiles keep their name.
func (h *AdminProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if err := httpx.Decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name != "" && name != profile.Name {
		if profile.IsSystem {
			httpx.JSONError(w, http.StatusForbidden, "cannot_rename_system_profile", nil)
			return
		}
		profile.Name = name
	}
	profile.Description = strings.TrimSpace(req.Description)
	if err := h.DB.WithContext(r.Context()).Save(profile).Error; err != nil {
		if duplicate(err) {
			httpx.JSONError(w, http.StatusConflict, "name_already_exists", nil)
			return
		}
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *AdminProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r, "Users")
	if !ok {
		return
	}
	if profile.IsSystem {
		httpx.JSONError(w, http.StatusForbidden, "cannot_delete_system_profile", nil)
		return
	}
	if len(profile.Users) > 0 {
		httpx.JSONError(w, http.StatusConflict, "profile_has_users", nil)
		return
	}
	if err := h.DB.WithContext(r.Context()).Delete(profile).Error; err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

type permissionsRequest struct {
	PermissionIDs []uint `json:"permission_ids"`
}

// SetPermissions replaces the permission set of a profile.
func (h *AdminProfileHandler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	var req permissionsRequest
	if err := httpx.Decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	permissions := []models.Permission{}
	if len(req.PermissionIDs) > 0 {
		if err := h.DB.WithContext(r.Context()).Where("id IN ?", req.PermissionIDs).Find(&permissions).Error; err != nil {
			writeError(w, r, err)
			return
		}
	}
	if len(permissions) != len(dedupe(req.PermissionIDs)) {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", map[string]string{"permission_ids": "not_found"})
		return
	}
	if err := h.DB.WithContext(r.Context()).Model(profile).Association("Permissions").Replace(permissions); err != nil {
		writeError(w, r, err)
		return
	}
	if h.Gate != nil {
		h.Gate.InvalidateAll()
	}
	profile.Permissions = permissions
	httpx.JSON(w, http.StatusOK, profile)
}

// ListPermissions returns every known permission.
func (h *AdminProfileHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	permissions := []models.Permission{}
	if err := h.DB.WithContext(r.Context()).Order("resource_type, action").Find(&permissions).Error; err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, permissions)
}

func duplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
