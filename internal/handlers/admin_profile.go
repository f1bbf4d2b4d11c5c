package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/gate"
	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/middleware"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/validation"
)

// AdminProfileHandler manages profiles and their permissions.
type AdminProfileHandler struct {
	DB            *gorm.DB
	CacheResolver *gate.CachedResolver[uint] // invalidated on every change
}

func NewAdminProfileHandler(db *gorm.DB, cacheResolver *gate.CachedResolver[uint]) *AdminProfileHandler {
	return &AdminProfileHandler{DB: db, CacheResolver: cacheResolver}
}

type profileInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type profileView struct {
	models.Profile
	Codes     []string `json:"permission_codes"`
	UserCount int64    `json:"user_count"`
}

func (h *AdminProfileHandler) invalidate() {
	if h.CacheResolver != nil {
		h.CacheResolver.InvalidateAll()
	}
}

// List returns every profile with its permission codes and user count.
func (h *AdminProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	db := h.DB.WithContext(r.Context())
	var profiles []models.Profile
	if err := db.Preload("Permissions").Order("name").Find(&profiles).Error; err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]profileView, len(profiles))
	for i, p := range profiles {
		out[i] = profileView{Profile: p, Codes: p.PermissionCodes()}
		if err := db.Model(&models.User{}).Where("profile_id = ?", p.ID).Count(&out[i].UserCount).Error; err != nil {
			writeError(w, r, err)
			return
		}
		out[i].Permissions = nil
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"profiles": out})
}

// ListPermissions returns every known permission.
func (h *AdminProfileHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	var perms []models.Permission
	if err := h.DB.WithContext(r.Context()).Order("resource_type, action").Find(&perms).Error; err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func (h *AdminProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in profileInput
	if !decode(w, r, &in) {
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 100, v)
	if !v.Empty() {
		httpx.ValidationError(w, r, v)
		return
	}
	perms, ok := h.permissions(w, r, in.Permissions)
	if !ok {
		return
	}

	profile := models.Profile{Name: in.Name, Description: strings.TrimSpace(in.Description), Permissions: perms}
	err := h.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Unscoped().Model(&models.Profile{}).Where("name = ?", profile.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return gorm.ErrDuplicatedKey
		}
		return tx.Create(&profile).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		httpx.ValidationError(w, r, validation.Violations{"name": "already_exists"})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.Logger(r.Context()).Info("profile created", zap.String("profile", profile.Name))
	httpx.JSON(w, http.StatusCreated, profile)
}

// load fetches the profile of the path.
func (h *AdminProfileHandler) load(w http.ResponseWriter, r *http.Request) (*models.Profile, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	var profile models.Profile
	if err := h.DB.WithContext(r.Context()).Preload("Permissions").First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Error(w, r, http.StatusNotFound, "not_found")
		} else {
			writeError(w, r, err)
		}
		return nil, false
	}
	return &profile, true
}

// Update changes the description, and the name of non-system profiles.
func (h *AdminProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	var in profileInput
	if !decode(w, r, &in) {
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name != "" && in.Name != profile.Name {
		if profile.IsSystem {
			httpx.Error(w, r, http.StatusForbidden, "forbidden")
			return
		}
		profile.Name = in.Name
	}
	profile.Description = strings.TrimSpace(in.Description)
	if err := h.DB.WithContext(r.Context()).Omit("Permissions").Save(profile).Error; err != nil {
		writeError(w, r, err)
		return
	}
	h.invalidate()
	httpx.JSON(w, http.StatusOK, profile)
}

// Delete refuses system profiles and profiles still assigned to users.
func (h *AdminProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	if profile.IsSystem {
		httpx.Error(w, r, http.StatusForbidden, "forbidden")
		return
	}
	db := h.DB.WithContext(r.Context())
	var users int64
	if err := db.Model(&models.User{}).Where("profile_id = ?", profile.ID).Count(&users).Error; err != nil {
		writeError(w, r, err)
		return
	}
	if users > 0 {
		httpx.Error(w, r, http.StatusConflict, "in_use")
		return
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(profile).Association("Permissions").Clear(); err != nil {
			return err
		}
		return tx.Delete(profile).Error
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.invalidate()
	w.WriteHeader(http.StatusNoContent)
}

// SavePermissions replaces the profile permissions with the given codes.
func (h *AdminProfileHandler) SavePermissions(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	var in profileInput
	if !decode(w, r, &in) {
		return
	}
	perms, ok := h.permissions(w, r, in.Permissions)
	if !ok {
		return
	}
	if err := h.DB.WithContext(r.Context()).Model(profile).Association("Permissions").Replace(perms); err != nil {
		writeError(w, r, err)
		return
	}
	h.invalidate()
	profile.Permissions = perms
	httpx.JSON(w, http.StatusOK, profileView{Profile: *profile, Codes: profile.PermissionCodes()})
}

// permissions resolves "resource:action" codes to rows. Unknown codes are a
// validation error.
func (h *AdminProfileHandler) permissions(w http.ResponseWriter, r *http.Request, codes []string) ([]models.Permission, bool) {
	if len(codes) == 0 {
		return []models.Permission{}, true
	}
	var all []models.Permission
	if err := h.DB.WithContext(r.Context()).Find(&all).Error; err != nil {
		writeError(w, r, err)
		return nil, false
	}
	byCode := make(map[string]models.Permission, len(all))
	for _, p := range all {
		byCode[p.Code()] = p
	}
	out := make([]models.Permission, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		p, ok := byCode[c]
		if !ok {
			httpx.ValidationError(w, r, validation.Violations{"permissions": validation.CodeOutOfRange})
			return nil, false
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, p)
		}
	}
	return out, true
}
