package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/gate"
	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/middleware"
	"github.com/diewo77/go-facturas/internal/models"
)

// AdminUserProfileHandler assigns profiles to users.
type AdminUserProfileHandler struct {
	DB            *gorm.DB
	CacheResolver *gate.CachedResolver[uint]
}

func NewAdminUserProfileHandler(db *gorm.DB, cacheResolver *gate.CachedResolver[uint]) *AdminUserProfileHandler {
	return &AdminUserProfileHandler{DB: db, CacheResolver: cacheResolver}
}

// List returns users with their profile, paginated like the other lists.
func (h *AdminUserProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	tx := h.DB.WithContext(r.Context()).Model(&models.User{})
	if q.Search != "" {
		tx = tx.Where("LOWER(email) LIKE ?", "%"+models.NormalizeEmail(q.Search)+"%")
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		writeError(w, r, err)
		return
	}
	var users []models.User
	err := tx.Preload("Profile").Order("email").Limit(q.Limit).Offset((q.Page - 1) * q.Limit).Find(&users).Error
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": users, "total": total, "page": q.Page, "limit": q.Limit})
}

type assignRequest struct {
	ProfileID *uint `json:"profile_id"`
}

// AssignProfile sets or clears (profile_id null) the user's profile.
func (h *AdminUserProfileHandler) AssignProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req assignRequest
	if !decode(w, r, &req) {
		return
	}
	db := h.DB.WithContext(r.Context())
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Error(w, r, http.StatusNotFound, "not_found")
		} else {
			writeError(w, r, err)
		}
		return
	}
	if req.ProfileID != nil {
		var count int64
		if err := db.Model(&models.Profile{}).Where("id = ?", *req.ProfileID).Count(&count).Error; err != nil {
			writeError(w, r, err)
			return
		}
		if count == 0 {
			httpx.ValidationError(w, r, map[string]string{"profile_id": "not_found"})
			return
		}
	}
	if err := db.Model(&user).Update("profile_id", req.ProfileID).Error; err != nil {
		writeError(w, r, err)
		return
	}
	if h.CacheResolver != nil {
		h.CacheResolver.Invalidate(user.ID)
	}
	middleware.Logger(r.Context()).Info("profile assigned", zap.Uint("target_user_id", user.ID), zap.Any("profile_id", req.ProfileID))
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": user.ID, "profile_id": req.ProfileID})
}
