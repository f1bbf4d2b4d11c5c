package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/auth"
	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/i18n"
	"github.com/diewo77/go-facturas/internal/middleware"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/validation"
	"github.com/diewo77/go-facturas/view"
)

const minPasswordLen = 8

type AuthHandler struct {
	db *gorm.DB
}

func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{db: db}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// readCredentials accepts a JSON body or a classic form post.
func readCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if httpx.IsJSONBody(r) {
		if err := httpx.Decode(r, &c); err != nil {
			return c, err
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return c, err
		}
		c.Email = r.FormValue("email")
		c.Password = r.FormValue("password")
		c.Name = r.FormValue("name")
	}
	c.Email = models.NormalizeEmail(c.Email)
	c.Name = strings.TrimSpace(c.Name)
	return c, nil
}

// LoginPage renders the login form.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login.html", map[string]any{"Email": ""})
}

// SignupPage renders the signup form.
func (h *AuthHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "signup.html", map[string]any{"Email": "", "Name": ""})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(r)
	if err != nil {
		httpx.Error(w, r, http.StatusBadRequest, "invalid_request")
		return
	}
	v := validation.Violations{}
	validation.Required("email", c.Email, v)
	validation.Required("password", c.Password, v)
	if !v.Empty() {
		h.fail(w, r, "login.html", c, v, "")
		return
	}

	var user models.User
	err = h.db.WithContext(r.Context()).Where("email = ?", c.Email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, r, err)
		return
	}
	if err != nil || !user.CheckPassword(c.Password) {
		middleware.Logger(r.Context()).Info("login rejected", zap.String("email", c.Email))
		h.fail(w, r, "login.html", c, nil, "invalid_credentials")
		return
	}
	h.startSession(w, r, &user, http.StatusOK)
}

// Signup creates the account with the owner profile and logs it in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(r)
	if err != nil {
		httpx.Error(w, r, http.StatusBadRequest, "invalid_request")
		return
	}
	v := validation.Violations{}
	validation.Required("email", c.Email, v)
	validation.Email("email", c.Email, v)
	validation.Required("password", c.Password, v)
	validation.MinLen("password", c.Password, minPasswordLen, v)
	validation.MaxLen("name", c.Name, 255, v)
	if !v.Empty() {
		h.fail(w, r, "signup.html", c, v, "")
		return
	}

	user := models.User{Email: c.Email, Name: c.Name}
	if err := user.SetPassword(c.Password); err != nil {
		writeError(w, r, err)
		return
	}
	err = h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return gorm.ErrDuplicatedKey
		}
		var owner models.Profile
		if err := tx.Where("name = ?", models.ProfileOwner).First(&owner).Error; err == nil {
			user.ProfileID = &owner.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&user).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		h.fail(w, r, "signup.html", c, validation.Violations{"email": "already_exists"}, "")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user.ProfileID == nil {
		middleware.Logger(r.Context()).Warn("owner profile missing, run seed", zap.String("profile", models.ProfileOwner))
	}
	middleware.Logger(r.Context()).Info("user signed up", zap.Uint("new_user_id", user.ID))
	h.startSession(w, r, &user, http.StatusCreated)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	if httpx.WantsJSON(r) || httpx.IsJSONBody(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *models.User, status int) {
	if err := auth.CreateSession(w, user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	if httpx.IsJSONBody(r) || httpx.WantsJSON(r) {
		httpx.JSON(w, status, user)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// fail answers a rejected login or signup: 422/401 JSON for API clients,
// the form again for browsers.
func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, page string, c credentials, v validation.Violations, code string) {
	jsonClient := httpx.IsJSONBody(r) || httpx.WantsJSON(r)
	status := http.StatusUnprocessableEntity
	if code != "" {
		status = http.StatusUnauthorized
	}
	if jsonClient {
		if code != "" {
			httpx.Error(w, r, status, code)
		} else {
			httpx.ValidationError(w, r, v)
		}
		return
	}
	lang := i18n.LangFromContext(r.Context())
	data := map[string]any{"Email": c.Email, "Name": c.Name}
	if code != "" {
		data["Error"] = i18n.T(lang, code)
	}
	if len(v) > 0 {
		data["Errors"] = i18n.TranslateAll(lang, v)
	}
	h.render(w, r, status, page, data)
}

func (h *AuthHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]any) {
	if err := view.RenderStatus(w, r, status, page, data); err != nil {
		writeError(w, r, err)
	}
}
