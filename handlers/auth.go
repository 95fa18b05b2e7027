package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/camden-git/beachfinder/logging"
	"github.com/camden-git/beachfinder/models"
	"github.com/camden-git/beachfinder/repository"
	"github.com/camden-git/beachfinder/validation"
)

type AuthHandler struct {
	UserRepo repository.UserRepository
	Tokens   *TokenManager
	// SecureCookie sets the Secure flag on the session cookie (HTTPS deployments).
	SecureCookie bool
}

func NewAuthHandler(userRepo repository.UserRepository, tokens *TokenManager, secureCookie bool) *AuthHandler {
	return &AuthHandler{UserRepo: userRepo, Tokens: tokens, SecureCookie: secureCookie}
}

type LoginPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	CSRFToken string      `json:"csrf_token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := validation.ValidateStruct(payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.UserRepo.GetByUsername(r.Context(), payload.Username)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logging.Ctx(r.Context()).Error().Err(err).Msg("auth: user lookup failed")
		}
		WriteAPIError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if !user.CheckPassword(payload.Password) {
		WriteAPIError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, session, err := h.Tokens.Issue(user)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Uint("user_id", user.ID).Msg("auth: failed to issue token")
		WriteAPIError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	logging.Ctx(r.Context()).Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("auth: login")
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		CSRFToken: session.CSRFToken,
		User:      *user,
		ExpiresAt: session.ExpiresAt,
	})
}

// Logout clears the session cookie. Bearer clients simply discard their token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// CurrentUser returns the principal. It must be behind AuthMiddleware.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":       p,
		"csrf_token": p.CSRFToken,
	})
}
