package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/camden-git/beachfinder/logging"
	"github.com/camden-git/beachfinder/models"
	"github.com/camden-git/beachfinder/repository"
	"github.com/camden-git/beachfinder/validation"
)

type AdminUserHandler struct {
	UserRepo repository.UserRepository
}

func NewAdminUserHandler(userRepo repository.UserRepository) *AdminUserHandler {
	return &AdminUserHandler{UserRepo: userRepo}
}

type UserCreatePayload struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=8"`
	IsAdmin  bool   `json:"is_admin"`
}

func (h *AdminUserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserRepo.ListAll(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("admin users: list failed")
		WriteAPIError(w, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (h *AdminUserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var payload UserCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	payload.Username = strings.TrimSpace(payload.Username)
	if err := validation.ValidateStruct(payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := &models.User{Username: payload.Username, IsAdmin: payload.IsAdmin}
	if err := user.SetPassword(payload.Password); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("admin users: failed to hash password")
		WriteAPIError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	if err := h.UserRepo.Create(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			WriteAPIError(w, http.StatusConflict, "Username already exists")
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Str("username", payload.Username).Msg("admin users: create failed")
		WriteAPIError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	if p, ok := PrincipalFromContext(r.Context()); ok {
		logging.Ctx(r.Context()).Info().Uint("created_by", p.UserID).Uint("user_id", user.ID).Bool("is_admin", user.IsAdmin).Msg("admin users: created")
	}
	writeJSON(w, http.StatusCreated, user)
}
