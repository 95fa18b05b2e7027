package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/camden-git/beachfinder/logging"
	"github.com/camden-git/beachfinder/models"
	"github.com/camden-git/beachfinder/validation"
)

var errSetupCompleted = errors.New("setup already completed")

type SetupHandler struct {
	DB *gorm.DB
}

func NewSetupHandler(db *gorm.DB) *SetupHandler {
	return &SetupHandler{DB: db}
}

type FirstAdminPayload struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=8"`
}

// CreateFirstAdmin creates the initial administrator. It only works while the
// users table is empty.
func (h *SetupHandler) CreateFirstAdmin(w http.ResponseWriter, r *http.Request) {
	var payload FirstAdminPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := validation.ValidateStruct(payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	adminUser := &models.User{Username: payload.Username, IsAdmin: true}
	if err := adminUser.SetPassword(payload.Password); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("setup: failed to hash password")
		WriteAPIError(w, http.StatusInternalServerError, "Failed to create first admin user")
		return
	}

	txErr := h.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count existing users in transaction: %w", err)
		}
		if count > 0 {
			return errSetupCompleted
		}
		if err := tx.Create(adminUser).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, errSetupCompleted) {
			WriteAPIError(w, http.StatusForbidden, "Setup has already been completed")
			return
		}
		logging.Ctx(r.Context()).Error().Err(txErr).Msg("setup: first admin creation failed")
		WriteAPIError(w, http.StatusInternalServerError, "Failed to create first admin user")
		return
	}

	logging.Ctx(r.Context()).Info().Str("username", adminUser.Username).Msg("setup: initial admin user created")
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Initial admin user created successfully. Please log in."})
}
