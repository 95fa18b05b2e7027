package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/camden-git/beachfinder/logging"
	"github.com/camden-git/beachfinder/models"
	"github.com/camden-git/beachfinder/repository"
	"github.com/camden-git/beachfinder/validation"
)

type BeachHandler struct {
	Repo                repository.BeachRepository
	PlaceholderCoverURL string
}

type CreateBeachPayload struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Slug        string  `json:"slug" validate:"required,slug,max=120"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

func (bh *BeachHandler) ListBeaches(w http.ResponseWriter, r *http.Request) {
	beaches, err := bh.Repo.ListAll(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("beaches: list failed")
		WriteAPIError(w, http.StatusInternalServerError, "Failed to retrieve beaches")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"beaches": beaches})
}

// GetBeach resolves {identifier} as a numeric id first, then as a slug.
func (bh *BeachHandler) GetBeach(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	var (
		beach *models.Beach
		err   = gorm.ErrRecordNotFound
	)
	if id, perr := strconv.ParseUint(identifier, 10, 64); perr == nil && id > 0 {
		beach, err = bh.Repo.GetByID(r.Context(), uint(id))
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		beach, err = bh.Repo.GetBySlug(r.Context(), identifier)
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "Beach not found")
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Str("identifier", identifier).Msg("beaches: lookup failed")
		WriteAPIError(w, http.StatusInternalServerError, "Failed to retrieve beach")
		return
	}
	writeJSON(w, http.StatusOK, beach)
}

func (bh *BeachHandler) CreateBeach(w http.ResponseWriter, r *http.Request) {
	var payload CreateBeachPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Slug = strings.TrimSpace(payload.Slug)
	if payload.Description != nil {
		desc := strings.TrimSpace(*payload.Description)
		if desc == "" {
			payload.Description = nil
		} else {
			payload.Description = &desc
		}
	}

	if err := validation.ValidateStruct(payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	beach := &models.Beach{
		Name:        payload.Name,
		Slug:        payload.Slug,
		Description: payload.Description,
		CoverImage:  bh.PlaceholderCoverURL,
	}
	if err := bh.Repo.Create(r.Context(), beach); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			WriteAPIError(w, http.StatusConflict, "A beach with this slug already exists")
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Str("slug", payload.Slug).Msg("beaches: create failed")
		WriteAPIError(w, http.StatusInternalServerError, "Failed to create beach")
		return
	}

	logging.Ctx(r.Context()).Info().Uint("beach_id", beach.ID).Str("slug", beach.Slug).Msg("beaches: created")
	writeJSON(w, http.StatusCreated, beach)
}
