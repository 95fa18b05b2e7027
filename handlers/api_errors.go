package handlers

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/camden-git/beachfinder/gallery"
	"github.com/camden-git/beachfinder/logging"
)

// APIErrorResponse is the body of every non-2xx JSON response.
type APIErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logging.Warn().Err(err).Msg("handlers: error encoding JSON response")
		}
	}
}

// WriteAPIError writes {"error": detail} with the given status.
func WriteAPIError(w http.ResponseWriter, httpStatus int, detail string) {
	writeJSON(w, httpStatus, APIErrorResponse{Error: detail})
}

// writeGalleryError maps a gallery error onto its HTTP status. Internal failures
// keep their cause out of the response body.
func writeGalleryError(w http.ResponseWriter, err error) {
	var ge *gallery.Error
	if !errors.As(err, &ge) {
		WriteAPIError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteAPIError(w, ge.Kind.HTTPStatus(), ge.Message)
}
