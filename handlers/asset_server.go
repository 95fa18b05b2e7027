package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/beachfinder/logging"
	"github.com/camden-git/beachfinder/media"
)

const assetCacheDuration = 24 * time.Hour

// AssetServer serves stored image variants from store. It must be mounted on a
// wildcard route; the wildcard is the storage key, e.g.
//
//	r.Get("/media/*", AssetServer(store))
func AssetServer(store media.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		if key == "" || strings.Contains(key, "..") {
			WriteAPIError(w, http.StatusBadRequest, "Invalid asset path")
			return
		}

		rc, err := store.Open(r.Context(), key)
		if err != nil {
			switch {
			case errors.Is(err, fs.ErrNotExist):
				http.NotFound(w, r)
			case errors.Is(err, media.ErrInvalidKey):
				logging.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("SECURITY: asset key outside storage root")
				WriteAPIError(w, http.StatusForbidden, "Forbidden")
			default:
				logging.Ctx(r.Context()).Error().Err(err).Str("key", key).Msg("assets: failed to open")
				WriteAPIError(w, http.StatusInternalServerError, "Internal Server Error")
			}
			return
		}
		defer rc.Close()

		content, modTime, err := seekable(rc)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Str("key", key).Msg("assets: failed to read")
			WriteAPIError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(assetCacheDuration.Seconds())))
		w.Header().Set("Expires", time.Now().Add(assetCacheDuration).UTC().Format(http.TimeFormat))
		http.ServeContent(w, r, path.Base(key), modTime, content)
	}
}

// seekable adapts a store reader for http.ServeContent. Local files are used
// directly; anything else is buffered.
func seekable(rc io.ReadCloser) (io.ReadSeeker, time.Time, error) {
	if f, ok := rc.(*os.File); ok {
		info, err := f.Stat()
		if err != nil {
			return nil, time.Time{}, err
		}
		return f, info.ModTime(), nil
	}
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, time.Time{}, err
	}
	return bytes.NewReader(data), time.Time{}, nil
}
