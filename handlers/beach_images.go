package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/camden-git/beachfinder/gallery"
	"github.com/camden-git/beachfinder/logging"
)

const (
	// multipartOverhead is allowed on top of the file limit so that a file of
	// exactly the maximum size still fits in the request body.
	multipartOverhead = 1 << 20
	// formMemoryBytes caps the text fields of one request.
	formMemoryBytes = 1 << 20
	imageFormField  = "image"
)

// ImageCommandExecutor runs gallery commands. *gallery.Manager implements it.
type ImageCommandExecutor interface {
	Execute(ctx context.Context, actor gallery.Actor, cmd gallery.Command) (*gallery.Result, error)
}

// BeachImageHandler serves the admin image management endpoint. Each request
// carries exactly one command, selected by the "action" form field.
type BeachImageHandler struct {
	Gallery           ImageCommandExecutor
	MaxUploadBytes    int64
	BlockedExtensions []string
	// TempDir holds spooled uploads. Empty means os.TempDir().
	TempDir string
}

type actionResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Image   *gallery.ImageView `json:"image,omitempty"`
}

type imageListResponse struct {
	Images []gallery.ImageView `json:"images"`
}

func (h *BeachImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !p.IsAdmin {
		WriteAPIError(w, http.StatusForbidden, "Admin access required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, p)
	case http.MethodPost:
		h.post(w, r, p)
	default:
		w.Header().Set("Allow", "GET, POST")
		WriteAPIError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *BeachImageHandler) list(w http.ResponseWriter, r *http.Request, p *Principal) {
	cmd := gallery.ListCommand{BeachID: parseID(r.URL.Query().Get("beach_id"))}
	res, err := h.Gallery.Execute(r.Context(), p.Actor(), cmd)
	if err != nil {
		writeGalleryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, imageListResponse{Images: res.Images})
}

func (h *BeachImageHandler) post(w http.ResponseWriter, r *http.Request, p *Principal) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes+multipartOverhead)
	body := h.readActionBody(r)
	defer body.removeFile(r.Context())

	if !validCSRF(r) {
		WriteAPIError(w, http.StatusForbidden, "Invalid CSRF token")
		return
	}

	action := strings.TrimSpace(r.PostForm.Get("action"))
	if action == "" {
		action = gallery.ActionUpload
	}
	if body.err != nil && action != gallery.ActionUpload {
		WriteAPIError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var cmd gallery.Command
	switch action {
	case gallery.ActionUpload:
		cmd = body.uploadCommand(r)
	case gallery.ActionDelete:
		cmd = gallery.DeleteCommand{ImageID: parseID(r.PostForm.Get("image_id"))}
	case gallery.ActionReorder:
		cmd = gallery.ReorderCommand{
			BeachID: parseID(r.PostForm.Get("beach_id")),
			Order:   r.PostForm.Get("order"),
		}
	case gallery.ActionSetCover:
		cmd = gallery.SetCoverCommand{ImageID: parseID(r.PostForm.Get("image_id"))}
	case gallery.ActionUpdateAlt:
		cmd = gallery.UpdateAltCommand{
			ImageID: parseID(r.PostForm.Get("image_id")),
			AltText: r.PostForm.Get("alt_text"),
		}
	}

	// an unknown action reaches Execute as a nil command and is rejected there
	res, err := h.Gallery.Execute(r.Context(), p.Actor(), cmd)
	if err != nil {
		writeGalleryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: res.Message, Image: res.Image})
}

// actionBody is a decoded POST body. Text fields land in r.PostForm as they
// stream; the image part is spooled to a temp file on the way. Fields read
// before a transport failure are kept.
type actionBody struct {
	file    *gallery.UploadedFile
	failure gallery.UploadFailure
	// err is the first error reading the body itself.
	err error
}

// uploadCommand reports a transport failure in the command so the gallery
// can check the beach first.
func (b *actionBody) uploadCommand(r *http.Request) gallery.UploadCommand {
	cmd := gallery.UploadCommand{BeachID: parseID(r.PostForm.Get("beach_id"))}
	switch {
	case b.failure != gallery.UploadOK:
		cmd.Failure = b.failure
	case b.err != nil:
		cmd.Failure = uploadFailureFor(b.err)
	case b.file == nil:
		cmd.Failure = gallery.UploadNoFile
	default:
		cmd.File = b.file
	}
	if cmd.Failure != gallery.UploadOK && b.err != nil {
		logging.Ctx(r.Context()).Debug().Err(b.err).Msg("upload: request body rejected")
	}
	return cmd
}

func (b *actionBody) removeFile(ctx context.Context) {
	if b.file == nil {
		return
	}
	if err := os.Remove(b.file.Path); err != nil && !os.IsNotExist(err) {
		logging.Ctx(ctx).Warn().Err(err).Str("path", b.file.Path).Msg("upload: failed to remove temp file")
	}
}

// readActionBody reads a multipart or url-encoded body. r.PostForm is always
// non-nil afterwards so lookups never trigger a second parse.
func (h *BeachImageHandler) readActionBody(r *http.Request) *actionBody {
	body := &actionBody{}
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "multipart/form-data" {
		body.err = r.ParseForm()
		if r.PostForm == nil {
			r.PostForm = make(url.Values)
		}
		return body
	}

	r.PostForm = make(url.Values)
	mr, err := r.MultipartReader()
	if err != nil {
		body.err = err
		return body
	}

	var fieldBytes int64
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return body
		}
		if err != nil {
			body.err = err
			return body
		}

		if part.FileName() == "" {
			value, err := readField(part, formMemoryBytes-fieldBytes)
			if err != nil {
				body.err = err
				return body
			}
			fieldBytes += int64(len(value))
			r.PostForm.Add(part.FormName(), value)
			continue
		}

		// other file parts and repeated images are skipped by NextPart
		if part.FormName() != imageFormField || body.file != nil || body.failure != gallery.UploadOK {
			continue
		}
		if action := r.PostForm.Get("action"); action != "" && action != gallery.ActionUpload {
			continue
		}
		if h.isBlockedExtension(part.FileName()) {
			body.failure = gallery.UploadExtensionBlocked
			continue
		}
		if err := h.spool(r.Context(), part, body); err != nil {
			body.err = err
			return body
		}
	}
}

// readField reads one text part, failing once the fields together pass the
// form memory budget.
func readField(part *multipart.Part, remaining int64) (string, error) {
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, part, remaining+1)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if n > remaining {
		return "", multipart.ErrMessageTooLarge
	}
	return buf.String(), nil
}

// spool copies the image part to a temp file. Problems on the server side are
// recorded as the body's upload failure; an error reading the request itself
// is returned.
func (h *BeachImageHandler) spool(ctx context.Context, part *multipart.Part, body *actionBody) error {
	tmp, err := os.CreateTemp(h.TempDir, "beach-upload-*")
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("dir", h.TempDir).Msg("upload: temp directory unavailable")
		body.failure = gallery.UploadNoTempDir
		return nil
	}

	_, copyErr := io.Copy(tmp, part)
	closeErr := tmp.Close()
	if copyErr == nil && closeErr == nil {
		body.file = &gallery.UploadedFile{Path: tmp.Name(), OriginalName: filepath.Base(part.FileName())}
		return nil
	}
	os.Remove(tmp.Name())

	if copyErr == nil {
		logging.Ctx(ctx).Error().Err(closeErr).Msg("upload: failed to flush temp file")
		body.failure = gallery.UploadWriteFailed
		return nil
	}
	body.failure = uploadFailureFor(copyErr)
	if body.failure == gallery.UploadWriteFailed {
		logging.Ctx(ctx).Error().Err(copyErr).Msg("upload: failed to write temp file")
		return nil
	}
	return copyErr
}

func (h *BeachImageHandler) isBlockedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return false
	}
	for _, blocked := range h.BlockedExtensions {
		if ext == blocked {
			return true
		}
	}
	return false
}

func uploadFailureFor(err error) gallery.UploadFailure {
	var maxErr *http.MaxBytesError
	var pathErr *fs.PathError
	switch {
	case errors.As(err, &maxErr), errors.Is(err, multipart.ErrMessageTooLarge):
		return gallery.UploadTooLarge
	case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
		return gallery.UploadNoFile
	case errors.As(err, &pathErr):
		if pathErr.Op == "write" {
			return gallery.UploadWriteFailed
		}
		return gallery.UploadNoTempDir
	default:
		return gallery.UploadPartial
	}
}

// parseID returns 0 for anything that is not a positive integer.
func parseID(raw string) uint {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
