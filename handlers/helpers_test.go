package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/camden-git/beachfinder/database"
	"github.com/camden-git/beachfinder/gallery"
	"github.com/camden-git/beachfinder/models"
)

const (
	testSecret = "test-secret-0123456789"
	testCSRF   = "csrf-token-for-tests"
)

var testAdmin = &Principal{UserID: 1, Username: "admin", IsAdmin: true, CSRFToken: testCSRF}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, sqlDB, err := database.Open(filepath.Join(t.TempDir(), "handlers.db"))
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

func createUser(t *testing.T, gdb *gorm.DB, username, password string, isAdmin bool) *models.User {
	t.Helper()
	u := &models.User{Username: username, IsAdmin: isAdmin}
	if err := u.SetPassword(password); err != nil {
		t.Fatal(err)
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func withPrincipal(r *http.Request, p *Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), PrincipalContextKey, p))
}

// recordingExecutor captures the decoded command instead of running it.
type recordingExecutor struct {
	mu        sync.Mutex
	calls     []gallery.Command
	actors    []gallery.Actor
	result    *gallery.Result
	err       error
	onExecute func(gallery.Command)
}

func (e *recordingExecutor) Execute(_ context.Context, actor gallery.Actor, cmd gallery.Command) (*gallery.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, cmd)
	e.actors = append(e.actors, actor)
	if e.onExecute != nil {
		e.onExecute(cmd)
	}
	if e.err != nil {
		return nil, e.err
	}
	if e.result != nil {
		return e.result, nil
	}
	return &gallery.Result{Message: "done"}, nil
}

func (e *recordingExecutor) lastCall(t *testing.T) gallery.Command {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.calls) == 0 {
		t.Fatal("executor was not called")
	}
	return e.calls[len(e.calls)-1]
}

type pngEncoder struct{}

func (pngEncoder) Encode(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type filePart struct {
	field    string
	filename string
	data     []byte
}

func multipartRequest(t *testing.T, target string, fields map[string]string, file *filePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if file != nil {
		fw, err := mw.CreateFormFile(file.field, file.filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(file.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body APIErrorResponse
	decodeBody(t, rr, &body)
	return body.Error
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
