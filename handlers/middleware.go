package handlers

import (
	"bufio"
	"context"
	"crypto/subtle"
	"errors"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/camden-git/beachfinder/gallery"
	"github.com/camden-git/beachfinder/logging"
	"github.com/camden-git/beachfinder/metrics"
	"github.com/camden-git/beachfinder/repository"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// PrincipalContextKey stores the authenticated *Principal.
	PrincipalContextKey ContextKey = "principal"

	CSRFHeaderName = "X-CSRF-Token"
	CSRFFormField  = "csrf_token"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    uint   `json:"id"`
	Username  string `json:"username"`
	IsAdmin   bool   `json:"is_admin"`
	CSRFToken string `json:"-"`
}

// Actor converts the principal into the identity the gallery acts on behalf of.
func (p *Principal) Actor() gallery.Actor {
	return gallery.Actor{UserID: p.UserID, Username: p.Username, IsAdmin: p.IsAdmin}
}

// PrincipalFromContext returns the principal attached by AuthMiddleware, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(*Principal)
	return p, ok && p != nil
}

// AuthMiddleware verifies the session token from the Authorization header or the
// session cookie and attaches the caller's Principal. The user is reloaded on
// every request so a revoked admin flag takes effect before the token expires.
func AuthMiddleware(tokens *TokenManager, userRepo repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				WriteAPIError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			session, err := tokens.Parse(tokenString)
			if err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("auth: rejected session token")
				WriteAPIError(w, http.StatusUnauthorized, "Invalid or expired session")
				return
			}

			user, err := userRepo.GetByID(r.Context(), session.UserID)
			if err != nil {
				WriteAPIError(w, http.StatusUnauthorized, "User not found")
				return
			}

			p := &Principal{
				UserID:    user.ID,
				Username:  user.Username,
				IsAdmin:   user.IsAdmin,
				CSRFToken: session.CSRFToken,
			}
			ctx := context.WithValue(r.Context(), PrincipalContextKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireAdmin rejects non-admin principals. It must run after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			WriteAPIError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !p.IsAdmin {
			WriteAPIError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCSRF checks the CSRF token on state-changing requests with JSON or
// url-encoded bodies. Multipart handlers parse their body under a size limit
// first and call validCSRF themselves.
func RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		if !validCSRF(r) {
			WriteAPIError(w, http.StatusForbidden, "Invalid CSRF token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// validCSRF compares the request's token against the principal's session token.
// The form field is only consulted once a url-encoded or multipart body has
// been parsed, so a JSON body is never consumed here.
func validCSRF(r *http.Request) bool {
	p, ok := PrincipalFromContext(r.Context())
	if !ok || p.CSRFToken == "" {
		return false
	}

	token := r.Header.Get(CSRFHeaderName)
	if token == "" {
		if r.PostForm == nil && isURLEncoded(r) {
			_ = r.ParseForm()
		}
		if r.PostForm != nil {
			token = r.PostForm.Get(CSRFFormField)
		}
	}
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(p.CSRFToken)) == 1
}

func isURLEncoded(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/x-www-form-urlencoded"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the recorder.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	sr.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// PrometheusMetrics records request counts and latency labelled by chi route pattern.
func PrometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		metrics.RecordAPIRequest(r.Method, route, rec.status, time.Since(start))
	})
}

// RequestLogger logs one line per request through the zerolog logger.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := zerolog.InfoLevel
		if rec.status >= http.StatusInternalServerError {
			level = zerolog.WarnLevel
		}
		logging.Ctx(r.Context()).WithLevel(level).Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("http request")
	})
}
