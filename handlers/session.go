package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/camden-git/beachfinder/models"
)

const (
	// SessionCookieName carries the JWT for browser clients.
	SessionCookieName = "beach_session"
	tokenIssuer       = "beachfinder"
)

var ErrInvalidSession = errors.New("invalid session token")

type sessionClaims struct {
	Username string `json:"usr"`
	Admin    bool   `json:"adm"`
	CSRF     string `json:"csrf"`
	jwt.RegisteredClaims
}

// Session is what a verified token says about its holder.
type Session struct {
	UserID    uint
	Username  string
	IsAdmin   bool
	CSRFToken string
	ExpiresAt time.Time
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for user with a fresh CSRF token embedded.
func (tm *TokenManager) Issue(user *models.User) (string, Session, error) {
	csrf, err := newCSRFToken()
	if err != nil {
		return "", Session{}, err
	}

	now := tm.now()
	expiresAt := now.Add(tm.ttl)
	claims := &sessionClaims{
		Username: user.Username,
		Admin:    user.IsAdmin,
		CSRF:     csrf,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session token: %w", err)
	}

	return signed, Session{
		UserID:    user.ID,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		CSRFToken: csrf,
		ExpiresAt: expiresAt,
	}, nil
}

// Parse verifies the signature and expiry of tokenString.
func (tm *TokenManager) Parse(tokenString string) (Session, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(tm.now))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !token.Valid {
		return Session{}, ErrInvalidSession
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return Session{}, fmt.Errorf("%w: bad subject %q", ErrInvalidSession, claims.Subject)
	}

	s := Session{
		UserID:    uint(userID),
		Username:  claims.Username,
		IsAdmin:   claims.Admin,
		CSRFToken: claims.CSRF,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

func newCSRFToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
