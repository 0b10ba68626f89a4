// Package auth issues and checks the bearer tokens that bind a client to
// its scan session.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const sessionIDKey contextKey = "authSessionID"

// Issuer is the audience written into and required from session tokens.
const Issuer = "cubescan"

// GetSessionID retrieves the authenticated session from context.
func GetSessionID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if value, ok := ctx.Value(sessionIDKey).(string); ok && value != "" {
		return value, true
	}
	return "", false
}

// WithSessionID returns a context carrying an authenticated session.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// Tokens signs session tokens with an HMAC secret.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens returns nil for an empty secret, which disables tokens.
func NewTokens(secret string) *Tokens {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// Enabled reports whether tokens are issued and checked.
func (t *Tokens) Enabled() bool {
	return t != nil
}

// Issue returns a token whose subject is sessionID, valid for ttl.
func (t *Tokens) Issue(sessionID string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    Issuer,
		Audience:  jwt.ClaimStrings{Issuer},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Middleware validates bearer tokens and injects the session identity.
// With tokens disabled it lets every request through.
func (t *Tokens) Middleware() gin.HandlerFunc {
	if !t.Enabled() {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		sessionID, err := t.Authenticate(c.Request.Header.Get("Authorization"))
		if err != nil {
			unauthorized(c, err.Error())
			return
		}

		c.Request = c.Request.WithContext(WithSessionID(c.Request.Context(), sessionID))
		c.Set(string(sessionIDKey), sessionID)

		c.Next()
	}
}

// Authenticate validates an Authorization header and returns the session
// the token was issued for.
func (t *Tokens) Authenticate(header string) (string, error) {
	tokenString, err := extractBearerToken(header)
	if err != nil {
		return "", err
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	if !containsAudience(claims.Audience, Issuer) {
		return "", errors.New("invalid audience")
	}

	if claims.Subject == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

// Authorize aborts the request unless tokens are disabled or the token
// belongs to sessionID. Routes outside Middleware are authenticated here.
func (t *Tokens) Authorize(c *gin.Context, sessionID string) bool {
	if !t.Enabled() {
		return true
	}
	got, ok := GetSessionID(c.Request.Context())
	if !ok {
		var err error
		if got, err = t.Authenticate(c.Request.Header.Get("Authorization")); err != nil {
			unauthorized(c, err.Error())
			return false
		}
	}
	if got != sessionID {
		unauthorized(c, "token does not match session")
		return false
	}
	return true
}

func extractBearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("token missing")
	}
	return token, nil
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": message})
}

func containsAudience(claims jwt.ClaimStrings, expected string) bool {
	for _, aud := range claims {
		if aud == expected {
			return true
		}
	}
	return false
}
