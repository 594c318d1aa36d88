// Package http provides inbound HTTP middleware for the bridge.
package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/txn2/dremio-simplejson/pkg/audit"
)

// AuthConfig selects the accepted inbound credentials. A request passes
// when any configured method accepts it.
type AuthConfig struct {
	// BasicUsername and BasicPasswordHash enable HTTP basic auth. The hash
	// is a bcrypt hash of the password.
	BasicUsername     string
	BasicPasswordHash string

	// BearerSecret enables HS256 JWT bearer tokens. BearerIssuer and
	// BearerAudience are checked when set.
	BearerSecret   []byte
	BearerIssuer   string
	BearerAudience string
}

func (c AuthConfig) basicEnabled() bool  { return c.BasicUsername != "" && c.BasicPasswordHash != "" }
func (c AuthConfig) bearerEnabled() bool { return len(c.BearerSecret) > 0 }

var (
	errNoCredentials  = errors.New("missing credentials")
	errBadCredentials = errors.New("invalid credentials")
)

// AuthMiddleware returns middleware enforcing cfg, or nil when no method is
// configured. The authenticated user is recorded in the request's audit info.
func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	if !cfg.basicEnabled() && !cfg.bearerEnabled() {
		return nil
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticate(cfg, r)
			if err != nil {
				slog.Debug("rejecting unauthenticated request", "path", r.URL.Path, "error", err)
				challenge(w, cfg)
				return
			}

			info := audit.GetRequestInfo(r.Context())
			info.UserID = user
			next.ServeHTTP(w, r.WithContext(audit.WithRequestInfo(r.Context(), info)))
		})
	}
}

func authenticate(cfg AuthConfig, r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	switch {
	case cfg.bearerEnabled() && strings.HasPrefix(header, "Bearer "):
		return validateBearer(cfg, strings.TrimPrefix(header, "Bearer "))
	case cfg.basicEnabled():
		user, pass, ok := r.BasicAuth()
		if !ok {
			return "", errNoCredentials
		}
		return validateBasic(cfg, user, pass)
	default:
		return "", errNoCredentials
	}
}

func validateBasic(cfg AuthConfig, user, pass string) (string, error) {
	if user != cfg.BasicUsername {
		return "", errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cfg.BasicPasswordHash), []byte(pass)); err != nil {
		return "", errBadCredentials
	}
	return user, nil
}

func validateBearer(cfg AuthConfig, tokenString string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.BearerIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.BearerIssuer))
	}
	if cfg.BearerAudience != "" {
		opts = append(opts, jwt.WithAudience(cfg.BearerAudience))
	}

	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return cfg.BearerSecret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("parsing token: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("missing sub claim")
	}
	return claims.Subject, nil
}

func challenge(w http.ResponseWriter, cfg AuthConfig) {
	if cfg.basicEnabled() {
		w.Header().Add("WWW-Authenticate", `Basic realm="dremio-simplejson"`)
	}
	if cfg.bearerEnabled() {
		w.Header().Add("WWW-Authenticate", "Bearer")
	}
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
