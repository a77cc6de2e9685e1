package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/AdamBeresnev/bracket-engine/internal/httputil"
	"github.com/golang-jwt/jwt/v4"
)

type ContextKey string

const ClaimsKey ContextKey = "claims"

// Claims are issued by the identity service. Subject is the caller id used as
// the result reporter; Organizer grants builds, registration decisions and
// authoritative corrections.
type Claims struct {
	Organizer bool `json:"organizer"`
	jwt.RegisteredClaims
}

var errMissingSubject = errors.New("token has no subject")

// ParseToken verifies an HS256 token and returns its claims.
func ParseToken(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errMissingSubject
	}
	return claims, nil
}

// Authenticate verifies a bearer token when one is present. Requests without
// an Authorization header pass through anonymous; a bad token is rejected.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				httputil.Unauthorized(w, "Authorization header must be a bearer token", nil)
				return
			}

			claims, err := ParseToken(secret, strings.TrimSpace(raw))
			if err != nil {
				httputil.Unauthorized(w, "Invalid token", err)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ClaimsFromContext(r.Context()); !ok {
			httputil.Unauthorized(w, "Authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok && claims != nil
}
