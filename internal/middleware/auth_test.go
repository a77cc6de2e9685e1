package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func sign(t *testing.T, secret []byte, claims Claims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func validClaims(sub string, organizer bool) Claims {
	return Claims{
		Organizer: organizer,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestAuthenticate(t *testing.T) {
	expired := validClaims("u1", false)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	testCases := []struct {
		name          string
		header        string
		wantStatus    int
		wantSubject   string
		wantOrganizer bool
	}{
		{"anonymous", "", http.StatusOK, "", false},
		{"player", "Bearer " + sign(t, testSecret, validClaims("u1", false)), http.StatusOK, "u1", false},
		{"organizer", "Bearer " + sign(t, testSecret, validClaims("org", true)), http.StatusOK, "org", true},
		{"wrong secret", "Bearer " + sign(t, []byte("other"), validClaims("u1", false)), http.StatusUnauthorized, "", false},
		{"expired", "Bearer " + sign(t, testSecret, expired), http.StatusUnauthorized, "", false},
		{"no subject", "Bearer " + sign(t, testSecret, validClaims("", true)), http.StatusUnauthorized, "", false},
		{"not bearer", "Basic dTpw", http.StatusUnauthorized, "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var seen *Claims
			handler := Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = ClaimsFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantSubject == "" {
				assert.Nil(t, seen)
				return
			}
			require.NotNil(t, seen)
			assert.Equal(t, tc.wantSubject, seen.Subject)
			assert.Equal(t, tc.wantOrganizer, seen.Organizer)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	handler := Authenticate(testSecret)(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, testSecret, validClaims("u1", false)))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
