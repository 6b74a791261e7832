package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	id "namereg/pkg/domain"
	"namereg/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return s.claims, s.err
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	owner := id.MustParseAddress("0x00000000000000000000000000000000000000a1")

	serve := func(v JWTValidator, header string) (*httptest.ResponseRecorder, id.Address) {
		var caller id.Address
		handler := RequireAuth(v, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller = requestcontext.Caller(r.Context())
		}))
		r := httptest.NewRequest(http.MethodPost, "/domains", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w, caller
	}

	t.Run("valid token sets caller", func(t *testing.T) {
		w, caller := serve(stubValidator{claims: &JWTClaims{Subject: owner.Hex()}}, "Bearer good")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, owner, caller)
	})

	t.Run("missing header", func(t *testing.T) {
		w, _ := serve(stubValidator{}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Missing or invalid Authorization header")
	})

	t.Run("invalid token", func(t *testing.T) {
		w, _ := serve(stubValidator{err: errors.New("bad signature")}, "Bearer bad")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("zero address subject", func(t *testing.T) {
		w, _ := serve(stubValidator{claims: &JWTClaims{Subject: id.ZeroAddress.Hex()}}, "Bearer zero")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("subject that is not an address", func(t *testing.T) {
		w, _ := serve(stubValidator{claims: &JWTClaims{Subject: "alice"}}, "Bearer alice")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
