package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			w.Write([]byte(`{"id":"alice","name":"Alice"}`))
		case "Bearer empty":
			w.Write([]byte(`{}`))
		case "Bearer boom":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, 0)
	ctx := context.Background()

	user, err := v.Verify(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, &User{ID: "alice", Name: "Alice"}, user)

	_, err = v.Verify(ctx, "")
	assert.True(t, errors.Is(err, ErrMissingToken))

	_, err = v.Verify(ctx, "stolen")
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = v.Verify(ctx, "empty")
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = v.Verify(ctx, "boom")
	assert.ErrorContains(t, err, "502")
}

func TestAnonymousVerifier(t *testing.T) {
	user, err := AnonymousVerifier{}.Verify(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, user.ID)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/sessions/g1?token=query", nil)
	assert.Equal(t, "query", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer header")
	assert.Equal(t, "header", TokenFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/sessions/g1", nil)
	r.Header.Set("Authorization", "Basic xyz")
	assert.Equal(t, "", TokenFromRequest(r))
}
