package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"internify-backend/pkg/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func hsToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestVerifierHS256(t *testing.T) {
	v := auth.NewVerifier(secret, nil, "convex")
	ctx := context.Background()

	t.Run("Should accept a token for the configured audience", func(t *testing.T) {
		tok := hsToken(t, jwt.MapClaims{
			"iss":         "https://id.example.com",
			"sub":         "user_123",
			"aud":         "convex",
			"email":       "a@b.com",
			"given_name":  "Ada",
			"family_name": "Lovelace",
			"exp":         time.Now().Add(time.Minute).Unix(),
		})

		claims, err := v.Verify(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, "https://id.example.com|user_123", claims.TokenIdentifier())
		assert.Equal(t, "a@b.com", claims.Email)
		assert.Equal(t, "Ada", claims.GivenName)
	})

	t.Run("Should reject a token minted for another audience", func(t *testing.T) {
		tok := hsToken(t, jwt.MapClaims{"sub": "user_123", "aud": "other", "exp": time.Now().Add(time.Minute).Unix()})
		_, err := v.Verify(ctx, tok)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("Should reject a token that is not valid yet", func(t *testing.T) {
		tok := hsToken(t, jwt.MapClaims{"sub": "user_123", "aud": "convex", "nbf": time.Now().Add(time.Hour).Unix()})
		_, err := v.Verify(ctx, tok)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("Should reject an empty token", func(t *testing.T) {
		_, err := v.Verify(ctx, "")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestVerifierRS256WithJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(auth.JWKS{Keys: []auth.JSONWebKey{{
			Kid: "k1",
			Kty: "RSA",
			Alg: "RS256",
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	defer srv.Close()

	v := auth.NewVerifier("", auth.NewProvider(srv.URL, srv.Client()), "convex")

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": "https://id.example.com",
		"sub": "user_9",
		"aud": "convex",
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	tok.Header["kid"] = "k1"
	signed, err := tok.SignedString(key)
	require.NoError(t, err)

	claims, err := v.Verify(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "user_9", claims.Subject)
}
