// Copyright 2025 The Docpipeline Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	assert.NoError(t, err)
	return signed
}

func TestRequireBearerTokenRejectsMissingHeader(t *testing.T) {
	handler := RequireBearerToken("shh")(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireBearerTokenRejectsMalformedHeader(t *testing.T) {
	handler := RequireBearerToken("shh")(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireBearerTokenRejectsInvalidSignature(t *testing.T) {
	handler := RequireBearerToken("shh")(okHandler())

	token := signToken(t, "wrong-secret", jwt.MapClaims{"sub": "bridge-client", "exp": time.Now().Add(time.Hour).Unix()})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireBearerTokenRejectsExpiredToken(t *testing.T) {
	handler := RequireBearerToken("shh")(okHandler())

	token := signToken(t, "shh", jwt.MapClaims{"sub": "bridge-client", "exp": time.Now().Add(-time.Hour).Unix()})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireBearerTokenAdmitsValidToken(t *testing.T) {
	handler := RequireBearerToken("shh")(okHandler())

	token := signToken(t, "shh", jwt.MapClaims{"sub": "bridge-client", "exp": time.Now().Add(time.Hour).Unix()})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
