// Copyright 2025 The Docpipeline Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transport

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// RequireBearerToken wraps next with HS256 bearer-token validation
// against secret. A missing, malformed, or invalid token is rejected with
// CodeAuthFailed before next ever sees the request. Absent a configured
// secret the bridge should not wrap its router with this middleware at
// all; the spec treats authentication as a boundary concern the operator
// opts into, not a hardcoded requirement.
func RequireBearerToken(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString := strings.TrimPrefix(header, "Bearer ")
			if tokenString == "" || tokenString == header {
				writeEnvelope(w, NewError(CodeAuthFailed, "missing bearer token", "include an Authorization: Bearer <token> header"))
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				return key, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				writeEnvelope(w, NewError(CodeAuthFailed, "invalid or expired token", "re-authenticate and retry"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
