package middleware

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const TokenKey ctxKey = "operatorToken"

// ExtractToken middleware: reads the operator token from Authorization
// (Bearer or raw) or the ?token= query param used by older front-ends.
func ExtractToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth != "" {
			if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				auth = auth[7:]
			}
			auth = strings.TrimSpace(auth)

			ctx := context.WithValue(r.Context(), TokenKey, auth)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if tokenParam := r.URL.Query().Get("token"); tokenParam != "" {
			ctx := context.WithValue(r.Context(), TokenKey, tokenParam)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		ctx := context.WithValue(r.Context(), TokenKey, "")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetToken retrieves the operator token anywhere downstream.
func GetToken(r *http.Request) string {
	token := r.Context().Value(TokenKey)
	if token == nil {
		return ""
	}
	return token.(string)
}
