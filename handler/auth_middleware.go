package handler

import (
	"context"
	"net/http"
	"strings"

	"go-account-service/common"
	"go-account-service/config"
	"go-account-service/model"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

// CallerServiceKey carries the authenticated upstream service name.
const CallerServiceKey contextKey = "callerService"

// AuthMiddleware verifies the bearer token issued to upstream services by
// the gateway. Tokens are HS256-signed with the shared secret from config.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			err := common.NewAppError(http.StatusUnauthorized, "Authorization header is required", nil)
			err.Send(w)
			return
		}

		headerParts := strings.Split(authHeader, " ")
		if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
			err := common.NewAppError(http.StatusUnauthorized, "Invalid authorization header format", nil)
			err.Send(w)
			return
		}

		tokenString := headerParts[1]
		claims := &model.ServiceClaims{}

		jwtKey := []byte(config.AppConfig.JWT.SecretKey)

		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return jwtKey, nil
		})

		if err != nil || !token.Valid {
			appErr := common.NewAppError(http.StatusUnauthorized, "Invalid or expired token", err)
			appErr.Send(w)
			return
		}

		ctx := context.WithValue(r.Context(), CallerServiceKey, claims.Service)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
