package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"

	"github.com/fintrack/backend/internal/database"
)

var redisClient *redis.Client

// InitAuthMiddleware wires the optional Redis client used for the logout
// token blacklist. Without it, tokens stay valid until they expire.
func InitAuthMiddleware(client *redis.Client) {
	redisClient = client
}

// AuthMiddleware verifies the bearer token and injects the caller's integer
// user ID into the request context, short-circuiting with 401 on failure.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			unauthorized(w, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(w, "Invalid authorization header format")
			return
		}

		userID, jti, err := validateToken(parts[1])
		if err != nil {
			unauthorized(w, "Invalid token")
			return
		}

		// Fail open on a blacklist outage: a signed, unexpired token is still
		// honored, but the degraded check is logged so it never goes unnoticed.
		if redisClient != nil && jti != "" {
			n, err := redisClient.Exists(r.Context(), database.BlacklistKey(jti)).Result()
			if err != nil {
				log.Printf("[AUTH] Blacklist check failed, admitting token: %v", err)
			} else if n > 0 {
				unauthorized(w, "Invalid token")
				return
			}
		}

		ctx := context.WithValue(r.Context(), "userID", userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validateToken(tokenString string) (int, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(viper.GetString("jwt.secret_key")), nil
	})
	if err != nil {
		return 0, "", err
	}
	if !token.Valid {
		return 0, "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", errors.New("invalid token claims")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, "", errors.New("missing user_id claim")
	}

	jti, _ := claims["jti"].(string)
	return int(userID), jti, nil
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
