// Package middleware provides the JWT auth and rate-limiting HTTP
// middleware the control-plane server wraps its routes with.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig holds authentication configuration for the control plane.
type AuthConfig struct {
	JWTSecret    string
	Enabled      bool
	PublicPaths  []string
	AdminPaths   []string
	RequireAdmin bool
}

// Claims represents the JWT claims a control-plane token carries: a
// subject and its cluster-wide role, admin or viewer, rather than the
// teacher's per-namespace role list, since a control plane for one
// cluster run has no namespace concept.
type Claims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

type contextKey string

const UserContextKey contextKey = "user"

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// AuthMiddleware creates a JWT authentication middleware.
func AuthMiddleware(config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			for _, path := range config.PublicPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeJSONError(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(config.JWTSecret), nil
			})
			if err != nil {
				writeJSONError(w, fmt.Sprintf("invalid token: %v", err), http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(*Claims)
			if !ok || !token.Valid {
				writeJSONError(w, "invalid token claims", http.StatusUnauthorized)
				return
			}

			isAdminPath := false
			for _, path := range config.AdminPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					isAdminPath = true
					break
				}
			}
			if isAdminPath && claims.Role != RoleAdmin {
				writeJSONError(w, "admin role required", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaimsFromContext retrieves the request's JWT claims, if any.
func GetClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*Claims)
	return claims, ok
}

// GenerateToken creates a signed HS256 token for a given subject/role.
func GenerateToken(subject, role, secret string) (string, error) {
	claims := &Claims{
		Subject: subject,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "dlsh-control",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, `{"error": "%s", "status": %d}`, message, statusCode)
}
