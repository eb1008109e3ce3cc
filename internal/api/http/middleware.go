package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"chitfund-backend/internal/config"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/security"

	"github.com/gorilla/mux"
)

// AuthMiddleware enforces the security level registered for the matched
// route name. Unknown routes require an admin.
func AuthMiddleware(tm security.TokenManager) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := ""
			if route := mux.CurrentRoute(r); route != nil {
				name = route.GetName()
			}
			level := config.GetSecurityLevel(name)

			// Public endpoint - skip auth
			if level == config.SecurityPublic {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := extractToken(r)
			if !ok {
				writeProblem(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authorization token is not provided")
				return
			}
			claims, err := tm.ValidateToken(token)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, security.ErrExpiredToken) {
					msg = "token has expired"
				}
				writeProblem(w, http.StatusUnauthorized, "UNAUTHENTICATED", msg)
				return
			}
			if level == config.SecurityAdmin && !claims.IsAdmin() {
				writeProblem(w, http.StatusForbidden, "FORBIDDEN", security.ErrForbidden.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

func extractToken(r *http.Request) (string, bool) {
	token := r.Header.Get("Authorization")
	if token == "" {
		return "", false
	}
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = token[7:]
	}
	return token, token != ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs one line per request with the route name.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}
		logger.Info("HTTP request",
			"method", r.Method,
			"route", name,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
