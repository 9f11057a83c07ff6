package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/NancyGarg/transcribe-ai/core/auth"
	"github.com/NancyGarg/transcribe-ai/logger"
)

type contextKey string

const usernameKey contextKey = "username"

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// LoginHandler checks the API password and issues a token.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if !s.authEnabled() {
		writeError(w, http.StatusNotFound, "Authentication is disabled")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password is required")
		return
	}
	if req.Username == "" {
		req.Username = "admin"
	}

	if !auth.CheckPasswordHash(req.Password, s.opts.PasswordHash) {
		logger.Warn("[Login] Password check failed", logger.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	token, err := s.opts.Tokens.GenerateToken(req.Username)
	if err != nil {
		logger.Error("[Login] Failed to generate token", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	logger.Info("[Login] Token issued", logger.String("username", req.Username))
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, Username: req.Username})
}

// AuthMiddleware requires a valid bearer token when auth is enabled. Browsers
// cannot set headers on WebSocket upgrades, so a token query parameter is
// accepted too.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		token := r.URL.Query().Get("token")
		if header := r.Header.Get("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}
			token = parts[1]
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		claims, err := s.opts.Tokens.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), usernameKey, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UsernameFromContext returns the authenticated user, if any.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameKey).(string)
	return username, ok
}
