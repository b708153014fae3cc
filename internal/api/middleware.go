package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/store"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	userContextKey = contextKey("user")
)

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// authenticate resolves the token to an active user. A nil user with a nil
// error means the token was missing, invalid or stale.
func (s *Server) authenticate(r *http.Request, tokenStr string) (*models.User, error) {
	if tokenStr == "" {
		return nil, nil
	}
	claims, err := s.auth.ValidateToken(tokenStr)
	if err != nil {
		return nil, nil
	}
	user, err := s.store.GetUser(r.Context(), claims.UserID())
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

func (s *Server) jwtMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.authenticate(r, bearerToken(r))
		if err != nil {
			serverError(w, r, err)
			return
		}
		if user == nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if !user.IsActive {
			writeError(w, http.StatusBadRequest, "Inactive user")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionalAuth attaches the user when a valid token is present and lets the
// request through either way.
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.authenticate(r, bearerToken(r))
		if err != nil {
			log.Warn().Err(err).Msg("optional authentication failed")
		}
		if user != nil && user.IsActive {
			r = r.WithContext(context.WithValue(r.Context(), userContextKey, user))
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(userContextKey).(*models.User)
	return u
}

// RequireRole admits users holding one of roles. Admins are always admitted.
func (s *Server) RequireRole(detail string, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := currentUser(r)
			if user == nil {
				writeError(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}

			// Admin can access everything
			if user.Role == models.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}

			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, http.StatusForbidden, detail)
		})
	}
}
