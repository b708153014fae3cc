package api

import (
	"errors"
	"net/http"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/auth"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/store"
	"github.com/rs/zerolog/log"
)

type registerRequest struct {
	Email        string      `json:"email" validate:"required,email"`
	Username     string      `json:"username" validate:"required,min=3,max=50"`
	FullName     string      `json:"full_name" validate:"required"`
	Password     string      `json:"password" validate:"required,min=6"`
	Role         models.Role `json:"role" validate:"required,oneof=ngo donor community_leader emergency_responder researcher farmer"`
	Phone        *string     `json:"phone"`
	Organization *string     `json:"organization"`
	Location     *string     `json:"location"`
	Latitude     *float64    `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64    `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenUser struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Role     models.Role `json:"role"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        tokenUser `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}

	exists, err := s.store.UserExists(r.Context(), req.Email, req.Username)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if exists {
		writeError(w, http.StatusBadRequest, "Email or username already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		serverError(w, r, err)
		return
	}
	user := &models.User{
		Email:          req.Email,
		Username:       req.Username,
		FullName:       req.FullName,
		HashedPassword: hash,
		Role:           req.Role,
		Phone:          req.Phone,
		Organization:   req.Organization,
		Location:       req.Location,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		IsActive:       true,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusBadRequest, "Email or username already registered")
			return
		}
		serverError(w, r, err)
		return
	}

	log.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		serverError(w, r, err)
		return
	}
	if user == nil || !auth.CheckPassword(user.HashedPassword, req.Password) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	if !user.IsActive {
		writeError(w, http.StatusBadRequest, "Inactive user")
		return
	}

	token, err := s.auth.GenerateAccessToken(user)
	if err != nil {
		serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User: tokenUser{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			FullName: user.FullName,
			Role:     user.Role,
		},
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	page := q.Page()
	if !q.ok(w) {
		return
	}
	users, err := s.store.ListUsers(r.Context(), store.UserFilter{Page: page})
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(users))
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
