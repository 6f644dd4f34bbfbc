package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/burntop/burntop/internal/api"
	"github.com/burntop/burntop/internal/logger"
	"github.com/burntop/burntop/internal/storage"
)

const (
	minPasswordLength = 8
	sessionTokenBytes = 32
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

// HandleRegister handles POST /api/v1/auth/register
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, r, api.NewValidationError("body", "invalid JSON payload"))
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	if !strings.Contains(req.Email, "@") {
		api.WriteError(w, r, api.NewValidationError("email", "must be a valid email address"))
		return
	}
	if !usernamePattern.MatchString(req.Username) {
		api.WriteError(w, r, api.NewValidationError("username", "must be 3-30 characters of letters, digits and underscores"))
		return
	}
	if len(req.Password) < minPasswordLength {
		api.WriteError(w, r, api.NewValidationError("password", "must be at least 8 characters"))
		return
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			api.WriteError(w, r, api.NewValidationError("timezone", "must be a valid IANA timezone"))
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		api.WriteError(w, r, fmt.Errorf("hashing password: %w", err))
		return
	}

	user := &storage.User{
		Email:        req.Email,
		Username:     req.Username,
		IsPublic:     true,
		PasswordHash: string(hash),
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if storage.IsUniqueViolation(err) {
			api.WriteError(w, r, api.NewConflictError("user", "email or username already taken"))
			return
		}
		api.WriteError(w, r, api.NewStorageError("create user", err))
		return
	}

	if req.Timezone != "" {
		st := &storage.Streak{UserID: user.ID, Timezone: req.Timezone}
		if err := h.store.UpsertStreak(r.Context(), st); err != nil {
			logger.Warn("failed to seed streak timezone", "user_id", user.ID, "error", err)
		}
	}

	session, err := h.createSession(r, user.ID)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, authResponse(session, user))
}

// HandleLogin handles POST /api/v1/auth/login
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, r, api.NewValidationError("body", "invalid JSON payload"))
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	user, err := h.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		api.WriteError(w, r, api.NewStorageError("look up user", err))
		return
	}
	if user == nil || user.PasswordHash == "" {
		api.WriteError(w, r, api.NewUnauthorizedError("invalid email or password"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		api.WriteError(w, r, api.NewUnauthorizedError("invalid email or password"))
		return
	}

	session, err := h.createSession(r, user.ID)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, authResponse(session, user))
}

// HandleMe handles GET /api/v1/users/me
func (h *Handlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticate(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, userProfile(user))
}

func (h *Handlers) createSession(r *http.Request, userID uuid.UUID) (*storage.Session, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generating session token: %w", err)
	}
	session := &storage.Session{
		Token:     hex.EncodeToString(buf),
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(time.Duration(h.config.SessionTTLHours) * time.Hour),
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.CreateSession(r.Context(), session); err != nil {
		return nil, api.NewStorageError("create session", err)
	}
	return session, nil
}

func authResponse(session *storage.Session, user *storage.User) api.AuthResponse {
	return api.AuthResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      userProfile(user),
	}
}

func userProfile(user *storage.User) api.UserProfile {
	return api.UserProfile{
		ID:          user.ID.String(),
		Email:       user.Email,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Bio:         user.Bio,
		Location:    user.Location,
		Website:     user.Website,
		IsPublic:    user.IsPublic,
		CreatedAt:   user.CreatedAt,
	}
}
