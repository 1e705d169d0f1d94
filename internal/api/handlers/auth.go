package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"medmind-api/internal/app"
	"medmind-api/internal/auth"
	"medmind-api/internal/logger"
	"medmind-api/internal/repository/db"
	"medmind-api/pkg/validation"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenData struct {
	Token        string `json:"token"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Subscription string `json:"subscription"`
}

// AuthHandlers handles registration and login
type AuthHandlers struct {
	config    *app.Config
	validator *validation.AuthRequestValidator
}

// NewAuthHandlers creates a new AuthHandlers
func NewAuthHandlers(config *app.Config) *AuthHandlers {
	return &AuthHandlers{
		config:    config,
		validator: validation.NewAuthRequestValidator(),
	}
}

// LoginHandler authenticates user and returns JWT token
func (h *AuthHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.SendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.validator.ValidateLoginRequest(req.Username, req.Password); err != nil {
		auth.SendError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	user, err := h.config.DB.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			logger.Log.WithError(err).Error("Error loading user during login")
		}
		logger.Log.WithField("username", req.Username).Warn("Login failed: user not found")
		auth.SendError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	if !user.VerifyPassword(req.Password) {
		logger.Log.WithField("username", req.Username).Warn("Login failed: invalid password")
		auth.SendError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	h.sendToken(w, http.StatusOK, "Login successful", user)
}

// RegisterHandler creates a trial account and returns JWT token
func (h *AuthHandlers) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.SendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	if err := h.validator.ValidateRegisterRequest(req.Username, req.Email, req.Password); err != nil {
		auth.SendError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	expiresAt := h.config.Quota.TrialExpiry(h.config.AppConfig.Auth.TrialDuration)
	user, err := h.config.DB.CreateUser(r.Context(), req.Username, req.Email, req.Password, db.SubscriptionTrial, &expiresAt)
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			auth.SendError(w, http.StatusConflict, "Username already exists", nil)
			return
		}
		logger.Log.WithError(err).WithField("username", req.Username).Error("Registration failed")
		auth.SendError(w, http.StatusInternalServerError, "Error creating user", nil)
		return
	}

	logger.Log.WithField("username", user.Username).Info("User registered successfully")
	h.sendToken(w, http.StatusCreated, "User registered successfully", user)
}

func (h *AuthHandlers) sendToken(w http.ResponseWriter, status int, message string, user *db.User) {
	token, err := h.config.Auth.GenerateToken(user)
	if err != nil {
		logger.Log.WithError(err).Error("Error generating token")
		auth.SendError(w, http.StatusInternalServerError, "Error generating token", nil)
		return
	}

	sendJSON(w, status, message, TokenData{
		Token:        token,
		UserID:       user.ID,
		Username:     user.Username,
		Subscription: string(user.SubscriptionStatus),
	})
}
