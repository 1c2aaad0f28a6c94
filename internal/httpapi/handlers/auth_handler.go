package handlers

import (
	"context"
	"net/http"

	"github.com/bengobox/church-admin/internal/audit"
	"github.com/bengobox/church-admin/internal/httpapi/middleware"
	"github.com/bengobox/church-admin/internal/services/auth"
	"github.com/bengobox/church-admin/internal/services/users"
	"github.com/bengobox/church-admin/internal/token"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthService defines the session and account operations used by AuthHandler.
type AuthService interface {
	Login(ctx context.Context, in auth.LoginInput) (*auth.Result, error)
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Result, error)
	Me(ctx context.Context, id uuid.UUID) (*users.User, error)
	Logout(ctx context.Context, actor audit.Actor, identity *token.Identity) error
	ChangePassword(ctx context.Context, actor audit.Actor, current, next string) error
	RequestPasswordReset(ctx context.Context, actor audit.Actor, email string) (string, error)
	ConfirmPasswordReset(ctx context.Context, actor audit.Actor, resetToken, next string) error
}

// AuthHandler exposes login, registration and password endpoints.
type AuthHandler struct {
	service          AuthService
	logger           *zap.Logger
	exposeResetToken bool
}

// NewAuthHandler constructs AuthHandler. exposeResetToken echoes reset tokens
// in the response and must only be set in development.
func NewAuthHandler(service AuthService, logger *zap.Logger, exposeResetToken bool) *AuthHandler {
	return &AuthHandler{service: service, logger: logger, exposeResetToken: exposeResetToken}
}

// Login exchanges credentials for a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Actor:    actorFrom(r),
	})
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse("login successful", result))
}

// Register creates a church together with its first admin and signs them in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Register(r.Context(), auth.RegisterInput{
		ChurchName: req.ChurchName,
		AdminName:  req.AdminName,
		Email:      req.Email,
		Password:   req.Password,
		CPF:        req.CPF,
		Phone:      req.Phone,
		Actor:      actorFrom(r),
	})
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse("registration successful", result))
}

// Me returns the authenticated user profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing auth context", nil)
		return
	}

	user, err := h.service.Me(r.Context(), identity.UserID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// Logout revokes the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing auth context", nil)
		return
	}

	if err := h.service.Logout(r.Context(), actorFrom(r), identity); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// ChangePassword replaces the caller's password after checking the current one.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), actorFrom(r), req.CurrentPassword, req.NewPassword); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

// RequestPasswordReset issues a reset token. The response is identical for
// unknown emails.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resetToken, err := h.service.RequestPasswordReset(r.Context(), actorFrom(r), req.Email)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	resp := map[string]any{"message": "if the email is registered, a reset token has been issued"}
	if h.exposeResetToken && resetToken != "" {
		resp["resetToken"] = resetToken
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// ConfirmPasswordReset consumes a reset token and updates the password.
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ConfirmPasswordReset(r.Context(), actorFrom(r), req.Token, req.NewPassword); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password reset"})
}

func sessionResponse(message string, result *auth.Result) map[string]any {
	resp := map[string]any{
		"message":   message,
		"token":     result.Token,
		"tokenType": "Bearer",
		"expiresAt": result.ExpiresAt,
		"user":      result.User,
	}
	if result.Igreja != nil {
		resp["igreja"] = result.Igreja
	}
	return resp
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	ChurchName string `json:"churchName"`
	AdminName  string `json:"adminName"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	CPF        string `json:"cpf"`
	Phone      string `json:"phone"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type passwordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}
