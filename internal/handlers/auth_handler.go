package handlers

import (
	"encoding/json"
	"net/http"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/auth"
	"coffee-backend/internal/models"
	"coffee-backend/internal/services"
	"coffee-backend/pkg/utils"
)

type AuthHandler struct {
	Users      *services.UserService
	TOTP       *services.TOTPService
	JWTManager *auth.JWTManager
}

func NewAuthHandler(users *services.UserService, totp *services.TOTPService, jwtManager *auth.JWTManager) *AuthHandler {
	return &AuthHandler{Users: users, TOTP: totp, JWTManager: jwtManager}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperrors.Validation("invalid request body"))
		return
	}

	resp, err := h.Users.Signup(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, resp)
}

// Login is step 1: password check. Accounts with 2FA get a temp token and
// finish at /auth/verify-2fa.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperrors.Validation("invalid request body"))
		return
	}

	resp, step1, err := h.Users.Login(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if step1 != nil {
		utils.JSON(w, http.StatusOK, step1)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// Verify2FA finishes a 2FA login using the temp token plus a TOTP or backup code
func (h *AuthHandler) Verify2FA(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperrors.Validation("invalid request body"))
		return
	}

	claims, err := h.JWTManager.ValidateTempToken(req.TempToken)
	if err != nil {
		utils.Error(w, apperrors.AccessDenied("invalid or expired temporary token"))
		return
	}
	if err := h.TOTP.Verify(r.Context(), claims.UserID, req.Code); err != nil {
		utils.Error(w, err)
		return
	}

	user, err := h.Users.GetUser(r.Context(), claims.UserID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	token, err := h.JWTManager.GenerateToken(user)
	if err != nil {
		utils.Error(w, apperrors.Store(err, "failed to issue token"))
		return
	}
	utils.JSON(w, http.StatusOK, &models.AuthResponse{Token: token, User: user})
}
