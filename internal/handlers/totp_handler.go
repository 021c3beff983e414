package handlers

import (
	"encoding/json"
	"net/http"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/middleware"
	"coffee-backend/internal/models"
	"coffee-backend/internal/services"
	"coffee-backend/pkg/utils"
)

type TOTPHandler struct {
	TOTP  *services.TOTPService
	Users *services.UserService
}

func NewTOTPHandler(totp *services.TOTPService, users *services.UserService) *TOTPHandler {
	return &TOTPHandler{TOTP: totp, Users: users}
}

// Setup starts 2FA enrollment for the authenticated user
func (h *TOTPHandler) Setup(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	user, err := h.Users.GetUser(r.Context(), userID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if user.TOTPEnabled {
		utils.Error(w, apperrors.Conflict("2fa is already enabled"))
		return
	}

	resp, err := h.TOTP.GenerateSetup(r.Context(), user)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// Enable verifies the first code and turns 2FA on
func (h *TOTPHandler) Enable(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPEnableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperrors.Validation("invalid request body"))
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	codes, err := h.TOTP.VerifyAndEnable(r.Context(), userID, req.Code)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, codes)
}

// Disable turns 2FA off after password and code verification
func (h *TOTPHandler) Disable(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPDisableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperrors.Validation("invalid request body"))
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	if err := h.TOTP.Disable(r.Context(), userID, req.Password, req.Code); err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]bool{"enabled": false})
}

// Status returns the caller's 2FA state
func (h *TOTPHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	status, err := h.TOTP.GetStatus(r.Context(), userID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, status)
}

// RegenerateBackupCodes replaces all backup codes
func (h *TOTPHandler) RegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, apperrors.Validation("invalid request body"))
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	codes, err := h.TOTP.RegenerateBackupCodes(r.Context(), userID, req.Password)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, codes)
}
