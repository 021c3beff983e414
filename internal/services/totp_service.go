package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"image/png"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/models"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

const (
	totpIssuer       = "CoffeeBackend"
	backupCodeCount  = 10
	backupCodeLength = 8
)

type TOTPService struct {
	Users UserStore
}

func NewTOTPService(users UserStore) *TOTPService {
	return &TOTPService{Users: users}
}

// GenerateSetup creates a new TOTP secret and QR code for a user. The secret
// is stored immediately but 2FA stays off until VerifyAndEnable succeeds.
func (s *TOTPService) GenerateSetup(ctx context.Context, user *models.User) (*models.TOTPSetupResponse, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, apperrors.Store(err, "failed to generate totp secret")
	}

	if err := s.Users.SetTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
		return nil, err
	}

	qrImage, err := key.Image(200, 200)
	if err != nil {
		return nil, apperrors.Store(err, "failed to render qr code")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, qrImage); err != nil {
		return nil, apperrors.Store(err, "failed to encode qr code")
	}

	return &models.TOTPSetupResponse{
		Secret:      key.Secret(),
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Issuer:      totpIssuer,
		AccountName: user.Email,
	}, nil
}

// VerifyAndEnable verifies a TOTP code and enables 2FA for the user,
// returning the one-time set of plaintext backup codes.
func (s *TOTPService) VerifyAndEnable(ctx context.Context, userID int, code string) (*models.BackupCodesResponse, error) {
	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPSecret == "" {
		return nil, apperrors.Conflict("2fa setup has not been started")
	}
	if !totp.Validate(code, user.TOTPSecret) {
		return nil, apperrors.AccessDenied("invalid authenticator code")
	}

	codes, hashed, err := generateBackupCodes()
	if err != nil {
		return nil, apperrors.Store(err, "failed to generate backup codes")
	}
	if err := s.Users.EnableTOTP(ctx, userID, hashed); err != nil {
		return nil, err
	}
	return &models.BackupCodesResponse{Codes: codes}, nil
}

// Verify validates a TOTP code or an unused backup code during login.
// Backup codes are single-use and removed on a successful match.
func (s *TOTPService) Verify(ctx context.Context, userID int, code string) error {
	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled || user.TOTPSecret == "" {
		return apperrors.Conflict("2fa is not enabled for this account")
	}

	if totp.Validate(code, user.TOTPSecret) {
		return nil
	}

	for i, hash := range user.BackupCodes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil {
			remaining := append(append([]string{}, user.BackupCodes[:i]...), user.BackupCodes[i+1:]...)
			return s.Users.SetBackupCodes(ctx, userID, remaining)
		}
	}
	return apperrors.AccessDenied("invalid authenticator code")
}

// Disable turns 2FA off after verifying the password and a current code
func (s *TOTPService) Disable(ctx context.Context, userID int, password, code string) error {
	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return apperrors.AccessDenied("invalid password")
	}
	if !totp.Validate(code, user.TOTPSecret) {
		return apperrors.AccessDenied("invalid authenticator code")
	}
	return s.Users.DisableTOTP(ctx, userID)
}

// RegenerateBackupCodes replaces all backup codes after a password check
func (s *TOTPService) RegenerateBackupCodes(ctx context.Context, userID int, password string) (*models.BackupCodesResponse, error) {
	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperrors.AccessDenied("invalid password")
	}
	if !user.TOTPEnabled {
		return nil, apperrors.Conflict("2fa is not enabled for this account")
	}

	codes, hashed, err := generateBackupCodes()
	if err != nil {
		return nil, apperrors.Store(err, "failed to generate backup codes")
	}
	if err := s.Users.SetBackupCodes(ctx, userID, hashed); err != nil {
		return nil, err
	}
	return &models.BackupCodesResponse{Codes: codes}, nil
}

// GetStatus returns the 2FA state shown on the profile page
func (s *TOTPService) GetStatus(ctx context.Context, userID int) (*models.User2FAStatus, error) {
	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.User2FAStatus{
		Enabled:        user.TOTPEnabled,
		EnabledAt:      user.TOTPEnabledAt,
		HasBackupCodes: len(user.BackupCodes) > 0,
	}, nil
}

const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateBackupCodes() (codes, hashed []string, err error) {
	codes = make([]string, backupCodeCount)
	hashed = make([]string, backupCodeCount)
	for i := range codes {
		buf := make([]byte, backupCodeLength)
		if _, err := rand.Read(buf); err != nil {
			return nil, nil, err
		}
		for j, b := range buf {
			buf[j] = backupCodeAlphabet[int(b)%len(backupCodeAlphabet)]
		}
		codes[i] = string(buf)

		h, err := bcrypt.GenerateFromPassword(buf, bcrypt.DefaultCost)
		if err != nil {
			return nil, nil, err
		}
		hashed[i] = string(h)
	}
	return codes, hashed, nil
}
