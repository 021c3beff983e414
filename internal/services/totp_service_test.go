package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/models"
)

func newTOTPFixture(t *testing.T) (*TOTPService, *fakeUserStore, *models.User) {
	t.Helper()
	store := newFakeUserStore()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{Name: "Atieno", Email: "atieno@example.com", PasswordHash: string(hash)}
	require.NoError(t, store.Create(context.Background(), user))
	return NewTOTPService(store), store, user
}

func TestGenerateSetupStoresSecret(t *testing.T) {
	svc, store, user := newTOTPFixture(t)
	ctx := context.Background()

	setup, err := svc.GenerateSetup(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.True(t, strings.HasPrefix(setup.QRCode, "data:image/png;base64,"))
	assert.Equal(t, "CoffeeBackend", setup.Issuer)
	assert.Equal(t, user.Email, setup.AccountName)

	stored := store.users[user.ID]
	assert.Equal(t, setup.Secret, stored.TOTPSecret)
	assert.False(t, stored.TOTPEnabled)
}

func TestVerifyAndEnable(t *testing.T) {
	svc, store, user := newTOTPFixture(t)
	ctx := context.Background()

	// Enabling before setup has started is a conflict
	_, err := svc.VerifyAndEnable(ctx, user.ID, "123456")
	assert.True(t, apperrors.IsConflict(err))

	setup, err := svc.GenerateSetup(ctx, user)
	require.NoError(t, err)

	_, err = svc.VerifyAndEnable(ctx, user.ID, "000000")
	assert.True(t, apperrors.IsAccessDenied(err))

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	resp, err := svc.VerifyAndEnable(ctx, user.ID, code)
	require.NoError(t, err)
	require.Len(t, resp.Codes, 10)
	for _, c := range resp.Codes {
		assert.Len(t, c, 8)
	}

	stored := store.users[user.ID]
	assert.True(t, stored.TOTPEnabled)
	assert.Len(t, stored.BackupCodes, 10)
	// Stored codes are hashes, never the plaintext handed to the user
	assert.NotContains(t, stored.BackupCodes, resp.Codes[0])
}

func TestVerifyAcceptsTOTPAndSingleUseBackupCode(t *testing.T) {
	svc, store, user := newTOTPFixture(t)
	ctx := context.Background()

	setup, err := svc.GenerateSetup(ctx, user)
	require.NoError(t, err)
	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	resp, err := svc.VerifyAndEnable(ctx, user.ID, code)
	require.NoError(t, err)

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	assert.NoError(t, svc.Verify(ctx, user.ID, code))

	backup := resp.Codes[3]
	assert.NoError(t, svc.Verify(ctx, user.ID, backup))
	assert.Len(t, store.users[user.ID].BackupCodes, 9)

	// Backup codes are single-use
	err = svc.Verify(ctx, user.ID, backup)
	assert.True(t, apperrors.IsAccessDenied(err))
}

func TestVerifyRequires2FAEnabled(t *testing.T) {
	svc, _, user := newTOTPFixture(t)
	err := svc.Verify(context.Background(), user.ID, "123456")
	assert.True(t, apperrors.IsConflict(err))
}

func TestDisable(t *testing.T) {
	svc, store, user := newTOTPFixture(t)
	ctx := context.Background()

	setup, err := svc.GenerateSetup(ctx, user)
	require.NoError(t, err)
	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	_, err = svc.VerifyAndEnable(ctx, user.ID, code)
	require.NoError(t, err)

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	err = svc.Disable(ctx, user.ID, "wrong password", code)
	assert.True(t, apperrors.IsAccessDenied(err))

	require.NoError(t, svc.Disable(ctx, user.ID, "hunter22", code))
	stored := store.users[user.ID]
	assert.False(t, stored.TOTPEnabled)
	assert.Empty(t, stored.TOTPSecret)
	assert.Empty(t, stored.BackupCodes)
}

func TestRegenerateBackupCodes(t *testing.T) {
	svc, store, user := newTOTPFixture(t)
	ctx := context.Background()

	_, err := svc.RegenerateBackupCodes(ctx, user.ID, "hunter22")
	assert.True(t, apperrors.IsConflict(err))

	setup, err := svc.GenerateSetup(ctx, user)
	require.NoError(t, err)
	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	first, err := svc.VerifyAndEnable(ctx, user.ID, code)
	require.NoError(t, err)
	oldHashes := append([]string(nil), store.users[user.ID].BackupCodes...)

	second, err := svc.RegenerateBackupCodes(ctx, user.ID, "hunter22")
	require.NoError(t, err)
	require.Len(t, second.Codes, 10)
	assert.NotEqual(t, first.Codes, second.Codes)
	assert.NotEqual(t, oldHashes, store.users[user.ID].BackupCodes)
}

func TestGetStatus(t *testing.T) {
	svc, _, user := newTOTPFixture(t)
	ctx := context.Background()

	status, err := svc.GetStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, status.Enabled)
	assert.False(t, status.HasBackupCodes)
}
