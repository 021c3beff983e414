package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/auth"
	"coffee-backend/internal/config"
	"coffee-backend/internal/models"
)

func newUserFixture() (*UserService, *fakeUserStore) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 24
	cfg.JWT.Issuer = "coffee-backend-test"
	store := newFakeUserStore()
	return NewUserService(store, auth.NewJWTManager(cfg)), store
}

func TestFirstSignupBecomesAdmin(t *testing.T) {
	svc, _ := newUserFixture()
	ctx := context.Background()

	resp, err := svc.Signup(ctx, &models.SignupRequest{
		Name: "Atieno", Email: "Atieno@Example.com", Password: "hunter22",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "atieno@example.com", resp.User.Email)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.True(t, resp.User.IsActive)
	assert.NotEqual(t, "hunter22", resp.User.PasswordHash)
}

func TestLaterSignupsAreFieldAgents(t *testing.T) {
	svc, _ := newUserFixture()
	ctx := context.Background()

	_, err := svc.Signup(ctx, &models.SignupRequest{Name: "Atieno", Email: "atieno@example.com", Password: "hunter22"})
	require.NoError(t, err)
	resp, err := svc.Signup(ctx, &models.SignupRequest{Name: "Kamau", Email: "kamau@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleFieldAgent, resp.User.Role)
	assert.Empty(t, resp.User.AssignedRegion)
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newUserFixture()
	ctx := context.Background()

	_, err := svc.Signup(ctx, &models.SignupRequest{Name: "Atieno", Email: "atieno@example.com", Password: "hunter22"})
	require.NoError(t, err)
	_, err = svc.Signup(ctx, &models.SignupRequest{Name: "Clone", Email: "atieno@example.com", Password: "other"})
	assert.True(t, apperrors.IsConflict(err))
}

func TestLogin(t *testing.T) {
	svc, store := newUserFixture()
	ctx := context.Background()

	_, err := svc.Signup(ctx, &models.SignupRequest{Name: "Atieno", Email: "atieno@example.com", Password: "hunter22"})
	require.NoError(t, err)

	resp, step1, err := svc.Login(ctx, &models.LoginRequest{Email: "atieno@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Nil(t, step1)
	assert.NotEmpty(t, resp.Token)

	_, _, err = svc.Login(ctx, &models.LoginRequest{Email: "atieno@example.com", Password: "wrong"})
	assert.True(t, apperrors.IsAccessDenied(err))

	_, _, err = svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "hunter22"})
	assert.True(t, apperrors.IsAccessDenied(err))

	require.NoError(t, store.SetActive(ctx, 1, false))
	_, _, err = svc.Login(ctx, &models.LoginRequest{Email: "atieno@example.com", Password: "hunter22"})
	assert.True(t, apperrors.IsAccessDenied(err))
}

func TestLoginWith2FAEnabledReturnsTempToken(t *testing.T) {
	svc, store := newUserFixture()
	ctx := context.Background()

	_, err := svc.Signup(ctx, &models.SignupRequest{Name: "Atieno", Email: "atieno@example.com", Password: "hunter22"})
	require.NoError(t, err)
	require.NoError(t, store.SetTOTPSecret(ctx, 1, "JBSWY3DPEHPK3PXP"))
	require.NoError(t, store.EnableTOTP(ctx, 1, nil))

	resp, step1, err := svc.Login(ctx, &models.LoginRequest{Email: "atieno@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Nil(t, resp)
	require.NotNil(t, step1)
	assert.True(t, step1.Requires2FA)
	assert.NotEmpty(t, step1.TempToken)
}

func TestCreateUserValidatesRole(t *testing.T) {
	svc, _ := newUserFixture()
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, &models.CreateUserRequest{
		Name: "Atieno", Email: "atieno@example.com", Password: "hunter22", Role: "superuser",
	})
	assert.True(t, apperrors.IsValidation(err))

	user, err := svc.CreateUser(ctx, &models.CreateUserRequest{
		Name: "Atieno", Email: "atieno@example.com", Password: "hunter22",
		Role: models.RoleFieldAgent, AssignedRegion: "Nyeri",
	})
	require.NoError(t, err)
	assert.Equal(t, "Nyeri", user.AssignedRegion)
}

func TestUpdateUserKeepsPasswordWhenOmitted(t *testing.T) {
	svc, store := newUserFixture()
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, &models.CreateUserRequest{
		Name: "Atieno", Email: "atieno@example.com", Password: "hunter22", Role: models.RoleFieldAgent,
	})
	require.NoError(t, err)
	before := store.users[created.ID].PasswordHash

	_, err = svc.UpdateUser(ctx, created.ID, &models.UpdateUserRequest{
		Name: "Atieno O.", Email: "atieno@example.com", Role: models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, before, store.users[created.ID].PasswordHash)
	assert.Equal(t, models.RoleAdmin, store.users[created.ID].Role)

	_, err = svc.UpdateUser(ctx, created.ID, &models.UpdateUserRequest{
		Name: "Atieno O.", Email: "atieno@example.com", Role: models.RoleAdmin, Password: "newpass99",
	})
	require.NoError(t, err)
	assert.NotEqual(t, before, store.users[created.ID].PasswordHash)
}
