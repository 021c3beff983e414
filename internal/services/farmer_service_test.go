package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/models"
	"coffee-backend/internal/scope"
)

func newFarmerFixture() (*FarmerService, *testLedger) {
	l := newTestLedger()
	return NewFarmerService(&fakeFarmerStore{l: l}), l
}

func TestCreateFarmer(t *testing.T) {
	svc, _ := newFarmerFixture()
	ctx := context.Background()
	admin := scope.Access{UserID: 1, Role: models.RoleAdmin}

	farmer, err := svc.Create(ctx, admin, models.CreateFarmerRequest{
		Name: "Wanjiku", Phone: "0712345678", WeighStation: "Nyeri", Season: "2026A",
	}, admin.UserID)
	require.NoError(t, err)
	assert.NotZero(t, farmer.ID)
	assert.Equal(t, admin.UserID, farmer.CreatedByUserID)

	_, err = svc.Create(ctx, admin, models.CreateFarmerRequest{Phone: "07", WeighStation: "Nyeri"}, admin.UserID)
	assert.True(t, apperrors.IsValidation(err))
	_, err = svc.Create(ctx, admin, models.CreateFarmerRequest{Name: "X", WeighStation: "Nyeri"}, admin.UserID)
	assert.True(t, apperrors.IsValidation(err))
	_, err = svc.Create(ctx, admin, models.CreateFarmerRequest{Name: "X", Phone: "07"}, admin.UserID)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreateFarmerScopedAgent(t *testing.T) {
	svc, _ := newFarmerFixture()
	ctx := context.Background()
	agent := scope.Access{UserID: 2, Role: models.RoleFieldAgent, Region: "Nyeri"}

	_, err := svc.Create(ctx, agent, models.CreateFarmerRequest{
		Name: "Njoroge", Phone: "0700000001", WeighStation: "Embu",
	}, agent.UserID)
	assert.True(t, apperrors.IsAccessDenied(err))

	farmer, err := svc.Create(ctx, agent, models.CreateFarmerRequest{
		Name: "Wanjiku", Phone: "0700000002", WeighStation: "Nyeri",
	}, agent.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Nyeri", farmer.WeighStation)
}

func TestGetFarmerScoped(t *testing.T) {
	svc, l := newFarmerFixture()
	ctx := context.Background()
	agent := scope.Access{UserID: 2, Role: models.RoleFieldAgent, Region: "Nyeri"}

	outside := l.addFarmer(models.Farmer{Name: "Njoroge", WeighStation: "Embu"})
	_, err := svc.Get(ctx, agent, outside.ID)
	assert.True(t, apperrors.IsAccessDenied(err))

	local := l.addFarmer(models.Farmer{Name: "Wanjiku", WeighStation: "Nyeri"})
	got, err := svc.Get(ctx, agent, local.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wanjiku", got.Name)
}

func TestUpdateFarmerMoveRequiresTargetRegion(t *testing.T) {
	svc, l := newFarmerFixture()
	ctx := context.Background()
	agent := scope.Access{UserID: 2, Role: models.RoleFieldAgent, Region: "Nyeri"}

	farmer := l.addFarmer(models.Farmer{Name: "Wanjiku", Phone: "0712345678", WeighStation: "Nyeri"})

	// Moving a farmer to another station is a write to that station
	_, err := svc.Update(ctx, agent, farmer.ID, models.UpdateFarmerRequest{
		Name: "Wanjiku", Phone: "0712345678", WeighStation: "Embu",
	})
	assert.True(t, apperrors.IsAccessDenied(err))

	updated, err := svc.Update(ctx, agent, farmer.ID, models.UpdateFarmerRequest{
		Name: "Wanjiku Mwangi", Phone: "0712345678", WeighStation: "Nyeri",
	})
	require.NoError(t, err)
	assert.Equal(t, "Wanjiku Mwangi", updated.Name)
}

func TestListFarmersScoped(t *testing.T) {
	svc, l := newFarmerFixture()
	ctx := context.Background()
	agent := scope.Access{UserID: 2, Role: models.RoleFieldAgent, Region: "Nyeri"}

	l.addFarmer(models.Farmer{Name: "Wanjiku", WeighStation: "Nyeri"})
	l.addFarmer(models.Farmer{Name: "Njoroge", WeighStation: "Embu"})

	farmers, err := svc.List(ctx, agent, models.FarmerFilter{})
	require.NoError(t, err)
	require.Len(t, farmers, 1)
	assert.Equal(t, "Wanjiku", farmers[0].Name)
}
