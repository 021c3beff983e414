package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/models"
	"coffee-backend/internal/scope"
)

func newDeliveryFixture() (*DeliveryService, *testLedger) {
	l := newTestLedger()
	return NewDeliveryService(&fakeDeliveryStore{l: l}, &fakeFarmerStore{l: l}, &fakePaymentStore{l: l}), l
}

func TestCreateDeliveryDefaultsRegionToWeighStation(t *testing.T) {
	svc, l := newDeliveryFixture()
	ctx := context.Background()
	admin := scope.Access{UserID: 1, Role: models.RoleAdmin}

	farmer := l.addFarmer(models.Farmer{Name: "Wanjiku", WeighStation: "Nyeri"})

	d, err := svc.Create(ctx, admin, models.CreateDeliveryRequest{
		FarmerID:     farmer.ID,
		DeliveryType: models.DeliveryTypeCherry,
		KgsDelivered: 75,
		Driver:       "  Kamau ",
	}, admin.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Nyeri", d.Region)
	assert.Equal(t, "Kamau", d.Driver)
	assert.False(t, d.Date.IsZero())
}

func TestCreateDeliveryValidation(t *testing.T) {
	svc, l := newDeliveryFixture()
	ctx := context.Background()
	admin := scope.Access{UserID: 1, Role: models.RoleAdmin}
	farmer := l.addFarmer(models.Farmer{Name: "Wanjiku", WeighStation: "Nyeri"})

	cases := []struct {
		name string
		req  models.CreateDeliveryRequest
	}{
		{"missing farmer", models.CreateDeliveryRequest{DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 10}},
		{"unknown type", models.CreateDeliveryRequest{FarmerID: farmer.ID, DeliveryType: "Husks", KgsDelivered: 10}},
		{"zero kgs", models.CreateDeliveryRequest{FarmerID: farmer.ID, DeliveryType: models.DeliveryTypeCherry}},
		{"bad date", models.CreateDeliveryRequest{FarmerID: farmer.ID, DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 10, Date: "15/03/2026"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, admin, tc.req, admin.UserID)
			assert.True(t, apperrors.IsValidation(err), "expected validation error, got %v", err)
		})
	}

	_, err := svc.Create(ctx, admin, models.CreateDeliveryRequest{
		FarmerID: 999, DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 10,
	}, admin.UserID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateDeliveryScopedAgent(t *testing.T) {
	svc, l := newDeliveryFixture()
	ctx := context.Background()
	agent := scope.Access{UserID: 2, Role: models.RoleFieldAgent, Region: "Nyeri"}

	outside := l.addFarmer(models.Farmer{Name: "Njoroge", WeighStation: "Embu"})
	_, err := svc.Create(ctx, agent, models.CreateDeliveryRequest{
		FarmerID: outside.ID, DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 10,
	}, agent.UserID)
	assert.True(t, apperrors.IsAccessDenied(err))
}

func TestUpdateSettledDeliveryIsFrozen(t *testing.T) {
	svc, l := newDeliveryFixture()
	ctx := context.Background()
	admin := scope.Access{UserID: 1, Role: models.RoleAdmin}

	farmer := l.addFarmer(models.Farmer{Name: "Wanjiku", WeighStation: "Nyeri"})
	payment := l.addPayment(models.Payment{FarmerID: farmer.ID, Status: models.PaymentStatusCompleted, Date: time.Now()})
	settled := l.addDelivery(models.Delivery{FarmerID: farmer.ID, DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 100, Date: time.Now(), PaymentID: &payment.ID})

	_, err := svc.Update(ctx, admin, settled.ID, models.UpdateDeliveryRequest{
		DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 90,
	})
	assert.True(t, apperrors.IsConflict(err))
}

func TestUpdateDeliveryWithFailedClaimIsEditable(t *testing.T) {
	svc, l := newDeliveryFixture()
	ctx := context.Background()
	admin := scope.Access{UserID: 1, Role: models.RoleAdmin}

	farmer := l.addFarmer(models.Farmer{Name: "Wanjiku", WeighStation: "Nyeri"})
	failed := l.addPayment(models.Payment{FarmerID: farmer.ID, Status: models.PaymentStatusFailed, Date: time.Now()})
	d := l.addDelivery(models.Delivery{FarmerID: farmer.ID, DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 100, Date: time.Now(), PaymentID: &failed.ID})

	updated, err := svc.Update(ctx, admin, d.ID, models.UpdateDeliveryRequest{
		DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 90, Driver: "Kamau",
	})
	require.NoError(t, err)
	assert.Equal(t, 90.0, updated.KgsDelivered)
	assert.Equal(t, "Kamau", updated.Driver)
	assert.Equal(t, 90.0, l.deliveries[d.ID].KgsDelivered)
}

func TestGetDeliveryScoped(t *testing.T) {
	svc, l := newDeliveryFixture()
	ctx := context.Background()
	agent := scope.Access{UserID: 2, Role: models.RoleFieldAgent, Region: "Nyeri"}

	farmer := l.addFarmer(models.Farmer{Name: "Njoroge", WeighStation: "Embu"})
	d := l.addDelivery(models.Delivery{FarmerID: farmer.ID, DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 10, Date: time.Now()})

	_, err := svc.Get(ctx, agent, d.ID)
	assert.True(t, apperrors.IsAccessDenied(err))
}
