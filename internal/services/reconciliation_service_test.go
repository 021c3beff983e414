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

func newReconFixture() (*ReconciliationService, *testLedger) {
	l := newTestLedger()
	return NewReconciliationService(&fakeDeliveryStore{l: l}, &fakeFarmerStore{l: l}), l
}

func TestUnpaidTotalsByType(t *testing.T) {
	svc, l := newReconFixture()
	ctx := context.Background()
	admin := scope.Access{UserID: 1, Role: models.RoleAdmin}

	farmer := l.addFarmer(models.Farmer{Name: "Wanjiku", WeighStation: "Nyeri"})
	d1 := l.addDelivery(models.Delivery{FarmerID: farmer.ID, DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 100, Date: time.Now()})
	d2 := l.addDelivery(models.Delivery{FarmerID: farmer.ID, DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 50, Date: time.Now()})
	d3 := l.addDelivery(models.Delivery{FarmerID: farmer.ID, DeliveryType: models.DeliveryTypeParchment, KgsDelivered: 30, Date: time.Now()})

	totals, err := svc.UnpaidTotalsByType(ctx, admin, farmer.ID)
	require.NoError(t, err)
	require.Len(t, totals, 2)

	assert.Equal(t, models.DeliveryTypeCherry, totals[0].DeliveryType)
	assert.Equal(t, 150.0, totals[0].TotalKgs)
	assert.Equal(t, []int{d1.ID, d2.ID}, totals[0].DeliveryIDs)

	assert.Equal(t, models.DeliveryTypeParchment, totals[1].DeliveryType)
	assert.Equal(t, 30.0, totals[1].TotalKgs)
	assert.Equal(t, []int{d3.ID}, totals[1].DeliveryIDs)
}

func TestUnpaidTotalsExcludeSettledDeliveries(t *testing.T) {
	svc, l := newReconFixture()
	ctx := context.Background()
	admin := scope.Access{UserID: 1, Role: models.RoleAdmin}

	farmer := l.addFarmer(models.Farmer{Name: "Wanjiku", WeighStation: "Nyeri"})
	paid := l.addPayment(models.Payment{FarmerID: farmer.ID, Status: models.PaymentStatusCompleted, Date: time.Now()})
	failed := l.addPayment(models.Payment{FarmerID: farmer.ID, Status: models.PaymentStatusFailed, Date: time.Now()})

	l.addDelivery(models.Delivery{FarmerID: farmer.ID, DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 100, Date: time.Now(), PaymentID: &paid.ID})
	reclaimable := l.addDelivery(models.Delivery{FarmerID: farmer.ID, DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 40, Date: time.Now(), PaymentID: &failed.ID})
	fresh := l.addDelivery(models.Delivery{FarmerID: farmer.ID, DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 25, Date: time.Now()})

	totals, err := svc.UnpaidTotalsByType(ctx, admin, farmer.ID)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, 65.0, totals[0].TotalKgs)
	assert.Equal(t, []int{reclaimable.ID, fresh.ID}, totals[0].DeliveryIDs)
}

func TestUnpaidTotalsUnknownFarmerIsEmpty(t *testing.T) {
	svc, _ := newReconFixture()
	admin := scope.Access{UserID: 1, Role: models.RoleAdmin}

	totals, err := svc.UnpaidTotalsByType(context.Background(), admin, 404)
	require.NoError(t, err)
	assert.Empty(t, totals)

	_, err = svc.UnpaidTotalsByType(context.Background(), admin, 0)
	assert.True(t, apperrors.IsValidation(err))
}

func TestUnpaidTotalForType(t *testing.T) {
	svc, l := newReconFixture()
	ctx := context.Background()
	admin := scope.Access{UserID: 1, Role: models.RoleAdmin}

	farmer := l.addFarmer(models.Farmer{Name: "Wanjiku", WeighStation: "Nyeri"})
	l.addDelivery(models.Delivery{FarmerID: farmer.ID, DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 100, Date: time.Now()})

	total, err := svc.UnpaidTotalForType(ctx, admin, farmer.ID, models.DeliveryTypeCherry)
	require.NoError(t, err)
	assert.Equal(t, 100.0, total.TotalKgs)

	// Nothing owed for the other type; zero total, not an error
	total, err = svc.UnpaidTotalForType(ctx, admin, farmer.ID, models.DeliveryTypeParchment)
	require.NoError(t, err)
	assert.Equal(t, 0.0, total.TotalKgs)
	assert.Empty(t, total.DeliveryIDs)

	_, err = svc.UnpaidTotalForType(ctx, admin, farmer.ID, "Husks")
	assert.True(t, apperrors.IsValidation(err))
}

func TestListUnpaidScopedToRegion(t *testing.T) {
	svc, l := newReconFixture()
	ctx := context.Background()
	agent := scope.Access{UserID: 2, Role: models.RoleFieldAgent, Region: "Nyeri"}

	local := l.addFarmer(models.Farmer{Name: "Wanjiku", WeighStation: "Nyeri"})
	remote := l.addFarmer(models.Farmer{Name: "Njoroge", WeighStation: "Embu"})
	mine := l.addDelivery(models.Delivery{FarmerID: local.ID, DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 100, Date: time.Now()})
	l.addDelivery(models.Delivery{FarmerID: remote.ID, DeliveryType: models.DeliveryTypeCherry, KgsDelivered: 60, Date: time.Now()})

	unpaid, err := svc.ListUnpaid(ctx, agent, models.DeliveryFilter{})
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	assert.Equal(t, mine.ID, unpaid[0].ID)
	assert.Equal(t, "Wanjiku", unpaid[0].Farmer.Name)

	// A scoped caller cannot widen the filter to another region
	unpaid, err = svc.ListUnpaid(ctx, agent, models.DeliveryFilter{Region: "Embu"})
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	assert.Equal(t, mine.ID, unpaid[0].ID)
}
