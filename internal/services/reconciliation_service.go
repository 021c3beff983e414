package services

import (
	"context"
	"sort"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/models"
	"coffee-backend/internal/scope"
)

// ReconciliationService answers the "who is owed what" questions. Payability
// is computed from the payment ledger on every call; nothing here writes.
type ReconciliationService struct {
	Deliveries DeliveryStore
	Farmers    FarmerStore
}

func NewReconciliationService(deliveries DeliveryStore, farmers FarmerStore) *ReconciliationService {
	return &ReconciliationService{Deliveries: deliveries, Farmers: farmers}
}

// ListUnpaid returns unpaid deliveries in the caller's scope, newest first.
func (s *ReconciliationService) ListUnpaid(ctx context.Context, access scope.Access, filter models.DeliveryFilter) ([]*models.UnpaidDelivery, error) {
	return s.Deliveries.ListUnpaid(ctx, access.FilterDeliveries(filter))
}

// UnpaidTotalsByType groups a farmer's unpaid deliveries by delivery type.
// A farmer with nothing outstanding gets an empty slice, and so does an
// unknown farmer id; absence of debt is not an error.
func (s *ReconciliationService) UnpaidTotalsByType(ctx context.Context, access scope.Access, farmerID int) ([]*models.UnpaidTypeTotal, error) {
	if farmerID <= 0 {
		return nil, apperrors.Validation("farmer id is required")
	}
	unpaid, err := s.Deliveries.ListUnpaid(ctx, access.FilterDeliveries(models.DeliveryFilter{FarmerID: farmerID}))
	if err != nil {
		return nil, err
	}

	byType := map[string]*models.UnpaidTypeTotal{}
	for _, u := range unpaid {
		t, ok := byType[u.DeliveryType]
		if !ok {
			t = &models.UnpaidTypeTotal{DeliveryType: u.DeliveryType}
			byType[u.DeliveryType] = t
		}
		t.TotalKgs += u.KgsDelivered
		t.DeliveryIDs = append(t.DeliveryIDs, u.ID)
	}

	totals := make([]*models.UnpaidTypeTotal, 0, len(byType))
	for _, t := range byType {
		sort.Ints(t.DeliveryIDs)
		totals = append(totals, t)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].DeliveryType < totals[j].DeliveryType })
	return totals, nil
}

// UnpaidTotalForType returns the outstanding kilograms and delivery ids for
// one (farmer, type) pair. Zero total with no ids means nothing is owed.
func (s *ReconciliationService) UnpaidTotalForType(ctx context.Context, access scope.Access, farmerID int, deliveryType string) (*models.UnpaidTypeTotal, error) {
	if !models.ValidDeliveryType(deliveryType) {
		return nil, apperrors.Validation("unknown delivery type %q", deliveryType)
	}
	totals, err := s.UnpaidTotalsByType(ctx, access, farmerID)
	if err != nil {
		return nil, err
	}
	for _, t := range totals {
		if t.DeliveryType == deliveryType {
			return t, nil
		}
	}
	return &models.UnpaidTypeTotal{DeliveryType: deliveryType}, nil
}
