package services

import (
	"context"
	"strings"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/models"
	"coffee-backend/internal/scope"
	"coffee-backend/internal/timeutil"
)

type DeliveryService struct {
	Deliveries DeliveryStore
	Farmers    FarmerStore
	Payments   PaymentStore
}

func NewDeliveryService(deliveries DeliveryStore, farmers FarmerStore, payments PaymentStore) *DeliveryService {
	return &DeliveryService{Deliveries: deliveries, Farmers: farmers, Payments: payments}
}

func (s *DeliveryService) Create(ctx context.Context, access scope.Access, req models.CreateDeliveryRequest, createdBy int) (*models.Delivery, error) {
	if req.FarmerID <= 0 {
		return nil, apperrors.Validation("farmer id is required")
	}
	if !models.ValidDeliveryType(req.DeliveryType) {
		return nil, apperrors.Validation("unknown delivery type %q", req.DeliveryType)
	}
	if req.KgsDelivered <= 0 {
		return nil, apperrors.Validation("kgs delivered must be positive")
	}
	farmer, err := s.Farmers.Get(ctx, req.FarmerID)
	if err != nil {
		return nil, err
	}
	region := req.Region
	if region == "" {
		region = farmer.WeighStation
	}
	if err := access.CheckWrite(region); err != nil {
		return nil, err
	}

	date := timeutil.StartOfDay(timeutil.Now())
	if req.Date != "" {
		date, err = timeutil.ParseInEAT(timeutil.DateLayout, req.Date)
		if err != nil {
			return nil, apperrors.Validation("date must be %s", timeutil.DateLayout)
		}
	}

	delivery := &models.Delivery{
		FarmerID:        req.FarmerID,
		DeliveryType:    req.DeliveryType,
		KgsDelivered:    req.KgsDelivered,
		Date:            date,
		Region:          region,
		Driver:          strings.TrimSpace(req.Driver),
		CreatedByUserID: createdBy,
	}
	if err := s.Deliveries.Create(ctx, delivery); err != nil {
		return nil, err
	}
	return delivery, nil
}

func (s *DeliveryService) Get(ctx context.Context, access scope.Access, id int) (*models.Delivery, error) {
	delivery, err := s.Deliveries.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.AllowsRegion(delivery.Region) {
		return nil, apperrors.AccessDenied("delivery %d is outside your assigned region", id)
	}
	return delivery, nil
}

func (s *DeliveryService) List(ctx context.Context, access scope.Access, filter models.DeliveryFilter) ([]*models.Delivery, error) {
	return s.Deliveries.List(ctx, access.FilterDeliveries(filter))
}

// Update rewrites a delivery's mutable fields. Deliveries already settled by
// a Completed payment are frozen; edit history must not change what was paid.
func (s *DeliveryService) Update(ctx context.Context, access scope.Access, id int, req models.UpdateDeliveryRequest) (*models.Delivery, error) {
	delivery, err := s.Get(ctx, access, id)
	if err != nil {
		return nil, err
	}
	if delivery.PaymentID != nil {
		claim, err := s.Payments.Get(ctx, *delivery.PaymentID)
		if err != nil {
			return nil, err
		}
		// A Failed claim means the delivery is unpaid again and may be edited
		if claim.Status == models.PaymentStatusCompleted {
			return nil, apperrors.Conflict("delivery %d is settled by payment %d and cannot be edited", id, claim.ID)
		}
	}
	if !models.ValidDeliveryType(req.DeliveryType) {
		return nil, apperrors.Validation("unknown delivery type %q", req.DeliveryType)
	}
	if req.KgsDelivered <= 0 {
		return nil, apperrors.Validation("kgs delivered must be positive")
	}
	if req.Date != "" {
		date, err := timeutil.ParseInEAT(timeutil.DateLayout, req.Date)
		if err != nil {
			return nil, apperrors.Validation("date must be %s", timeutil.DateLayout)
		}
		delivery.Date = date
	}

	delivery.DeliveryType = req.DeliveryType
	delivery.KgsDelivered = req.KgsDelivered
	delivery.Driver = strings.TrimSpace(req.Driver)
	if err := s.Deliveries.Update(ctx, delivery); err != nil {
		return nil, err
	}
	return delivery, nil
}
