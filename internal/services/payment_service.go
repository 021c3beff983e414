package services

import (
	"context"
	"strings"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/config"
	"coffee-backend/internal/metrics"
	"coffee-backend/internal/models"
	"coffee-backend/internal/scope"
)

// PaymentService owns the payment lifecycle. Payments are created Completed
// (the money leaves when the record is written), can be voided to Failed,
// and Failed payments can be retried with a fresh Completed successor.
// AmountPaid is always KgsDelivered * PricePerKg; no caller supplies it.
type PaymentService struct {
	Payments   PaymentStore
	Deliveries DeliveryStore
	Farmers    FarmerStore
	cfg        *config.Config
}

func NewPaymentService(payments PaymentStore, deliveries DeliveryStore, farmers FarmerStore, cfg *config.Config) *PaymentService {
	return &PaymentService{Payments: payments, Deliveries: deliveries, Farmers: farmers, cfg: cfg}
}

// configFallbackPrice returns the configured per-kg price for a delivery
// type, used when no caller-supplied or historical price is available.
func configFallbackPrice(cfg *config.Config, deliveryType string) float64 {
	if cfg == nil {
		return 0
	}
	switch deliveryType {
	case models.DeliveryTypeParchment:
		return cfg.Payments.FallbackParchmentPrice
	default:
		return cfg.Payments.FallbackCherryPrice
	}
}

func (s *PaymentService) fallbackPrice(deliveryType string) float64 {
	return configFallbackPrice(s.cfg, deliveryType)
}

func (s *PaymentService) currency(requested string) string {
	if requested != "" {
		return strings.ToUpper(requested)
	}
	if s.cfg != nil && s.cfg.Payments.Currency != "" {
		return s.cfg.Payments.Currency
	}
	return models.DefaultCurrency
}

// Create pays out a set of the farmer's unpaid deliveries. The claim is
// atomic: either every listed delivery is repointed to the new payment or
// the whole thing fails with a conflict, so two racing payouts over the
// same delivery can never both succeed.
func (s *PaymentService) Create(ctx context.Context, access scope.Access, req models.CreatePaymentRequest, createdBy int) (*models.Payment, error) {
	if req.FarmerID <= 0 {
		return nil, apperrors.Validation("farmer id is required")
	}
	if len(req.DeliveryIDs) == 0 {
		return nil, apperrors.Validation("at least one delivery id is required")
	}
	if !models.ValidDeliveryType(req.DeliveryType) {
		return nil, apperrors.Validation("unknown delivery type %q", req.DeliveryType)
	}
	price := req.PricePerKg
	if price == 0 {
		price = s.fallbackPrice(req.DeliveryType)
	}
	if price <= 0 {
		return nil, apperrors.Validation("price per kg must be positive")
	}

	farmer, err := s.Farmers.Get(ctx, req.FarmerID)
	if err != nil {
		return nil, err
	}
	if err := access.CheckWrite(farmer.WeighStation); err != nil {
		return nil, err
	}

	deliveries, err := s.Deliveries.GetByIDs(ctx, req.DeliveryIDs)
	if err != nil {
		return nil, err
	}
	if len(deliveries) != len(req.DeliveryIDs) {
		return nil, apperrors.NotFound("one or more delivery ids do not exist")
	}
	var totalKgs float64
	for _, d := range deliveries {
		if d.FarmerID != req.FarmerID {
			return nil, apperrors.Validation("delivery %d does not belong to farmer %d", d.ID, req.FarmerID)
		}
		if d.DeliveryType != req.DeliveryType {
			return nil, apperrors.Validation("delivery %d is %s, not %s", d.ID, d.DeliveryType, req.DeliveryType)
		}
		totalKgs += d.KgsDelivered
	}

	payment := &models.Payment{
		FarmerID:        req.FarmerID,
		DeliveryType:    req.DeliveryType,
		KgsDelivered:    totalKgs,
		PricePerKg:      price,
		AmountPaid:      totalKgs * price,
		Currency:        s.currency(req.Currency),
		Status:          models.PaymentStatusCompleted,
		CreatedByUserID: createdBy,
	}
	if err := s.Payments.CreateWithClaim(ctx, payment, req.DeliveryIDs, nil); err != nil {
		if apperrors.IsConflict(err) {
			metrics.PaymentConflicts.Inc()
		}
		return nil, err
	}
	payment.FarmerName = farmer.Name
	metrics.PaymentsCreated.Inc()
	metrics.PaymentAmount.Add(payment.AmountPaid)
	return payment, nil
}

// Void reverses a Completed payment. The payment flips to Failed with the
// audit fields stamped; its deliveries become unpaid again by definition,
// since payability is derived from the referenced payment's status.
func (s *PaymentService) Void(ctx context.Context, access scope.Access, id int, req models.VoidPaymentRequest) (*models.Payment, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, apperrors.Validation("a void reason is required")
	}
	payment, err := s.Payments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkFarmerScope(ctx, access, payment.FarmerID); err != nil {
		return nil, err
	}
	voided, err := s.Payments.Void(ctx, id, strings.TrimSpace(req.Reason), access.UserID)
	if err != nil {
		return nil, err
	}
	metrics.PaymentsVoided.Inc()
	return voided, nil
}

// Retry reissues a Failed payment as a new Completed one covering the same
// deliveries. The claim requires every delivery to still point at the
// failed original, so a delivery that was meanwhile paid out elsewhere
// blocks the retry with a conflict. Kilograms are recomputed from the
// current delivery rows; the price defaults to the original's.
func (s *PaymentService) Retry(ctx context.Context, access scope.Access, id int, req models.RetryPaymentRequest) (*models.Payment, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, apperrors.Validation("a retry reason is required")
	}
	original, err := s.Payments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if original.Status != models.PaymentStatusFailed {
		return nil, apperrors.Conflict("payment %d is %s, only Failed payments can be retried", id, original.Status)
	}
	if len(original.DeliveryIDs) == 0 {
		return nil, apperrors.Conflict("payment %d has no recorded deliveries to retry", id)
	}
	if err := s.checkFarmerScope(ctx, access, original.FarmerID); err != nil {
		return nil, err
	}

	price := original.PricePerKg
	if req.PricePerKg != nil {
		price = *req.PricePerKg
	}
	if price <= 0 {
		return nil, apperrors.Validation("price per kg must be positive")
	}

	deliveries, err := s.Deliveries.GetByIDs(ctx, original.DeliveryIDs)
	if err != nil {
		return nil, err
	}
	var totalKgs float64
	for _, d := range deliveries {
		totalKgs += d.KgsDelivered
	}

	retry := &models.Payment{
		FarmerID:         original.FarmerID,
		DeliveryType:     original.DeliveryType,
		KgsDelivered:     totalKgs,
		PricePerKg:       price,
		AmountPaid:       totalKgs * price,
		Currency:         original.Currency,
		Status:           models.PaymentStatusCompleted,
		RetryOfPaymentID: &original.ID,
		CreatedByUserID:  access.UserID,
	}
	if err := s.Payments.CreateWithClaim(ctx, retry, original.DeliveryIDs, &original.ID); err != nil {
		if apperrors.IsConflict(err) {
			metrics.PaymentConflicts.Inc()
		}
		return nil, err
	}
	retry.FarmerName = original.FarmerName
	metrics.PaymentsRetried.Inc()
	metrics.PaymentAmount.Add(retry.AmountPaid)
	return retry, nil
}

func (s *PaymentService) Get(ctx context.Context, access scope.Access, id int) (*models.Payment, error) {
	payment, err := s.Payments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkFarmerScope(ctx, access, payment.FarmerID); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) List(ctx context.Context, access scope.Access, filter models.PaymentFilter) ([]*models.Payment, error) {
	return s.Payments.List(ctx, access.FilterPayments(filter))
}

func (s *PaymentService) checkFarmerScope(ctx context.Context, access scope.Access, farmerID int) error {
	if access.Unscoped() {
		return nil
	}
	farmer, err := s.Farmers.Get(ctx, farmerID)
	if err != nil {
		return err
	}
	if !access.AllowsRegion(farmer.WeighStation) {
		return apperrors.AccessDenied("farmer %d is outside your assigned region", farmerID)
	}
	return nil
}
