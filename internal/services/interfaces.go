package services

import (
	"context"

	"coffee-backend/internal/models"
)

// Store interfaces abstract the pgx repositories so services can be unit
// tested against in-memory implementations. The repositories package
// satisfies all of them.

type FarmerStore interface {
	Create(ctx context.Context, f *models.Farmer) error
	Get(ctx context.Context, id int) (*models.Farmer, error)
	GetByPhone(ctx context.Context, phone string) (*models.Farmer, error)
	List(ctx context.Context, filter models.FarmerFilter) ([]*models.Farmer, error)
	Update(ctx context.Context, f *models.Farmer) error
	Count(ctx context.Context, filter models.FarmerFilter) (int, error)
}

type DeliveryStore interface {
	Create(ctx context.Context, d *models.Delivery) error
	Get(ctx context.Context, id int) (*models.Delivery, error)
	GetByIDs(ctx context.Context, ids []int) ([]*models.Delivery, error)
	Update(ctx context.Context, d *models.Delivery) error
	List(ctx context.Context, filter models.DeliveryFilter) ([]*models.Delivery, error)
	ListUnpaid(ctx context.Context, filter models.DeliveryFilter) ([]*models.UnpaidDelivery, error)
	Count(ctx context.Context, filter models.DeliveryFilter) (int, error)
}

type PaymentStore interface {
	CreateWithClaim(ctx context.Context, p *models.Payment, deliveryIDs []int, expectPriorPaymentID *int) error
	Get(ctx context.Context, id int) (*models.Payment, error)
	Void(ctx context.Context, id int, reason string, voidedBy int) (*models.Payment, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error)
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, u *models.User) error
	SetActive(ctx context.Context, id int, active bool) error
	SetTOTPSecret(ctx context.Context, id int, secret string) error
	EnableTOTP(ctx context.Context, id int, backupCodes []string) error
	DisableTOTP(ctx context.Context, id int) error
	SetBackupCodes(ctx context.Context, id int, codes []string) error
}
