// Package scope implements region-based access control as a single
// composable filter instead of per-handler checks. Every ledger query and
// write in the reconciliation, payment and analytics paths goes through an
// Access value derived from the caller's JWT claims.
package scope

import (
	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/models"
)

// Access is the caller identity the core components see. Region is the
// caller's assigned weigh station; empty means unscoped (administrators).
type Access struct {
	UserID int
	Role   string
	Region string
}

// Unscoped reports whether the caller can see every region.
func (a Access) Unscoped() bool {
	return a.Region == ""
}

// FilterDeliveries narrows f to the caller's region. An already-set region
// narrower than the caller's scope is kept only if it matches; a scoped
// caller can never widen a filter past their own region.
func (a Access) FilterDeliveries(f models.DeliveryFilter) models.DeliveryFilter {
	if !a.Unscoped() {
		f.Region = a.Region
	}
	return f
}

// FilterFarmers narrows f to farmers at the caller's weigh station.
func (a Access) FilterFarmers(f models.FarmerFilter) models.FarmerFilter {
	if !a.Unscoped() {
		f.WeighStation = a.Region
	}
	return f
}

// FilterPayments narrows f to payments whose farmer belongs to the caller's
// weigh station (applied via join in the repository).
func (a Access) FilterPayments(f models.PaymentFilter) models.PaymentFilter {
	if !a.Unscoped() {
		f.Region = a.Region
	}
	return f
}

// CheckWrite rejects writes targeting a region outside the caller's scope.
// Regions are never silently reassigned; the caller gets an explicit denial.
func (a Access) CheckWrite(region string) error {
	if a.Unscoped() || region == a.Region {
		return nil
	}
	return apperrors.AccessDenied("region %q is outside your assigned region %q", region, a.Region)
}

// AllowsRegion reports whether the caller may read data for region.
func (a Access) AllowsRegion(region string) bool {
	return a.Unscoped() || region == a.Region
}
