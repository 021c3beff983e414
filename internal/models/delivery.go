package models

import "time"

// Delivery types
const (
	DeliveryTypeCherry    = "Cherry"
	DeliveryTypeParchment = "Parchment"
)

// ValidDeliveryType reports whether t is a known delivery type.
func ValidDeliveryType(t string) bool {
	return t == DeliveryTypeCherry || t == DeliveryTypeParchment
}

type Delivery struct {
	ID              int       `json:"id"`
	FarmerID        int       `json:"farmer_id"`
	DeliveryType    string    `json:"delivery_type"` // Cherry or Parchment
	KgsDelivered    float64   `json:"kgs_delivered"`
	Date            time.Time `json:"date"`
	Region          string    `json:"region"`
	Driver          string    `json:"driver"`
	PaymentID       *int      `json:"payment_id,omitempty"` // current claim pointer, nil = never claimed
	CreatedByUserID int       `json:"created_by_user_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UnpaidDelivery is a delivery joined with its farmer summary, as returned by
// the reconciliation queries. Paid status is never stored, always recomputed.
type UnpaidDelivery struct {
	Delivery
	Farmer FarmerSummary `json:"farmer"`
}

// CreateDeliveryRequest represents the request body for recording a delivery
type CreateDeliveryRequest struct {
	FarmerID     int     `json:"farmer_id"`
	DeliveryType string  `json:"delivery_type"`
	KgsDelivered float64 `json:"kgs_delivered"`
	Date         string  `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
	Region       string  `json:"region"`
	Driver       string  `json:"driver"`
}

// UpdateDeliveryRequest represents the request body for updating a delivery
type UpdateDeliveryRequest struct {
	DeliveryType string  `json:"delivery_type"`
	KgsDelivered float64 `json:"kgs_delivered"`
	Date         string  `json:"date,omitempty"`
	Driver       string  `json:"driver"`
}

// DeliveryFilter narrows delivery queries. Zero values mean "no restriction".
type DeliveryFilter struct {
	FarmerID     int
	DeliveryType string
	Region       string
	From         *time.Time
	To           *time.Time
	Limit        int
}
