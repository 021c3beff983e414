package models

import "time"

// Payment statuses
const (
	PaymentStatusPending   = "Pending"
	PaymentStatusCompleted = "Completed"
	PaymentStatusFailed    = "Failed"
)

// DefaultCurrency is stamped on payments when the request omits one.
const DefaultCurrency = "KES"

type Payment struct {
	ID               int        `json:"id"`
	FarmerID         int        `json:"farmer_id"`
	DeliveryType     string     `json:"delivery_type"`
	KgsDelivered     float64    `json:"kgs_delivered"` // snapshot total at creation
	PricePerKg       float64    `json:"price_per_kg"`
	AmountPaid       float64    `json:"amount_paid"` // always kgs_delivered * price_per_kg
	Date             time.Time  `json:"date"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"` // Pending, Completed, Failed
	VoidReason       string     `json:"void_reason,omitempty"`
	VoidedAt         *time.Time `json:"voided_at,omitempty"`
	VoidedByUserID   *int       `json:"voided_by_user_id,omitempty"`
	RetryOfPaymentID *int       `json:"retry_of_payment_id,omitempty"` // set on retry successors
	DeliveryIDs      []int      `json:"delivery_ids,omitempty"`        // settled set, from payment_deliveries
	FarmerName       string     `json:"farmer_name,omitempty"`         // Joined from farmers table
	CreatedByUserID  int        `json:"created_by_user_id"`
	CreatedAt        time.Time  `json:"created_at"`
}

// CreatePaymentRequest represents the request body for paying out deliveries
type CreatePaymentRequest struct {
	FarmerID     int     `json:"farmer_id"`
	DeliveryIDs  []int   `json:"delivery_ids"`
	DeliveryType string  `json:"delivery_type"`
	PricePerKg   float64 `json:"price_per_kg"`
	Currency     string  `json:"currency,omitempty"`
}

// VoidPaymentRequest represents the request body for voiding a payment
type VoidPaymentRequest struct {
	Reason string `json:"reason"`
}

// RetryPaymentRequest represents the request body for retrying a failed payment
type RetryPaymentRequest struct {
	Reason     string   `json:"reason"`
	PricePerKg *float64 `json:"price_per_kg,omitempty"` // nil = reuse original price
}

// UnpaidTypeTotal is the grouped unpaid total for one (farmer, type) pair
type UnpaidTypeTotal struct {
	DeliveryType string  `json:"delivery_type"`
	TotalKgs     float64 `json:"total_kgs"`
	DeliveryIDs  []int   `json:"delivery_ids"`
}

// PaymentFilter narrows payment queries. Zero values mean "no restriction".
type PaymentFilter struct {
	FarmerID     int
	Status       string
	DeliveryType string
	Region       string // farmer's weigh station, applied via join
	From         *time.Time
	To           *time.Time
	Limit        int
}
