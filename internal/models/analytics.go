package models

import "time"

// Report result types for the analytics endpoints. These are computed, never
// stored; every field is derived from the delivery and payment ledgers.

// ReportRange optionally narrows a report to deliveries and payments dated
// within [From, To]. Nil bounds leave that side open.
type ReportRange struct {
	From *time.Time
	To   *time.Time
}

// SummaryReport holds the headline dashboard counts
type SummaryReport struct {
	TotalFarmers    int `json:"total_farmers"`
	TotalDeliveries int `json:"total_deliveries"`
	PendingPayments int `json:"pending_payments"`
}

// StatusBreakdown is one row of the per-status payment totals
type StatusBreakdown struct {
	Status      string  `json:"status"`
	Count       int     `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

// VoidedByReason groups voided payments by their void reason
type VoidedByReason struct {
	Reason      string  `json:"reason"`
	Count       int     `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

// AgingBucket is one age band of pending payments
type AgingBucket struct {
	Count       int     `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

// AgingBuckets bands pending payments by days since payment date.
// Boundaries: <=30 days, 31-60 days, >60 days.
type AgingBuckets struct {
	Days0To30  AgingBucket `json:"days_0_30"`
	Days31To60 AgingBucket `json:"days_31_60"`
	Over60Days AgingBucket `json:"over_60_days"`
}

// PaymentAnalytics is the full payment-side report
type PaymentAnalytics struct {
	StatusBreakdown []StatusBreakdown `json:"status_breakdown"`
	VoidedCount     int               `json:"voided_count"`
	VoidedAmount    float64           `json:"voided_amount"`
	VoidedByReason  []VoidedByReason  `json:"voided_by_reason"`
	SuccessRate     float64           `json:"success_rate"`     // Completed / Total * 100
	PaymentVelocity float64           `json:"payment_velocity"` // payments per day in range
	Aging           AgingBuckets      `json:"aging"`
}

// ForecastDay is one day of the cashflow forecast series
type ForecastDay struct {
	Day              int       `json:"day"` // 1-based index
	Date             time.Time `json:"date"`
	ExpectedPayout   float64   `json:"expected_payout"`
	CumulativePayout float64   `json:"cumulative_payout"`
}

// CashflowForecast projects upcoming payouts from the trailing 90 days
type CashflowForecast struct {
	HistoricalDailyAverage float64       `json:"historical_daily_average"`
	PendingObligation      float64       `json:"pending_obligation"`
	Days                   []ForecastDay `json:"days"`
}

// FarmerScorecard is the per-farmer performance view
type FarmerScorecard struct {
	FarmerID              int        `json:"farmer_id"`
	Name                  string     `json:"name"`
	WeighStation          string     `json:"weigh_station"`
	TotalDeliveries       int        `json:"total_deliveries"`
	TotalKgs              float64    `json:"total_kgs"`
	AvgKgsPerDelivery     float64    `json:"avg_kgs_per_delivery"`
	FirstDeliveryDate     *time.Time `json:"first_delivery_date,omitempty"`
	LastDeliveryDate      *time.Time `json:"last_delivery_date,omitempty"`
	TotalPaid             float64    `json:"total_paid"` // Completed payments only
	PaymentCount          int        `json:"payment_count"`
	AvgPayment            float64    `json:"avg_payment"`
	DaysSinceLastDelivery int        `json:"days_since_last_delivery"`
	ReliabilityScore      float64    `json:"reliability_score"`
	Status                string     `json:"status"` // active or inactive
	VIP                   bool       `json:"vip"`
}

// Scorecard sort keys
const (
	ScorecardSortValue       = "value"
	ScorecardSortReliability = "reliability"
	ScorecardSortVolume      = "volume"
)

// PeriodComparison compares the current period against the preceding one
type PeriodComparison struct {
	Period              string  `json:"period"` // "month" or "year"
	CurrentKgs          float64 `json:"current_kgs"`
	PreviousKgs         float64 `json:"previous_kgs"`
	KgsGrowth           float64 `json:"kgs_growth_pct"`
	CurrentDeliveries   int     `json:"current_deliveries"`
	PreviousDeliveries  int     `json:"previous_deliveries"`
	DeliveriesGrowth    float64 `json:"deliveries_growth_pct"`
	CurrentPaidAmount   float64 `json:"current_paid_amount"`
	PreviousPaidAmount  float64 `json:"previous_paid_amount"`
	PaidAmountGrowth    float64 `json:"paid_amount_growth_pct"`
	CurrentPaidCount    int     `json:"current_paid_count"`
	PreviousPaidCount   int     `json:"previous_paid_count"`
	PaidCountGrowth     float64 `json:"paid_count_growth_pct"`
}

// ComparativeReport holds month-over-month and year-over-year comparisons
type ComparativeReport struct {
	MonthOverMonth PeriodComparison `json:"month_over_month"`
	YearOverYear   PeriodComparison `json:"year_over_year"`
}

// DeliveryTypeStats is the per-type totals row
type DeliveryTypeStats struct {
	DeliveryType  string  `json:"delivery_type"`
	DeliveryCount int     `json:"delivery_count"`
	TotalKgs      float64 `json:"total_kgs"`
	AvgKgs        float64 `json:"avg_kgs"`
	AvgPricePerKg float64 `json:"avg_price_per_kg"` // from Completed payments
}

// SeasonTypeBreakdown is one (season, type) cell of the seasonal matrix
type SeasonTypeBreakdown struct {
	Season        string  `json:"season"`
	DeliveryType  string  `json:"delivery_type"`
	DeliveryCount int     `json:"delivery_count"`
	TotalKgs      float64 `json:"total_kgs"`
}

// DeliveryTypeAnalytics is the full delivery-type report
type DeliveryTypeAnalytics struct {
	Types    []DeliveryTypeStats   `json:"types"`
	BySeason []SeasonTypeBreakdown `json:"by_season"`
}

// RegionProfitability is the per-weigh-station financial view
type RegionProfitability struct {
	Region        string  `json:"region"`
	TotalPaid     float64 `json:"total_paid"`
	TotalKgs      float64 `json:"total_kgs"`
	PaymentCount  int     `json:"payment_count"`
	AvgPricePerKg float64 `json:"avg_price_per_kg"`
	FarmerCount   int     `json:"farmer_count"`
	Recent30DayPaid float64 `json:"recent_30_day_paid"`
}

// DriverThroughput is one row of the top-driver ranking
type DriverThroughput struct {
	Driver        string  `json:"driver"`
	DeliveryCount int     `json:"delivery_count"`
	TotalKgs      float64 `json:"total_kgs"`
}

// OperationalMetrics are the process-health numbers
type OperationalMetrics struct {
	AvgPaymentCycleDays float64            `json:"avg_payment_cycle_days"`
	AvgTransactionSize  float64            `json:"avg_transaction_size"`
	TopDrivers          []DriverThroughput `json:"top_drivers"`
	Deliveries30Days    int                `json:"deliveries_30_days"`
	Payments30Days      int                `json:"payments_30_days"`
}

// SeasonSummary is the per-season rollup
type SeasonSummary struct {
	Season        string  `json:"season"`
	DeliveryCount int     `json:"delivery_count"`
	TotalKgs      float64 `json:"total_kgs"`
	TotalPaid     float64 `json:"total_paid"`
}

// DashboardReport is the best-effort composite for the admin dashboard.
// Failed sub-computations leave zeroed sections and record their name in
// Degraded; the dashboard must never 500 because one report broke.
type DashboardReport struct {
	Summary     SummaryReport      `json:"summary"`
	Payments    PaymentAnalytics   `json:"payments"`
	Cashflow    CashflowForecast   `json:"cashflow"`
	Operational OperationalMetrics `json:"operational"`
	Degraded    []string           `json:"degraded,omitempty"`
}
