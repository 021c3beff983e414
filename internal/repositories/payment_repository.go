package repositories

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository struct {
	DB *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

const paymentColumns = `p.id, p.farmer_id, p.delivery_type, p.kgs_delivered, p.price_per_kg,
	p.amount_paid, p.date, p.currency, p.status, COALESCE(p.void_reason, ''), p.voided_at,
	p.voided_by_user_id, p.retry_of_payment_id,
	COALESCE(ARRAY(SELECT pd.delivery_id FROM payment_deliveries pd WHERE pd.payment_id = p.id ORDER BY pd.delivery_id), '{}'),
	COALESCE(f.name, ''), p.created_by_user_id, p.created_at`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.FarmerID, &p.DeliveryType, &p.KgsDelivered, &p.PricePerKg,
		&p.AmountPaid, &p.Date, &p.Currency, &p.Status, &p.VoidReason, &p.VoidedAt,
		&p.VoidedByUserID, &p.RetryOfPaymentID, &p.DeliveryIDs, &p.FarmerName,
		&p.CreatedByUserID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("payment not found")
	}
	if err != nil {
		return nil, apperrors.Store(err, "failed to load payment")
	}
	return &p, nil
}

// CreateWithClaim atomically inserts the payment and claims its deliveries.
//
// The claim is a conditional update: each delivery row is repointed only if
// it is currently unpaid (never claimed, or claimed by a non-Completed
// payment). If expectPriorPaymentID is set (retry path) the delivery must
// still point at that exact failed payment. Row locks serialize concurrent
// claims, so of two racing creates over overlapping delivery sets exactly
// one sees all its rows update; the other gets fewer rows and the whole
// transaction rolls back with a conflict. No partial claiming survives.
func (r *PaymentRepository) CreateWithClaim(ctx context.Context, p *models.Payment, deliveryIDs []int, expectPriorPaymentID *int) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return apperrors.Store(err, "failed to begin payment transaction")
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO payments(farmer_id, delivery_type, kgs_delivered, price_per_kg, amount_paid,
			currency, status, retry_of_payment_id, created_by_user_id)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, date, created_at`,
		p.FarmerID, p.DeliveryType, p.KgsDelivered, p.PricePerKg, p.AmountPaid,
		p.Currency, p.Status, p.RetryOfPaymentID, p.CreatedByUserID,
	).Scan(&p.ID, &p.Date, &p.CreatedAt)
	if err != nil {
		return apperrors.Store(err, "failed to insert payment")
	}

	var claimed int64
	if expectPriorPaymentID != nil {
		tag, err := tx.Exec(ctx,
			`UPDATE deliveries SET payment_id=$1, updated_at=NOW()
			 WHERE id = ANY($2) AND farmer_id = $3 AND payment_id = $4`,
			p.ID, deliveryIDs, p.FarmerID, *expectPriorPaymentID)
		if err != nil {
			return apperrors.Store(err, "failed to claim deliveries")
		}
		claimed = tag.RowsAffected()
	} else {
		tag, err := tx.Exec(ctx,
			`UPDATE deliveries d SET payment_id=$1, updated_at=NOW()
			 WHERE d.id = ANY($2) AND d.farmer_id = $3
			 AND (d.payment_id IS NULL OR EXISTS (
				SELECT 1 FROM payments prior WHERE prior.id = d.payment_id AND prior.status <> 'Completed'))`,
			p.ID, deliveryIDs, p.FarmerID)
		if err != nil {
			return apperrors.Store(err, "failed to claim deliveries")
		}
		claimed = tag.RowsAffected()
	}

	if claimed != int64(len(deliveryIDs)) {
		// Some delivery was paid by a concurrent payment; abort everything.
		return apperrors.Conflict("one or more deliveries are already covered by another payment")
	}

	for _, deliveryID := range deliveryIDs {
		if _, err := tx.Exec(ctx,
			"INSERT INTO payment_deliveries(payment_id, delivery_id) VALUES($1, $2)",
			p.ID, deliveryID); err != nil {
			return apperrors.Store(err, "failed to record settled deliveries")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Store(err, "failed to commit payment")
	}
	p.DeliveryIDs = append([]int(nil), deliveryIDs...)
	return nil
}

func (r *PaymentRepository) Get(ctx context.Context, id int) (*models.Payment, error) {
	return scanPayment(r.DB.QueryRow(ctx,
		`SELECT `+paymentColumns+`
		 FROM payments p LEFT JOIN farmers f ON p.farmer_id = f.id
		 WHERE p.id=$1`, id))
}

// Void transitions a Completed payment to Failed and stamps the audit
// fields. The status predicate makes the transition race-safe: a concurrent
// void or any other state change leaves zero rows updated.
func (r *PaymentRepository) Void(ctx context.Context, id int, reason string, voidedBy int) (*models.Payment, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE payments SET status='Failed', void_reason=$1, voided_at=NOW(), voided_by_user_id=$2
		 WHERE id=$3 AND status='Completed'`,
		reason, voidedBy, id)
	if err != nil {
		return nil, apperrors.Store(err, "failed to void payment")
	}
	if tag.RowsAffected() == 0 {
		current, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.Conflict("payment is %s, only Completed payments can be voided", current.Status)
	}
	return r.Get(ctx, id)
}

func buildPaymentConds(filter models.PaymentFilter, args *[]interface{}) []string {
	var conds []string
	if filter.FarmerID > 0 {
		*args = append(*args, filter.FarmerID)
		conds = append(conds, "p.farmer_id = $"+strconv.Itoa(len(*args)))
	}
	if filter.Status != "" {
		*args = append(*args, filter.Status)
		conds = append(conds, "p.status = $"+strconv.Itoa(len(*args)))
	}
	if filter.DeliveryType != "" {
		*args = append(*args, filter.DeliveryType)
		conds = append(conds, "p.delivery_type = $"+strconv.Itoa(len(*args)))
	}
	if filter.Region != "" {
		*args = append(*args, filter.Region)
		conds = append(conds, "f.weigh_station = $"+strconv.Itoa(len(*args)))
	}
	if filter.From != nil {
		*args = append(*args, *filter.From)
		conds = append(conds, "p.date >= $"+strconv.Itoa(len(*args)))
	}
	if filter.To != nil {
		*args = append(*args, *filter.To)
		conds = append(conds, "p.date <= $"+strconv.Itoa(len(*args)))
	}
	return conds
}

// List returns payments matching the filter, newest first
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		 FROM payments p LEFT JOIN farmers f ON p.farmer_id = f.id`
	var args []interface{}
	conds := buildPaymentConds(filter, &args)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY p.date DESC, p.id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Store(err, "failed to list payments")
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
