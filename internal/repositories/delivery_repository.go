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

type DeliveryRepository struct {
	DB *pgxpool.Pool
}

func NewDeliveryRepository(db *pgxpool.Pool) *DeliveryRepository {
	return &DeliveryRepository{DB: db}
}

const deliveryColumns = `d.id, d.farmer_id, d.delivery_type, d.kgs_delivered, d.date,
	d.region, d.driver, d.payment_id, d.created_by_user_id, d.created_at, d.updated_at`

// unpaidCond is the single source of truth for payability: a delivery is
// unpaid iff it has never been claimed or its claiming payment is not
// Completed. There is no stored "paid" flag to drift.
const unpaidCond = `(d.payment_id IS NULL OR p.status <> 'Completed')`

func scanDelivery(row pgx.Row) (*models.Delivery, error) {
	var d models.Delivery
	err := row.Scan(&d.ID, &d.FarmerID, &d.DeliveryType, &d.KgsDelivered, &d.Date,
		&d.Region, &d.Driver, &d.PaymentID, &d.CreatedByUserID, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("delivery not found")
	}
	if err != nil {
		return nil, apperrors.Store(err, "failed to load delivery")
	}
	return &d, nil
}

func (r *DeliveryRepository) Create(ctx context.Context, d *models.Delivery) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO deliveries(farmer_id, delivery_type, kgs_delivered, date, region, driver, created_by_user_id)
		 VALUES($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		d.FarmerID, d.DeliveryType, d.KgsDelivered, d.Date, d.Region, d.Driver, d.CreatedByUserID,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return apperrors.Store(err, "failed to create delivery")
	}
	return nil
}

func (r *DeliveryRepository) Get(ctx context.Context, id int) (*models.Delivery, error) {
	return scanDelivery(r.DB.QueryRow(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries d WHERE d.id=$1`, id))
}

// Update rewrites the mutable delivery fields. The payment_id claim pointer
// is only ever moved by the payment claim transaction, never here.
func (r *DeliveryRepository) Update(ctx context.Context, d *models.Delivery) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE deliveries SET delivery_type=$1, kgs_delivered=$2, date=$3, driver=$4, updated_at=NOW()
		 WHERE id=$5`,
		d.DeliveryType, d.KgsDelivered, d.Date, d.Driver, d.ID)
	if err != nil {
		return apperrors.Store(err, "failed to update delivery")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("delivery not found")
	}
	return nil
}

func buildDeliveryConds(filter models.DeliveryFilter, args *[]interface{}) []string {
	var conds []string
	if filter.FarmerID > 0 {
		*args = append(*args, filter.FarmerID)
		conds = append(conds, "d.farmer_id = $"+strconv.Itoa(len(*args)))
	}
	if filter.DeliveryType != "" {
		*args = append(*args, filter.DeliveryType)
		conds = append(conds, "d.delivery_type = $"+strconv.Itoa(len(*args)))
	}
	if filter.Region != "" {
		*args = append(*args, filter.Region)
		conds = append(conds, "d.region = $"+strconv.Itoa(len(*args)))
	}
	if filter.From != nil {
		*args = append(*args, *filter.From)
		conds = append(conds, "d.date >= $"+strconv.Itoa(len(*args)))
	}
	if filter.To != nil {
		*args = append(*args, *filter.To)
		conds = append(conds, "d.date <= $"+strconv.Itoa(len(*args)))
	}
	return conds
}

// List returns deliveries matching the filter, newest first with id as the
// stable tiebreak for same-date rows.
func (r *DeliveryRepository) List(ctx context.Context, filter models.DeliveryFilter) ([]*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries d`
	var args []interface{}
	conds := buildDeliveryConds(filter, &args)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY d.date DESC, d.id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Store(err, "failed to list deliveries")
	}
	defer rows.Close()

	var deliveries []*models.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// ListUnpaid returns unpaid deliveries matching the filter, joined with the
// farmer summary, newest first (id descending as the stable tiebreak).
func (r *DeliveryRepository) ListUnpaid(ctx context.Context, filter models.DeliveryFilter) ([]*models.UnpaidDelivery, error) {
	query := `SELECT ` + deliveryColumns + `, f.id, f.name, f.phone, f.weigh_station
		 FROM deliveries d
		 JOIN farmers f ON d.farmer_id = f.id
		 LEFT JOIN payments p ON d.payment_id = p.id
		 WHERE ` + unpaidCond
	var args []interface{}
	conds := buildDeliveryConds(filter, &args)
	if len(conds) > 0 {
		query += " AND " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY d.date DESC, d.id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Store(err, "failed to list unpaid deliveries")
	}
	defer rows.Close()

	var unpaid []*models.UnpaidDelivery
	for rows.Next() {
		var u models.UnpaidDelivery
		err := rows.Scan(&u.ID, &u.FarmerID, &u.DeliveryType, &u.KgsDelivered, &u.Date,
			&u.Region, &u.Driver, &u.PaymentID, &u.CreatedByUserID, &u.CreatedAt, &u.UpdatedAt,
			&u.Farmer.ID, &u.Farmer.Name, &u.Farmer.Phone, &u.Farmer.WeighStation)
		if err != nil {
			return nil, apperrors.Store(err, "failed to scan unpaid delivery")
		}
		unpaid = append(unpaid, &u)
	}
	return unpaid, rows.Err()
}

// GetByIDs loads the given deliveries; missing ids are simply absent from the
// result, callers decide whether that is an error.
func (r *DeliveryRepository) GetByIDs(ctx context.Context, ids []int) ([]*models.Delivery, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries d WHERE d.id = ANY($1) ORDER BY d.id`, ids)
	if err != nil {
		return nil, apperrors.Store(err, "failed to load deliveries")
	}
	defer rows.Close()

	var deliveries []*models.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// Count returns the number of deliveries within the filter
func (r *DeliveryRepository) Count(ctx context.Context, filter models.DeliveryFilter) (int, error) {
	query := "SELECT COUNT(*) FROM deliveries d"
	var args []interface{}
	conds := buildDeliveryConds(filter, &args)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	var count int
	if err := r.DB.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.Store(err, "failed to count deliveries")
	}
	return count, nil
}
