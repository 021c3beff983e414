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

type FarmerRepository struct {
	DB *pgxpool.Pool
}

func NewFarmerRepository(db *pgxpool.Pool) *FarmerRepository {
	return &FarmerRepository{DB: db}
}

const farmerColumns = `f.id, f.name, f.phone, f.national_id, f.weigh_station, f.season,
	f.location, f.created_by_user_id, COALESCE(u.name, ''), f.created_at, f.updated_at`

func scanFarmer(row pgx.Row) (*models.Farmer, error) {
	var f models.Farmer
	err := row.Scan(&f.ID, &f.Name, &f.Phone, &f.NationalID, &f.WeighStation, &f.Season,
		&f.Location, &f.CreatedByUserID, &f.CreatedByName, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("farmer not found")
	}
	if err != nil {
		return nil, apperrors.Store(err, "failed to load farmer")
	}
	return &f, nil
}

func (r *FarmerRepository) Create(ctx context.Context, f *models.Farmer) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO farmers(name, phone, national_id, weigh_station, season, location, created_by_user_id)
		 VALUES($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		f.Name, f.Phone, f.NationalID, f.WeighStation, f.Season, f.Location, f.CreatedByUserID,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return apperrors.Conflict("a farmer with that phone or national id already exists")
		}
		return apperrors.Store(err, "failed to create farmer")
	}
	return nil
}

func (r *FarmerRepository) Get(ctx context.Context, id int) (*models.Farmer, error) {
	return scanFarmer(r.DB.QueryRow(ctx,
		`SELECT `+farmerColumns+`
		 FROM farmers f LEFT JOIN users u ON f.created_by_user_id = u.id
		 WHERE f.id=$1`, id))
}

func (r *FarmerRepository) GetByPhone(ctx context.Context, phone string) (*models.Farmer, error) {
	return scanFarmer(r.DB.QueryRow(ctx,
		`SELECT `+farmerColumns+`
		 FROM farmers f LEFT JOIN users u ON f.created_by_user_id = u.id
		 WHERE f.phone=$1`, phone))
}

// List returns farmers matching the filter, newest first
func (r *FarmerRepository) List(ctx context.Context, filter models.FarmerFilter) ([]*models.Farmer, error) {
	query := `SELECT ` + farmerColumns + `
		 FROM farmers f LEFT JOIN users u ON f.created_by_user_id = u.id`

	var conds []string
	var args []interface{}
	if filter.WeighStation != "" {
		args = append(args, filter.WeighStation)
		conds = append(conds, "f.weigh_station = $"+strconv.Itoa(len(args)))
	}
	if filter.Season != "" {
		args = append(args, filter.Season)
		conds = append(conds, "f.season = $"+strconv.Itoa(len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		conds = append(conds, "(f.name ILIKE $"+n+" OR f.phone ILIKE $"+n+" OR f.national_id ILIKE $"+n+")")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY f.created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Store(err, "failed to list farmers")
	}
	defer rows.Close()

	var farmers []*models.Farmer
	for rows.Next() {
		f, err := scanFarmer(rows)
		if err != nil {
			return nil, err
		}
		farmers = append(farmers, f)
	}
	return farmers, rows.Err()
}

// Update updates an existing farmer
func (r *FarmerRepository) Update(ctx context.Context, f *models.Farmer) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE farmers SET name=$1, phone=$2, national_id=$3, weigh_station=$4, season=$5, location=$6, updated_at=NOW()
		 WHERE id=$7`,
		f.Name, f.Phone, f.NationalID, f.WeighStation, f.Season, f.Location, f.ID)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return apperrors.Conflict("a farmer with that phone or national id already exists")
		}
		return apperrors.Store(err, "failed to update farmer")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("farmer not found")
	}
	return nil
}

// Count returns the number of farmers within the filter
func (r *FarmerRepository) Count(ctx context.Context, filter models.FarmerFilter) (int, error) {
	query := "SELECT COUNT(*) FROM farmers f"
	var args []interface{}
	if filter.WeighStation != "" {
		args = append(args, filter.WeighStation)
		query += " WHERE f.weigh_station = $1"
	}
	var count int
	if err := r.DB.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.Store(err, "failed to count farmers")
	}
	return count, nil
}
