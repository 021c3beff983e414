package repositories

import (
	"context"
	"errors"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, name, email, phone, password_hash, role, assigned_region,
	COALESCE(totp_secret, ''), totp_enabled, totp_enabled_at, COALESCE(totp_backup_codes, '{}'),
	is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &user.PasswordHash,
		&user.Role, &user.AssignedRegion, &user.TOTPSecret, &user.TOTPEnabled,
		&user.TOTPEnabledAt, &user.BackupCodes, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, apperrors.Store(err, "failed to load user")
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.Role == "" {
		u.Role = models.RoleFieldAgent
	}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO users(name, email, phone, password_hash, role, assigned_region, is_active)
         VALUES($1, $2, $3, $4, $5, $6, TRUE)
         RETURNING id, is_active, created_at, updated_at`,
		u.Name, u.Email, u.Phone, u.PasswordHash, u.Role, u.AssignedRegion,
	).Scan(&u.ID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return apperrors.Store(err, "failed to create user")
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id int) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

// List returns all users
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, apperrors.Store(err, "failed to list users")
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Count returns the number of user accounts
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.DB.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, apperrors.Store(err, "failed to count users")
	}
	return count, nil
}

// Update updates an existing user. An empty PasswordHash keeps the stored one.
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	var err error
	if u.PasswordHash != "" {
		_, err = r.DB.Exec(ctx,
			`UPDATE users SET name=$1, email=$2, phone=$3, password_hash=$4, role=$5, assigned_region=$6, updated_at=NOW()
			 WHERE id=$7`,
			u.Name, u.Email, u.Phone, u.PasswordHash, u.Role, u.AssignedRegion, u.ID)
	} else {
		_, err = r.DB.Exec(ctx,
			`UPDATE users SET name=$1, email=$2, phone=$3, role=$4, assigned_region=$5, updated_at=NOW()
			 WHERE id=$6`,
			u.Name, u.Email, u.Phone, u.Role, u.AssignedRegion, u.ID)
	}
	if err != nil {
		return apperrors.Store(err, "failed to update user")
	}
	return nil
}

// SetActive toggles the suspension flag
func (r *UserRepository) SetActive(ctx context.Context, id int, active bool) error {
	tag, err := r.DB.Exec(ctx,
		"UPDATE users SET is_active=$1, updated_at=NOW() WHERE id=$2", active, id)
	if err != nil {
		return apperrors.Store(err, "failed to update user status")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user not found")
	}
	return nil
}

// SetTOTPSecret stores a pending (not yet enabled) TOTP secret
func (r *UserRepository) SetTOTPSecret(ctx context.Context, id int, secret string) error {
	_, err := r.DB.Exec(ctx,
		"UPDATE users SET totp_secret=$1, updated_at=NOW() WHERE id=$2", secret, id)
	if err != nil {
		return apperrors.Store(err, "failed to store totp secret")
	}
	return nil
}

// EnableTOTP marks 2FA enabled and stores the hashed backup codes
func (r *UserRepository) EnableTOTP(ctx context.Context, id int, backupCodes []string) error {
	_, err := r.DB.Exec(ctx,
		"UPDATE users SET totp_enabled=TRUE, totp_enabled_at=NOW(), totp_backup_codes=$1, updated_at=NOW() WHERE id=$2",
		backupCodes, id)
	if err != nil {
		return apperrors.Store(err, "failed to enable totp")
	}
	return nil
}

// DisableTOTP clears all 2FA state for the user
func (r *UserRepository) DisableTOTP(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx,
		"UPDATE users SET totp_enabled=FALSE, totp_secret=NULL, totp_enabled_at=NULL, totp_backup_codes=NULL, updated_at=NOW() WHERE id=$1",
		id)
	if err != nil {
		return apperrors.Store(err, "failed to disable totp")
	}
	return nil
}

// SetBackupCodes replaces the stored backup code hashes
func (r *UserRepository) SetBackupCodes(ctx context.Context, id int, codes []string) error {
	_, err := r.DB.Exec(ctx,
		"UPDATE users SET totp_backup_codes=$1, updated_at=NOW() WHERE id=$2", codes, id)
	if err != nil {
		return apperrors.Store(err, "failed to store backup codes")
	}
	return nil
}
