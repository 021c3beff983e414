package models

import "time"

// User roles
const (
	RoleAdmin      = "admin"
	RoleFieldAgent = "fieldagent"
)

type User struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	PasswordHash   string    `json:"-"` // Never expose in JSON
	Role           string    `json:"role"`            // admin or fieldagent
	AssignedRegion string    `json:"assigned_region"` // empty = unscoped (admin)
	TOTPEnabled    bool      `json:"totp_enabled"`
	TOTPSecret     string     `json:"-"`
	TOTPEnabledAt  *time.Time `json:"-"`
	BackupCodes    []string   `json:"-"` // bcrypt hashes of unused backup codes
	IsActive       bool      `json:"is_active"` // true = active, false = suspended
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SignupRequest represents the request body for signup
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	AssignedRegion string `json:"assigned_region"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Password       string `json:"password,omitempty"` // Optional
	Role           string `json:"role"`
	AssignedRegion string `json:"assigned_region"`
}
