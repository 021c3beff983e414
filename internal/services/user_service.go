package services

import (
	"context"
	"strings"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/auth"
	"coffee-backend/internal/models"
)

type UserService struct {
	Users      UserStore
	JWTManager *auth.JWTManager
}

func NewUserService(users UserStore, jwtManager *auth.JWTManager) *UserService {
	return &UserService{Users: users, JWTManager: jwtManager}
}

// Signup creates a new field agent account with a hashed password
func (s *UserService) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return nil, apperrors.Validation("name, email, and password are required")
	}
	if existing, _ := s.Users.GetByEmail(ctx, req.Email); existing != nil {
		return nil, apperrors.Conflict("user with this email already exists")
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.Store(err, "failed to hash password")
	}
	user := &models.User{
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		PasswordHash: hashedPassword,
	}

	// The very first account becomes the admin; everyone after signs up
	// as a field agent and waits for an admin to assign a region.
	count, err := s.Users.Count(ctx)
	if err != nil {
		return nil, apperrors.Store(err, "counting users")
	}
	if count == 0 {
		user.Role = models.RoleAdmin
	}

	if err := s.Users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, apperrors.Store(err, "failed to issue token")
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}

// Login authenticates a user. If 2FA is enabled the caller gets a temporary
// token and must finish with the TOTP step; suspended accounts are rejected.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, *models.LoginStep1Response, error) {
	if req.Email == "" || req.Password == "" {
		return nil, nil, apperrors.Validation("email and password are required")
	}
	user, err := s.Users.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil || !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, nil, apperrors.AccessDenied("invalid email or password")
	}
	if !user.IsActive {
		return nil, nil, apperrors.AccessDenied("account is suspended")
	}

	if user.TOTPEnabled {
		tempToken, err := s.JWTManager.GenerateTempToken(user)
		if err != nil {
			return nil, nil, apperrors.Store(err, "failed to issue temp token")
		}
		return nil, &models.LoginStep1Response{
			Requires2FA: true,
			TempToken:   tempToken,
			Message:     "enter your authenticator code to finish signing in",
		}, nil
	}

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, nil, apperrors.Store(err, "failed to issue token")
	}
	return &models.AuthResponse{Token: token, User: user}, nil, nil
}

func (s *UserService) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return nil, apperrors.Validation("name, email, and password are required")
	}
	if req.Role != "" && req.Role != models.RoleAdmin && req.Role != models.RoleFieldAgent {
		return nil, apperrors.Validation("unknown role %q", req.Role)
	}
	if existing, _ := s.Users.GetByEmail(ctx, req.Email); existing != nil {
		return nil, apperrors.Conflict("user with this email already exists")
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.Store(err, "failed to hash password")
	}
	user := &models.User{
		Name:           req.Name,
		Email:          strings.ToLower(req.Email),
		Phone:          req.Phone,
		PasswordHash:   hashedPassword,
		Role:           req.Role,
		AssignedRegion: req.AssignedRegion,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id int) (*models.User, error) {
	return s.Users.Get(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.Users.List(ctx)
}

func (s *UserService) UpdateUser(ctx context.Context, id int, req *models.UpdateUserRequest) (*models.User, error) {
	user, err := s.Users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Role != "" && req.Role != models.RoleAdmin && req.Role != models.RoleFieldAgent {
		return nil, apperrors.Validation("unknown role %q", req.Role)
	}

	user.Name = req.Name
	user.Email = strings.ToLower(req.Email)
	user.Phone = req.Phone
	user.Role = req.Role
	user.AssignedRegion = req.AssignedRegion
	user.PasswordHash = ""
	if req.Password != "" {
		hashed, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, apperrors.Store(err, "failed to hash password")
		}
		user.PasswordHash = hashed
	}
	if err := s.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.Users.Get(ctx, id)
}

// SetActive suspends or reinstates an account
func (s *UserService) SetActive(ctx context.Context, id int, active bool) error {
	return s.Users.SetActive(ctx, id, active)
}
