package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"agromed-backend/internal/model"
	"agromed-backend/internal/repository"
	"agromed-backend/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// --- DTOs ---

type RegisterUserRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=admin field_officer reviewer warehouse_officer"`
	District string `json:"district"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// --- Interface ---

type UserService interface {
	Register(ctx context.Context, req RegisterUserRequest) (*model.User, error)
	Login(ctx context.Context, req LoginRequest) (*model.User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*model.User, *TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	List(ctx context.Context, page, limit int) ([]model.User, int64, error)
}

type userService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
}

func NewUserService(userRepo repository.UserRepository, jwtSecret []byte) UserService {
	return &userService{userRepo: userRepo, jwtSecret: jwtSecret}
}

func (s *userService) Register(ctx context.Context, req RegisterUserRequest) (*model.User, error) {
	if existing, _ := s.userRepo.FindByUsername(ctx, req.Username); existing != nil {
		return nil, apperrors.Validation("username %q is already taken", req.Username)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: string(hashed),
		Role:     req.Role,
		District: req.District,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*model.User, *TokenPair, error) {
	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, nil, apperrors.Authorization("invalid username or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, nil, apperrors.Authorization("invalid username or password")
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (*model.User, *TokenPair, error) {
	stored, err := s.userRepo.FindRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, nil, apperrors.Authorization("invalid refresh token")
	}
	if time.Now().After(stored.ExpiresAt) {
		_ = s.userRepo.DeleteRefreshToken(ctx, refreshToken)
		return nil, nil, apperrors.Authorization("refresh token expired")
	}

	user, err := s.userRepo.FindByID(ctx, stored.UserID)
	if err != nil {
		return nil, nil, err
	}

	// Rotate: the old token is single-use.
	if err := s.userRepo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, nil, err
	}
	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	return s.userRepo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

func (s *userService) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.userRepo.List(ctx, page, limit)
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenPair, error) {
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	refresh := hex.EncodeToString(raw)

	if err := s.userRepo.CreateRefreshToken(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
