package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"storefront-service/internal/entity"
	"storefront-service/internal/repository"
)

const minPasswordLength = 6

type JwtCustomClaims struct {
	Role entity.Role `json:"role"`
	jwt.RegisteredClaims
}

type UserService struct {
	repo      repository.UserStore
	secret    []byte
	tokenTTL  time.Duration
	hashCost  int
	issuedNow func() time.Time
}

// NewUserService creates a new instance of UserService.
func NewUserService(repo repository.UserStore, secret string, tokenTTL time.Duration) *UserService {
	return &UserService{
		repo:      repo,
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		hashCost:  bcrypt.DefaultCost,
		issuedNow: time.Now,
	}
}

func (s *UserService) Register(ctx context.Context, req entity.RegisterRequest) (*entity.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, fmt.Errorf("invalid email: %w", entity.ErrInvalidInput)
	}
	if req.Username == "" {
		return nil, fmt.Errorf("username is required: %w", entity.ErrInvalidInput)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, entity.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         entity.RoleCustomer,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, entity.ErrConflict) {
			logger.Warn().Msgf("Email or username already registered: %s", req.Email)
		} else {
			logger.Error().Err(err).Msg("Error creating user")
		}
		return nil, err
	}
	return user, nil
}

// Login checks the credentials and issues an access token whose subject is
// the user id.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return "", entity.ErrUnauthorized
		}
		logger.Error().Err(err).Msg("Error getting user by email")
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", entity.ErrUnauthorized
	}
	if !user.IsActive {
		return "", entity.ErrInactiveUser
	}
	return s.IssueToken(user)
}

func (s *UserService) IssueToken(user *entity.User) (string, error) {
	now := s.issuedNow()
	claims := &JwtCustomClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// GetUser returns an active user; tokens of deactivated accounts stop working
// at once.
func (s *UserService) GetUser(ctx context.Context, id string) (*entity.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, entity.ErrUnauthorized
		}
		logger.Error().Err(err).Msgf("Error getting user by ID %s", id)
		return nil, err
	}
	if !user.IsActive {
		return nil, entity.ErrInactiveUser
	}
	return user, nil
}
