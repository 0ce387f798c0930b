package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

const tokenKeyPrefix = "auth:token:"

// Service implements registration, login and token resolution. Tokens are
// opaque UUIDs stored in Redis with a sliding TTL.
type Service struct {
	repo   Repository
	tokens *redis.Client
	ttl    time.Duration
}

// NewService constructs a Service.
func NewService(repo Repository, tokens *redis.Client, ttl time.Duration) *Service {
	return &Service{repo: repo, tokens: tokens, ttl: ttl}
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, name, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.Create(ctx, email, name, string(hash))
}

// Login verifies credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return "", nil, fmt.Errorf("%w: invalid credentials", httpx.ErrUnauthorized)
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", httpx.ErrUnauthorized)
	}

	token := uuid.NewString()
	if err := s.tokens.Set(ctx, tokenKeyPrefix+token, user.ID, s.ttl).Err(); err != nil {
		return "", nil, fmt.Errorf("store token: %w", err)
	}
	return token, user, nil
}

// Logout revokes a token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.tokens.Del(ctx, tokenKeyPrefix+token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Resolve maps a bearer token to the owning user id, refreshing the TTL.
func (s *Service) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, httpx.ErrUnauthorized
	}
	id, err := s.tokens.Get(ctx, tokenKeyPrefix+token).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, httpx.ErrUnauthorized
		}
		return 0, fmt.Errorf("resolve token: %w", err)
	}
	_ = s.tokens.Expire(ctx, tokenKeyPrefix+token, s.ttl).Err()
	return id, nil
}
