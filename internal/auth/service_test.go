package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

type memoryRepo struct {
	nextID  int64
	byEmail map[string]*User
	byID    map[int64]*User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byEmail: make(map[string]*User), byID: make(map[int64]*User)}
}

func (r *memoryRepo) Create(ctx context.Context, email, name, passwordHash string) (*User, error) {
	if _, ok := r.byEmail[email]; ok {
		return nil, fmt.Errorf("%w: email already registered", httpx.ErrConflict)
	}
	r.nextID++
	u := &User{ID: r.nextID, Email: email, Name: name, PasswordHash: passwordHash, CreatedAt: time.Now()}
	r.byEmail[email] = u
	r.byID[u.ID] = u
	return u, nil
}

func (r *memoryRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return u, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return u, nil
}

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(newMemoryRepo(), client, time.Hour), mr
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Register(context.Background(), "owner@shop.test", "Owner", "s3cretpass")
	require.NoError(t, err)
	require.NotEqual(t, "s3cretpass", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cretpass")))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "owner@shop.test", "Owner", "s3cretpass")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "owner@shop.test", "Other", "s3cretpass")
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestLoginAndResolve(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "owner@shop.test", "Owner", "s3cretpass")
	require.NoError(t, err)

	token, loggedIn, err := svc.Login(ctx, "owner@shop.test", "s3cretpass")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, user.ID, loggedIn.ID)

	ownerID, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, user.ID, ownerID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "owner@shop.test", "Owner", "s3cretpass")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "owner@shop.test", "wrong")
	require.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestLoginUnknownEmailIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Login(context.Background(), "nobody@shop.test", "whatever")
	require.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestResolveRejectsMissingToken(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Resolve(context.Background(), "")
	require.ErrorIs(t, err, httpx.ErrUnauthorized)
	_, err = svc.Resolve(context.Background(), "not-a-real-token")
	require.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestResolveExpiredToken(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "owner@shop.test", "Owner", "s3cretpass")
	require.NoError(t, err)
	token, _, err := svc.Login(ctx, "owner@shop.test", "s3cretpass")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = svc.Resolve(ctx, token)
	require.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "owner@shop.test", "Owner", "s3cretpass")
	require.NoError(t, err)
	token, _, err := svc.Login(ctx, "owner@shop.test", "s3cretpass")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.Resolve(ctx, token)
	require.ErrorIs(t, err, httpx.ErrUnauthorized)

	// Logging out twice is harmless.
	require.NoError(t, svc.Logout(ctx, token))
}
