package auth

import (
	"context"
	"testing"

	"coursewallet/internal/models"
	"coursewallet/internal/repositories/memstore"
	"coursewallet/internal/services/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCache struct{}

func (nopCache) GetBalance(ctx context.Context, ownerID uint) (*models.Balance, error) {
	return nil, nil
}
func (nopCache) CacheBalance(ctx context.Context, balance *models.Balance) error { return nil }
func (nopCache) InvalidateBalance(ctx context.Context, ownerID uint) error       { return nil }

func newTestService(t *testing.T) (Service, *memstore.Store) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	store := memstore.New()
	ledgerSvc := ledger.NewService(store.Ledger(), nopCache{}, ledger.Config{}, nil)
	return NewService(store.Users(), ledgerSvc), store
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the user with an empty wallet", func(t *testing.T) {
		svc, store := newTestService(t)

		user, err := svc.Register(ctx, "linus@school.test", "hunter22", "Linus", models.RoleStudent)
		require.NoError(t, err)
		assert.NotEqual(t, "hunter22", user.Password)
		require.NotNil(t, user.BalanceID)

		balance, err := store.Ledger().GetBalanceByOwnerID(user.ID)
		require.NoError(t, err)
		assert.True(t, balance.Amount.IsZero())
	})

	t.Run("rejects duplicate emails", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Register(ctx, "linus@school.test", "hunter22", "Linus", models.RoleStudent)
		require.NoError(t, err)
		_, err = svc.Register(ctx, "linus@school.test", "other", "Impostor", models.RoleStudent)
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Register(ctx, "x@school.test", "pw", "X", models.Role("janitor"))
		assert.ErrorIs(t, err, ErrInvalidRole)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("issues tokens for valid credentials", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Register(ctx, "linus@school.test", "hunter22", "Linus", models.RoleStudent)
		require.NoError(t, err)

		user, access, refresh, err := svc.Login(ctx, "linus@school.test", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, "linus@school.test", user.Email)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, refresh)
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Register(ctx, "linus@school.test", "hunter22", "Linus", models.RoleStudent)
		require.NoError(t, err)

		_, _, _, err = svc.Login(ctx, "linus@school.test", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("rejects an unknown email", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, _, _, err := svc.Login(ctx, "nobody@school.test", "pw")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRefreshTokens(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates a valid refresh token", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Register(ctx, "linus@school.test", "hunter22", "Linus", models.RoleStudent)
		require.NoError(t, err)
		_, _, refresh, err := svc.Login(ctx, "linus@school.test", "hunter22")
		require.NoError(t, err)

		access, newRefresh, err := svc.RefreshTokens(refresh)
		require.NoError(t, err)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, newRefresh)
	})

	t.Run("rejects a token after the version is bumped", func(t *testing.T) {
		svc, store := newTestService(t)
		user, err := svc.Register(ctx, "linus@school.test", "hunter22", "Linus", models.RoleStudent)
		require.NoError(t, err)
		_, _, refresh, err := svc.Login(ctx, "linus@school.test", "hunter22")
		require.NoError(t, err)

		user.TokenVersion++
		require.NoError(t, store.Users().Update(user))

		_, _, err = svc.RefreshTokens(refresh)
		assert.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, _, err := svc.RefreshTokens("not-a-token")
		assert.Error(t, err)
	})
}
