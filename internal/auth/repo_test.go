package auth

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postboard/postboard/internal/platform/db"
	"github.com/postboard/postboard/internal/shared"
)

func TestMemoryRepositoryUniqueness(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first, err := repo.Insert(ctx, Account{Username: "alice", Email: "alice@x.com", PasswordHash: "h"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	_, err = repo.Insert(ctx, Account{Username: "alice", Email: "other@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, shared.ErrDuplicateIdentity)
	_, err = repo.Insert(ctx, Account{Username: "bob", Email: "alice@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, shared.ErrDuplicateIdentity)

	byEmail, err := repo.FindByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, byEmail.ID)

	_, err = repo.FindByUsername(ctx, "ALICE")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	_, err := repo.Insert(ctx, Account{Username: "alice", Email: "alice@x.com", PasswordHash: "h"})
	require.NoError(t, err)

	got, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	got.PasswordHash = "tampered"

	again, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "h", again.PasswordHash)
}

func TestMemoryRepositoryConcurrentInsert(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Insert(ctx, Account{Username: "alice", Email: "alice@x.com", PasswordHash: "h"}); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, success)
}

// TestPGRepository runs against a real database when POSTBOARD_TEST_PG_DSN
// points at one.
func TestPGRepository(t *testing.T) {
	dsn := os.Getenv("POSTBOARD_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("POSTBOARD_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	require.NoError(t, db.Migrate(dsn))
	pool, err := db.New(ctx, dsn, db.PoolOptions{})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	_, err = pool.Exec(ctx, `TRUNCATE users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	repo := NewRepository(pool)
	created, err := repo.Insert(ctx, Account{Username: "alice", Email: "alice@x.com", PasswordHash: "h", DisplayName: "alice"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = repo.Insert(ctx, Account{Username: "alice", Email: "b@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, shared.ErrDuplicateIdentity)

	got, err := repo.FindByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Empty(t, got.Bio)

	_, err = repo.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
