package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/postboard/postboard/internal/shared"
)

type recordingObserver struct {
	mu         sync.Mutex
	logins     []string
	rejections []string
}

func (o *recordingObserver) ObserveLogin(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.logins = append(o.logins, outcome)
}

func (o *recordingObserver) ObserveTokenRejection(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejections = append(o.rejections, reason)
}

type failingRepository struct {
	err error
}

func (f failingRepository) FindByUsername(context.Context, string) (*Account, error) {
	return nil, f.err
}

func (f failingRepository) FindByEmail(context.Context, string) (*Account, error) {
	return nil, f.err
}

func (f failingRepository) Insert(context.Context, Account) (*Account, error) {
	return nil, f.err
}

// racingRepository reports every identity as free but rejects the insert,
// as the store does when a concurrent registration wins.
type racingRepository struct {
	*MemoryRepository
}

func (racingRepository) Insert(context.Context, Account) (*Account, error) {
	return nil, shared.ErrDuplicateIdentity
}

func newTestService(t *testing.T, repo Repository, observer Observer) *Service {
	t.Helper()
	svc, err := NewService(repo, NewHasher(bcrypt.MinCost), newTestCodec(t), observer)
	require.NoError(t, err)
	return svc
}

func aliceInput() RegisterInput {
	return RegisterInput{Username: "alice", Email: "alice@x.com", Password: "secret123"}
}

func TestRegisterCreatesAccount(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(t, repo, nil)

	account, err := svc.Register(context.Background(), aliceInput())
	require.NoError(t, err)
	assert.NotZero(t, account.ID)
	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, "alice@x.com", account.Email)
	assert.Equal(t, "alice", account.DisplayName)
	assert.Empty(t, account.Bio)
	assert.Empty(t, account.AvatarURL)
	assert.NotEqual(t, "secret123", account.PasswordHash)
	assert.True(t, svc.hasher.Verify("secret123", account.PasswordHash))

	stored, err := repo.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, account.PasswordHash, stored.PasswordHash)
}

func TestRegisterKeepsDisplayName(t *testing.T) {
	svc := newTestService(t, NewMemoryRepository(), nil)
	in := aliceInput()
	in.DisplayName = "  Alice A.  "

	account, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", account.DisplayName)
}

func TestRegisterDuplicateUsernameKeepsFirst(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(t, repo, nil)
	ctx := context.Background()

	first, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: "alice", Email: "other@x.com", Password: "different1"})
	assert.ErrorIs(t, err, shared.ErrDuplicateIdentity)

	stored, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "alice@x.com", stored.Email)
	assert.Equal(t, first.PasswordHash, stored.PasswordHash)

	_, err = repo.FindByEmail(ctx, "other@x.com")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Login(ctx, "alice", "secret123")
	assert.NoError(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t, NewMemoryRepository(), nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: "bob", Email: "alice@x.com", Password: "secret123"})
	assert.ErrorIs(t, err, shared.ErrDuplicateIdentity)
}

func TestRegisterUsernameIsCaseSensitive(t *testing.T) {
	svc := newTestService(t, NewMemoryRepository(), nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	account, err := svc.Register(ctx, RegisterInput{Username: "Alice", Email: "alice2@x.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", account.Username)
}

func TestRegisterInsertConflictMapsToDuplicate(t *testing.T) {
	svc := newTestService(t, racingRepository{NewMemoryRepository()}, nil)

	_, err := svc.Register(context.Background(), aliceInput())
	assert.ErrorIs(t, err, shared.ErrDuplicateIdentity)
}

func TestRegisterValidation(t *testing.T) {
	cases := map[string]RegisterInput{
		"short username":    {Username: "al", Email: "alice@x.com", Password: "secret123"},
		"long username":     {Username: strings.Repeat("a", 51), Email: "alice@x.com", Password: "secret123"},
		"username space":    {Username: "alice smith", Email: "alice@x.com", Password: "secret123"},
		"bad email":         {Username: "alice", Email: "not-an-email", Password: "secret123"},
		"short password":    {Username: "alice", Email: "alice@x.com", Password: "short"},
		"missing password":  {Username: "alice", Email: "alice@x.com"},
		"long display name": {Username: "alice", Email: "alice@x.com", Password: "secret123", DisplayName: strings.Repeat("d", 101)},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			repo := NewMemoryRepository()
			svc := newTestService(t, repo, nil)

			_, err := svc.Register(context.Background(), in)
			assert.ErrorIs(t, err, shared.ErrValidation)

			_, err = repo.FindByEmail(context.Background(), in.Email)
			assert.ErrorIs(t, err, shared.ErrNotFound)
		})
	}
}

func TestRegisterValidationMessageNamesField(t *testing.T) {
	svc := newTestService(t, NewMemoryRepository(), nil)

	_, err := svc.Register(context.Background(), RegisterInput{Username: "alice", Email: "alice@x.com", Password: "short"})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "password: min=8")
}

func TestRegisterRejectsDigestAsPassword(t *testing.T) {
	svc := newTestService(t, NewMemoryRepository(), nil)
	digest, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	in := aliceInput()
	in.Password = string(digest)
	_, err = svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestLoginIssuesBearerToken(t *testing.T) {
	observer := &recordingObserver{}
	svc := newTestService(t, NewMemoryRepository(), observer)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	token, err := svc.Login(ctx, "alice", "secret123")
	require.NoError(t, err)
	assert.Equal(t, TokenTypeBearer, token.TokenType)
	assert.Equal(t, now.Add(DefaultTokenLifetime), token.ExpiresAt)

	subject, err := svc.tokens.Decode(token.AccessToken, now)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
	assert.Equal(t, []string{LoginSucceeded}, observer.logins)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	observer := &recordingObserver{}
	svc := newTestService(t, NewMemoryRepository(), observer)
	ctx := context.Background()
	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	token, wrongPassword := svc.Login(ctx, "alice", "wrong-password")
	assert.Nil(t, token)
	token, unknownUser := svc.Login(ctx, "mallory", "secret123")
	assert.Nil(t, token)

	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)
	assert.ErrorIs(t, wrongPassword, shared.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, shared.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
	assert.Equal(t, []string{LoginBadPassword, LoginUnknownUser}, observer.logins)
}

func TestLoginDummyHashMatchesCost(t *testing.T) {
	svc := newTestService(t, NewMemoryRepository(), nil)

	cost, err := bcrypt.Cost([]byte(svc.dummyHash))
	require.NoError(t, err)
	assert.Equal(t, svc.hasher.Cost(), cost)
}

func TestLoginStoreFailure(t *testing.T) {
	storeErr := errors.New("connection refused")
	svc := newTestService(t, failingRepository{err: storeErr}, nil)

	_, err := svc.Login(context.Background(), "alice", "secret123")
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRegisterStoreFailure(t *testing.T) {
	storeErr := errors.New("connection refused")
	svc := newTestService(t, failingRepository{err: storeErr}, nil)

	_, err := svc.Register(context.Background(), aliceInput())
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, shared.ErrDuplicateIdentity)
}
