package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinflowhq/coinflow/internal/models"
	"github.com/coinflowhq/coinflow/internal/session"
)

type fakeUserStore struct {
	mu        sync.Mutex
	byEmail   map[string]*models.User
	hashes    map[uuid.UUID]string
	updateErr error
	updates   int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail: make(map[string]*models.User),
		hashes:  make(map[uuid.UUID]string),
	}
}

func (f *fakeUserStore) addUser(email, hash string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := models.NewUser("tester", email, hash)
	f.byEmail[email] = u
	f.hashes[u.ID] = hash
	return u
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byEmail[email], nil
}

func (f *fakeUserStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.hashes[id] = hash
	f.updates++
	return nil
}

func (f *fakeUserStore) hashFor(id uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hashes[id]
}

func (f *fakeUserStore) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates
}

type recordMailer struct {
	mu    sync.Mutex
	links []string
}

func (m *recordMailer) SendPasswordReset(_, resetLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, resetLink)
	return nil
}

func (m *recordMailer) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.links...)
}

func newTestService(store *fakeUserStore) (*Service, *session.Registry, *recordMailer) {
	registry := session.NewRegistry()
	mailer := &recordMailer{}
	svc := NewService(store, registry, mailer, "http://localhost:8080", DefaultResetTTL)
	return svc, registry, mailer
}

// waitForLink blocks until the fire-and-forget dispatch lands
func waitForLink(t *testing.T, mailer *recordMailer, n int) string {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(mailer.sent()) >= n
	}, 2*time.Second, 5*time.Millisecond, "reset mail was never dispatched")
	return mailer.sent()[n-1]
}

func codeFromLink(t *testing.T, link string) string {
	t.Helper()
	_, code, found := strings.Cut(link, "?code=")
	require.True(t, found, "link %q has no code parameter", link)
	return code
}

func TestLogin_Success(t *testing.T) {
	store := newFakeUserStore()
	user := store.addUser("amy@example.com", "hash-1")
	svc, registry, _ := newTestService(store)

	result, err := svc.Login(context.Background(), LoginInput{Email: "amy@example.com", PasswordHash: "hash-1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.UserID)
	require.NotEmpty(t, result.Token)

	s, ok := registry.GetSession(result.Token)
	require.True(t, ok, "token must be registered")
	assert.Equal(t, user.ID, s.UserID)
	assert.False(t, s.IssuedAt.IsZero())
}

func TestLogin_DistinctTokens(t *testing.T) {
	store := newFakeUserStore()
	store.addUser("amy@example.com", "hash-1")
	svc, _, _ := newTestService(store)

	first, err := svc.Login(context.Background(), LoginInput{Email: "amy@example.com", PasswordHash: "hash-1"})
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), LoginInput{Email: "amy@example.com", PasswordHash: "hash-1"})
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
}

func TestLogin_Failures(t *testing.T) {
	store := newFakeUserStore()
	store.addUser("amy@example.com", "hash-1")
	svc, registry, _ := newTestService(store)

	tests := []struct {
		name  string
		email string
		hash  string
	}{
		{"unknown email", "nobody@example.com", "hash-1"},
		{"wrong hash", "amy@example.com", "hash-2"},
		{"empty hash", "amy@example.com", ""},
	}

	for _, tt := range tests {
		_, err := svc.Login(context.Background(), LoginInput{Email: tt.email, PasswordHash: tt.hash})
		assert.ErrorIs(t, err, ErrInvalidCredentials, tt.name)
	}

	sessions, tickets := registry.Len()
	assert.Zero(t, sessions, "failed logins must not mutate the registry")
	assert.Zero(t, tickets)
}

func TestRequestReset_UnknownEmail(t *testing.T) {
	store := newFakeUserStore()
	svc, registry, mailer := newTestService(store)

	err := svc.RequestReset(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, tickets := registry.Len()
	assert.Zero(t, tickets)
	assert.Empty(t, mailer.sent())
}

func TestRequestReset_ThenResetPassword(t *testing.T) {
	store := newFakeUserStore()
	user := store.addUser("amy@example.com", "old-hash")
	svc, _, mailer := newTestService(store)

	require.NoError(t, svc.RequestReset(context.Background(), "amy@example.com"))
	link := waitForLink(t, mailer, 1)
	assert.True(t, strings.HasPrefix(link, "http://localhost:8080/update-password.html?code="))
	code := codeFromLink(t, link)

	require.NoError(t, svc.ResetPassword(context.Background(), code, "new-hash"))
	assert.Equal(t, "new-hash", store.hashFor(user.ID))

	// Single use: redeeming the same code again must fail.
	err := svc.ResetPassword(context.Background(), code, "another-hash")
	assert.ErrorIs(t, err, ErrInvalidResetCode)
	assert.Equal(t, "new-hash", store.hashFor(user.ID))
}

func TestResetPassword_UnknownCode(t *testing.T) {
	store := newFakeUserStore()
	svc, _, _ := newTestService(store)

	err := svc.ResetPassword(context.Background(), "no-such-code", "new-hash")
	assert.ErrorIs(t, err, ErrInvalidResetCode)
}

func TestResetPassword_Expired(t *testing.T) {
	store := newFakeUserStore()
	user := store.addUser("amy@example.com", "old-hash")
	svc, registry, _ := newTestService(store)

	registry.PutTicket("stale-code", models.ResetTicket{
		UserID:    user.ID,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	})

	err := svc.ResetPassword(context.Background(), "stale-code", "new-hash")
	assert.ErrorIs(t, err, ErrInvalidResetCode)
	assert.Equal(t, "old-hash", store.hashFor(user.ID))

	// The failed attempt removes the expired ticket.
	_, ok := registry.GetTicket("stale-code")
	assert.False(t, ok)
}

func TestResetPassword_StorageFailureKeepsCodeUsable(t *testing.T) {
	store := newFakeUserStore()
	user := store.addUser("amy@example.com", "old-hash")
	svc, registry, _ := newTestService(store)

	registry.PutTicket("code-1", models.ResetTicket{
		UserID:    user.ID,
		ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
	})

	store.updateErr = errors.New("connection reset")
	err := svc.ResetPassword(context.Background(), "code-1", "new-hash")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidResetCode, "a storage failure is not an invalid code")

	// The same code must work once storage recovers.
	store.updateErr = nil
	require.NoError(t, svc.ResetPassword(context.Background(), "code-1", "new-hash"))
	assert.Equal(t, "new-hash", store.hashFor(user.ID))
}

func TestResetPassword_ConcurrentSingleWinner(t *testing.T) {
	store := newFakeUserStore()
	user := store.addUser("amy@example.com", "old-hash")
	svc, registry, _ := newTestService(store)

	registry.PutTicket("race-code", models.ResetTicket{
		UserID:    user.ID,
		ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
	})

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, invalid := 0, 0
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := svc.ResetPassword(context.Background(), "race-code", "new-hash")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrInvalidResetCode):
				invalid++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one concurrent reset may succeed")
	assert.Equal(t, workers-1, invalid)
	assert.Equal(t, 1, store.updateCount())
}

func TestRequestReset_SecondTicketIsIndependent(t *testing.T) {
	store := newFakeUserStore()
	user := store.addUser("amy@example.com", "old-hash")
	svc, _, mailer := newTestService(store)

	require.NoError(t, svc.RequestReset(context.Background(), "amy@example.com"))
	require.NoError(t, svc.RequestReset(context.Background(), "amy@example.com"))

	waitForLink(t, mailer, 2)
	links := mailer.sent()
	first := codeFromLink(t, links[0])
	second := codeFromLink(t, links[1])
	require.NotEqual(t, first, second)

	// Issuing a second code does not invalidate the first; each is
	// single-use in its own right.
	require.NoError(t, svc.ResetPassword(context.Background(), first, "hash-a"))
	require.NoError(t, svc.ResetPassword(context.Background(), second, "hash-b"))
	assert.Equal(t, "hash-b", store.hashFor(user.ID))
}
