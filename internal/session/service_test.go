package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *Store) {
	t.Helper()
	store := NewStore(NewMemoryBackend(), zerolog.Nop())
	return NewService(store, zerolog.Nop()), store
}

func TestService_LoginPersistsSession(t *testing.T) {
	svc, store := newTestService(t)
	assert.False(t, svc.IsAuthenticated())

	user := UserProfile{ID: 1, Name: "Ada", Email: "ada@example.com", Role: RoleAdmin}
	require.NoError(t, svc.Login(user, "T1", "R1"))

	assert.True(t, svc.IsAuthenticated())
	assert.Equal(t, "T1", svc.AccessToken())
	assert.Equal(t, "R1", svc.RefreshToken())
	assert.Equal(t, RoleAdmin, store.Load().User.Role)
}

func TestService_LoginRejectsMissingTokens(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Login(UserProfile{ID: 1, Role: RoleDriver}, "T1", "")
	require.ErrorIs(t, err, ErrEmptyToken)
	assert.False(t, svc.IsAuthenticated())
}

func TestService_LogoutClearsStorage(t *testing.T) {
	svc, store := newTestService(t)
	require.NoError(t, svc.Login(UserProfile{ID: 2, Role: RolePassenger}, "T1", "R1"))

	require.NoError(t, svc.Logout())

	assert.False(t, svc.IsAuthenticated())
	assert.Nil(t, svc.User())
	assert.Equal(t, Session{}, store.Load())
}

// stuckBackend holds a record it refuses to delete
type stuckBackend struct {
	*MemoryBackend
}

func (stuckBackend) Delete() error {
	return errors.New("keychain locked")
}

func TestService_LogoutKeepsSessionWhenClearFails(t *testing.T) {
	store := NewStore(stuckBackend{NewMemoryBackend()}, zerolog.Nop())
	svc := NewService(store, zerolog.Nop())
	require.NoError(t, svc.Login(UserProfile{ID: 3, Role: RoleDriver}, "T1", "R1"))

	err := svc.Logout()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keychain locked")

	// Memory still mirrors storage
	assert.True(t, svc.IsAuthenticated())
	assert.Equal(t, store.Load(), svc.Snapshot())
}

func TestService_RestoresFromStore(t *testing.T) {
	store := NewStore(NewMemoryBackend(), zerolog.Nop())
	require.NoError(t, store.Save(testSession()))

	svc := NewService(store, zerolog.Nop())
	assert.True(t, svc.IsAuthenticated())
	assert.Equal(t, "Ada Admin", svc.User().Name)
}

func TestService_UpdateTokens(t *testing.T) {
	t.Run("keeps refresh token when not rotated", func(t *testing.T) {
		svc, store := newTestService(t)
		require.NoError(t, svc.Login(UserProfile{ID: 1, Role: RoleAdmin}, "T1", "R1"))

		require.NoError(t, svc.UpdateTokens("T2", ""))

		assert.Equal(t, "T2", svc.AccessToken())
		assert.Equal(t, "R1", svc.RefreshToken())
		assert.Equal(t, "T2", store.Load().AccessToken)
	})

	t.Run("replaces both when rotated", func(t *testing.T) {
		svc, store := newTestService(t)
		require.NoError(t, svc.Login(UserProfile{ID: 1, Role: RoleAdmin}, "T1", "R1"))

		require.NoError(t, svc.UpdateTokens("T2", "R2"))

		loaded := store.Load()
		assert.Equal(t, "T2", loaded.AccessToken)
		assert.Equal(t, "R2", loaded.RefreshToken)
		assert.Equal(t, int64(1), loaded.User.ID)
	})

	t.Run("fails after logout", func(t *testing.T) {
		svc, store := newTestService(t)
		require.NoError(t, svc.Login(UserProfile{ID: 1, Role: RoleAdmin}, "T1", "R1"))
		require.NoError(t, svc.Logout())

		err := svc.UpdateTokens("T2", "")
		require.ErrorIs(t, err, ErrNotAuthenticated)
		assert.False(t, store.Load().IsAuthenticated())
	})
}

func TestService_SnapshotIsACopy(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Login(UserProfile{ID: 1, Name: "Ada", Role: RoleAdmin}, "T1", "R1"))

	snap := svc.Snapshot()
	snap.User.Name = "Mallory"

	assert.Equal(t, "Ada", svc.User().Name)
}

func TestService_AccessTokenExpiry(t *testing.T) {
	svc, _ := newTestService(t)

	_, ok := svc.AccessTokenExpiry()
	assert.False(t, ok)

	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	require.NoError(t, svc.Login(UserProfile{ID: 1, Role: RoleAdmin}, token, "R1"))

	got, ok := svc.AccessTokenExpiry()
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	// opaque tokens have no expiry
	require.NoError(t, svc.UpdateTokens("opaque", ""))
	_, ok = svc.AccessTokenExpiry()
	assert.False(t, ok)
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		raw   string
		want  Role
		known bool
	}{
		{raw: "ADMIN", want: RoleAdmin, known: true},
		{raw: "driver", want: RoleDriver, known: true},
		{raw: " Passenger ", want: RolePassenger, known: true},
		{raw: "UNKNOWN", want: Role("UNKNOWN"), known: false},
		{raw: "", want: Role(""), known: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseRole(tt.raw)
			assert.Equal(t, tt.known, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
