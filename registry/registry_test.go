package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgboard/auth"
	"msgboard/models"
	"msgboard/store"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	reg, err := New(st)
	require.NoError(t, err)
	return reg
}

func TestBootstrapAdmin(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	reg, err := New(st)
	require.NoError(t, err)

	assert.True(t, reg.HasAccount(AdminName))
	assert.Equal(t, []string{AdminName}, reg.ListAccounts())
	assert.Equal(t, LoginOK, reg.Login(AdminName, auth.Digest("123456")))

	// The admin's empty message log exists from the start.
	lines, err := st.ReadMessages(AdminName)
	require.NoError(t, err)
	assert.Nil(t, lines)

	// A second startup over the same data keeps the stored admin.
	reg2, err := New(st)
	require.NoError(t, err)
	assert.Equal(t, []string{AdminName}, reg2.ListAccounts())
}

func TestAddAccount(t *testing.T) {
	reg := newTestRegistry(t)

	assert.Equal(t, AddOK, reg.AddAccount("alice", auth.Digest("pw")))
	assert.True(t, reg.HasAccount("alice"))
	assert.Equal(t, AddAlreadyExists, reg.AddAccount("alice", auth.Digest("pw")))

	assert.Equal(t, []string{AdminName, "alice"}, reg.ListAccounts())
}

func TestLoginLifecycle(t *testing.T) {
	reg := newTestRegistry(t)
	digest := auth.Digest("pw")
	require.Equal(t, AddOK, reg.AddAccount("alice", digest))

	assert.Equal(t, LoginNoAccount, reg.Login("nobody", digest))
	assert.Equal(t, LoginWrongPassword, reg.Login("alice", auth.Digest("wrong")))
	assert.Equal(t, LoginOK, reg.Login("alice", digest))
	assert.Equal(t, LoginAlreadyOnline, reg.Login("alice", digest))
	assert.Equal(t, []string{"alice"}, reg.ListOnline())

	assert.True(t, reg.Logout("alice"))
	assert.False(t, reg.Logout("alice"), "second logout is a no-op")
	assert.Empty(t, reg.ListOnline())

	assert.Equal(t, LoginOK, reg.Login("alice", digest))
}

func TestRemoveAccount(t *testing.T) {
	reg := newTestRegistry(t)
	digest := auth.Digest("pw")
	require.Equal(t, AddOK, reg.AddAccount("alice", digest))

	assert.Equal(t, RemoveProtected, reg.RemoveAccount(AdminName))
	assert.Equal(t, RemoveNoAccount, reg.RemoveAccount("nobody"))

	require.Equal(t, LoginOK, reg.Login("alice", digest))
	assert.Equal(t, RemoveOnline, reg.RemoveAccount("alice"))

	reg.Logout("alice")
	assert.Equal(t, RemoveOK, reg.RemoveAccount("alice"))
	assert.False(t, reg.HasAccount("alice"))
}

func TestRemoveAdminWhileOnline(t *testing.T) {
	reg := newTestRegistry(t)
	require.Equal(t, LoginOK, reg.Login(AdminName, auth.Digest("123456")))

	// Protected-name guard fires before the online guard.
	assert.Equal(t, RemoveProtected, reg.RemoveAccount(AdminName))
}

type flakyStore struct {
	store.Store
	failSaves bool
}

func (f *flakyStore) SaveAccounts(accounts []models.Account) error {
	if f.failSaves {
		return errors.New("disk full")
	}
	return f.Store.SaveAccounts(accounts)
}

func TestPersistFailureRollsBack(t *testing.T) {
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	flaky := &flakyStore{Store: fs}

	reg, err := New(flaky)
	require.NoError(t, err)
	require.Equal(t, AddOK, reg.AddAccount("keep", auth.Digest("pw")))

	flaky.failSaves = true

	assert.Equal(t, AddPersistFailed, reg.AddAccount("alice", auth.Digest("pw")))
	assert.False(t, reg.HasAccount("alice"))
	assert.Equal(t, []string{AdminName, "keep"}, reg.ListAccounts())

	assert.Equal(t, RemovePersistFailed, reg.RemoveAccount("keep"))
	assert.True(t, reg.HasAccount("keep"))
	assert.Equal(t, []string{AdminName, "keep"}, reg.ListAccounts())

	flaky.failSaves = false
	assert.Equal(t, AddOK, reg.AddAccount("alice", auth.Digest("pw")))
	assert.Equal(t, RemoveOK, reg.RemoveAccount("keep"))
}

func TestMessages(t *testing.T) {
	reg := newTestRegistry(t)
	require.Equal(t, AddOK, reg.AddAccount("alice", auth.Digest("pw")))

	assert.Nil(t, reg.ReadAllMessages("alice"))

	msg := models.Message{Timestamp: "2024-01-01 00:00:00", Content: "hi"}
	assert.True(t, reg.AppendMessage("alice", msg))
	assert.Equal(t, []string{"2024-01-01 00:00:00,hi"}, reg.ReadAllMessages("alice"))

	bad := models.Message{Timestamp: "2024-01-01 00:00:01", Content: "two\nlines"}
	assert.False(t, reg.AppendMessage("alice", bad))
	assert.Equal(t, []string{"2024-01-01 00:00:00,hi"}, reg.ReadAllMessages("alice"))
}

func TestConcurrentLoginSingleWinner(t *testing.T) {
	reg := newTestRegistry(t)
	digest := auth.Digest("pw")
	require.Equal(t, AddOK, reg.AddAccount("alice", digest))

	const attempts = 16
	results := make([]LoginResult, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = reg.Login("alice", digest)
		}(i)
	}
	wg.Wait()

	var ok, alreadyOnline int
	for _, res := range results {
		switch res {
		case LoginOK:
			ok++
		case LoginAlreadyOnline:
			alreadyOnline++
		default:
			t.Fatalf("unexpected login result %v", res)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, alreadyOnline)
	assert.Equal(t, []string{"alice"}, reg.ListOnline())
}
