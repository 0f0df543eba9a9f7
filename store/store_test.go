package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgboard/models"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	file, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{"file": file, "sqlite": sqlite}
}

func TestLoadAccountsEmpty(t *testing.T) {
	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			accounts, err := st.LoadAccounts()
			require.NoError(t, err)
			assert.Empty(t, accounts)
		})
	}
}

func TestSaveAndLoadAccounts(t *testing.T) {
	accounts := []models.Account{
		{Name: "root", PasswordDigest: "hash-root"},
		{Name: "alice", PasswordDigest: "hash-alice"},
		{Name: "bob", PasswordDigest: "hash-bob"},
	}

	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, st.SaveAccounts(accounts))

			got, err := st.LoadAccounts()
			require.NoError(t, err)
			assert.Equal(t, accounts, got, "enumeration order must survive a reload")

			// A second save replaces the table instead of appending to it.
			require.NoError(t, st.SaveAccounts(accounts[:1]))
			got, err = st.LoadAccounts()
			require.NoError(t, err)
			assert.Equal(t, accounts[:1], got)
		})
	}
}

func TestAppendAndReadMessages(t *testing.T) {
	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, st.EnsureMessageLog("alice"))

			lines, err := st.ReadMessages("alice")
			require.NoError(t, err)
			assert.Nil(t, lines)

			first := models.Message{Timestamp: "2024-01-01 00:00:00", Content: "hi"}
			second := models.Message{Timestamp: "2024-01-02 10:30:00", Content: "again"}
			require.NoError(t, st.AppendMessage("alice", first))
			require.NoError(t, st.AppendMessage("alice", second))

			lines, err = st.ReadMessages("alice")
			require.NoError(t, err)
			assert.Equal(t, []string{"2024-01-01 00:00:00,hi", "2024-01-02 10:30:00,again"}, lines)
		})
	}
}

func TestReadMessagesUnknownAccount(t *testing.T) {
	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			lines, err := st.ReadMessages("nobody")
			require.NoError(t, err)
			assert.Nil(t, lines)
		})
	}
}

func TestFileStoreRejectsPathNames(t *testing.T) {
	st, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "a/b", `a\b`} {
		assert.ErrorIs(t, st.EnsureMessageLog(name), ErrBadName, "name %q", name)
		assert.ErrorIs(t, st.AppendMessage(name, models.Message{}), ErrBadName, "name %q", name)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("redis", t.TempDir())
	assert.Error(t, err)
}
