// Package store holds the durable backends for the account table and the
// per-account message logs.
package store

import (
	"errors"
	"fmt"
	"path/filepath"

	"msgboard/models"
)

var ErrBadName = errors.New("account name not allowed")

// Store is the durable backing for accounts and message logs. ReadMessages
// returns nil when the log is empty or absent.
type Store interface {
	LoadAccounts() ([]models.Account, error)
	SaveAccounts(accounts []models.Account) error
	EnsureMessageLog(name string) error
	AppendMessage(name string, msg models.Message) error
	ReadMessages(name string) ([]string, error)
	Close() error
}

// Open creates a store for the named backend rooted at dir.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(dir)
	case "sqlite":
		return NewSQLiteStore(filepath.Join(dir, "msgboard.db"))
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
