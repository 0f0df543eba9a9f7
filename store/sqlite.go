package store

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"msgboard/models"
)

// SQLiteStore keeps accounts and message logs in a single SQLite database.
// Account enumeration order follows insertion order via the rowid.
type SQLiteStore struct {
	conn *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{conn: conn}
	if err := s.init(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			content TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_owner ON messages(owner, id)`,
	}

	for _, query := range queries {
		if _, err := s.conn.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) LoadAccounts() ([]models.Account, error) {
	rows, err := s.conn.Query("SELECT name, password FROM accounts ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.Name, &a.PasswordDigest); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// SaveAccounts rewrites the whole table inside one transaction, matching the
// full-table persistence contract of the file store.
func (s *SQLiteStore) SaveAccounts(accounts []models.Account) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM accounts"); err != nil {
		tx.Rollback()
		return err
	}
	for _, a := range accounts {
		if _, err := tx.Exec(
			"INSERT INTO accounts (name, password) VALUES (?, ?)",
			a.Name, a.PasswordDigest,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// EnsureMessageLog is a no-op: the messages table needs no per-account setup.
func (s *SQLiteStore) EnsureMessageLog(name string) error {
	return nil
}

func (s *SQLiteStore) AppendMessage(name string, msg models.Message) error {
	_, err := s.conn.Exec(
		"INSERT INTO messages (owner, timestamp, content) VALUES (?, ?, ?)",
		name, msg.Timestamp, msg.Content,
	)
	return err
}

func (s *SQLiteStore) ReadMessages(name string) ([]string, error) {
	rows, err := s.conn.Query(
		"SELECT timestamp, content FROM messages WHERE owner = ? ORDER BY id",
		name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.Timestamp, &m.Content); err != nil {
			return nil, err
		}
		lines = append(lines, m.Line())
	}
	return lines, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
