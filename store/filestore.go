package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"msgboard/models"
)

const (
	accountsFile = "users.json"
	messagesDir  = "messages"
	logSuffix    = ".txt"
)

// FileStore keeps the account table as one JSON file and each account's
// messages as an append-only line file.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, messagesDir), 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) accountsPath() string {
	return filepath.Join(s.dir, accountsFile)
}

func (s *FileStore) logPath(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\") {
		return "", ErrBadName
	}
	return filepath.Join(s.dir, messagesDir, name+logSuffix), nil
}

func (s *FileStore) LoadAccounts() ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.accountsPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var accounts []models.Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *FileStore) SaveAccounts(accounts []models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, accountsFile+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.accountsPath())
}

func (s *FileStore) EnsureMessageLog(name string) error {
	path, err := s.logPath(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func (s *FileStore) AppendMessage(name string, msg models.Message) error {
	path, err := s.logPath(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(msg.Line() + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *FileStore) ReadMessages(name string) ([]string, error) {
	path, err := s.logPath(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSuffix(line, "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (s *FileStore) Close() error {
	return nil
}
