// Package registry is the single source of truth for accounts and online
// sessions. Every exported method is one critical section: callers never
// observe a partially applied mutation.
package registry

import (
	"log"
	"sync"

	"msgboard/auth"
	"msgboard/models"
	"msgboard/store"
)

// AdminName is the reserved administrator account. It always exists and can
// never be removed.
const AdminName = "root"

const defaultAdminPassword = "123456"

// LoginResult is the outcome of a login attempt.
type LoginResult int

const (
	LoginOK LoginResult = iota
	LoginNoAccount
	LoginWrongPassword
	LoginAlreadyOnline
)

// AddResult is the outcome of adding an account.
type AddResult int

const (
	AddOK AddResult = iota
	AddAlreadyExists
	AddPersistFailed
)

// RemoveResult is the outcome of removing an account.
type RemoveResult int

const (
	RemoveOK RemoveResult = iota
	RemoveNoAccount
	RemoveProtected
	RemoveOnline
	RemovePersistFailed
)

// Registry holds the durable account table and the transient online set.
// Accounts enumerate in insertion order; the online set in login order.
type Registry struct {
	mu       sync.Mutex
	store    store.Store
	accounts map[string]models.Account
	order    []string
	online   []string
}

// New loads the account table and bootstraps the administrator account if it
// is missing. A bootstrap persist failure is returned to the caller; the
// process cannot serve without the administrator on disk.
func New(st store.Store) (*Registry, error) {
	loaded, err := st.LoadAccounts()
	if err != nil {
		return nil, err
	}

	r := &Registry{
		store:    st,
		accounts: make(map[string]models.Account),
	}
	for _, a := range loaded {
		if _, ok := r.accounts[a.Name]; ok {
			continue
		}
		r.accounts[a.Name] = a
		r.order = append(r.order, a.Name)
	}

	if _, ok := r.accounts[AdminName]; !ok {
		hashed, err := auth.HashDigest(auth.Digest(defaultAdminPassword))
		if err != nil {
			return nil, err
		}
		r.accounts[AdminName] = models.Account{Name: AdminName, PasswordDigest: hashed}
		r.order = append(r.order, AdminName)
		if err := st.EnsureMessageLog(AdminName); err != nil {
			return nil, err
		}
		if err := r.persistLocked(); err != nil {
			return nil, err
		}
		log.Printf("Created administrator account %q with the default password", AdminName)
	}

	return r, nil
}

// HasAccount reports whether an account with this name exists.
func (r *Registry) HasAccount(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.accounts[name]
	return ok
}

// Login checks credentials and marks the account online. The existence,
// online and digest checks run under one lock so two concurrent logins for
// the same name cannot both succeed.
func (r *Registry) Login(name, digest string) LoginResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.accounts[name]
	if !ok {
		return LoginNoAccount
	}
	if r.isOnlineLocked(name) {
		return LoginAlreadyOnline
	}
	if !auth.CheckDigest(acct.PasswordDigest, digest) {
		return LoginWrongPassword
	}

	r.online = append(r.online, name)
	return LoginOK
}

// Logout removes the account from the online set. It reports whether the
// account was online; logging out an offline name is a no-op.
func (r *Registry) Logout(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, n := range r.online {
		if n == name {
			r.online = append(r.online[:i], r.online[i+1:]...)
			return true
		}
	}
	return false
}

// ListAccounts returns all account names in insertion order.
func (r *Registry) ListAccounts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// ListOnline returns the online account names in login order.
func (r *Registry) ListOnline() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.online))
	copy(names, r.online)
	return names
}

// AddAccount stores a new account and persists the full table before
// returning. On persist failure the in-memory addition is rolled back so
// memory and disk stay consistent.
func (r *Registry) AddAccount(name, digest string) AddResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[name]; ok {
		return AddAlreadyExists
	}

	hashed, err := auth.HashDigest(digest)
	if err != nil {
		log.Printf("Failed to hash digest for %q: %v", name, err)
		return AddPersistFailed
	}

	r.accounts[name] = models.Account{Name: name, PasswordDigest: hashed}
	r.order = append(r.order, name)

	if err := r.persistLocked(); err != nil {
		log.Printf("Failed to persist accounts after adding %q: %v", name, err)
		delete(r.accounts, name)
		r.order = r.order[:len(r.order)-1]
		return AddPersistFailed
	}

	if err := r.store.EnsureMessageLog(name); err != nil {
		log.Printf("Failed to create message log for %q: %v", name, err)
	}
	return AddOK
}

// RemoveAccount deletes an account. Checks run in order: protected name,
// existence, online, then persist; the first failing check short-circuits.
func (r *Registry) RemoveAccount(name string) RemoveResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == AdminName {
		return RemoveProtected
	}
	acct, ok := r.accounts[name]
	if !ok {
		return RemoveNoAccount
	}
	if r.isOnlineLocked(name) {
		return RemoveOnline
	}

	pos := -1
	for i, n := range r.order {
		if n == name {
			pos = i
			break
		}
	}
	delete(r.accounts, name)
	r.order = append(r.order[:pos], r.order[pos+1:]...)

	if err := r.persistLocked(); err != nil {
		log.Printf("Failed to persist accounts after removing %q: %v", name, err)
		r.accounts[name] = acct
		r.order = append(r.order, "")
		copy(r.order[pos+1:], r.order[pos:])
		r.order[pos] = name
		return RemovePersistFailed
	}
	return RemoveOK
}

// AppendMessage validates and appends one message to the account's log.
func (r *Registry) AppendMessage(name string, msg models.Message) bool {
	if err := msg.Validate(); err != nil {
		log.Printf("Rejected message for %q: %v", name, err)
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.AppendMessage(name, msg); err != nil {
		log.Printf("Failed to append message for %q: %v", name, err)
		return false
	}
	return true
}

// ReadAllMessages returns the account's messages in append order as
// "timestamp,content" lines, or nil when there are none.
func (r *Registry) ReadAllMessages(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines, err := r.store.ReadMessages(name)
	if err != nil {
		log.Printf("Failed to read messages for %q: %v", name, err)
		return nil
	}
	return lines
}

func (r *Registry) isOnlineLocked(name string) bool {
	for _, n := range r.online {
		if n == name {
			return true
		}
	}
	return false
}

func (r *Registry) persistLocked() error {
	accounts := make([]models.Account, 0, len(r.order))
	for _, name := range r.order {
		accounts = append(accounts, r.accounts[name])
	}
	return r.store.SaveAccounts(accounts)
}
