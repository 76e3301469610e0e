package store

import "github.com/pavelanni/coursework/internal/model"

// ListAccounts returns all accounts in file order.
func (s *Store) ListAccounts() []model.Account {
	s.accounts.mu.Lock()
	defer s.accounts.mu.Unlock()
	return s.loadAccounts().Users
}

// GetAccountByUsername returns the first account with the given username,
// or nil if there is none.
func (s *Store) GetAccountByUsername(username string) *model.Account {
	s.accounts.mu.Lock()
	defer s.accounts.mu.Unlock()
	for _, a := range s.loadAccounts().Users {
		if a.Username == username {
			return &a
		}
	}
	return nil
}

// CreateAccount appends a new account with id max(existing)+1, status
// active and the current creation time.
func (s *Store) CreateAccount(username, password string, role model.UserRole) (model.Account, error) {
	s.accounts.mu.Lock()
	defer s.accounts.mu.Unlock()

	doc := s.loadAccounts()
	var maxID int64
	for _, a := range doc.Users {
		if a.Username == username {
			return model.Account{}, ErrDuplicateUsername
		}
		maxID = max(maxID, a.ID)
	}

	acct := model.Account{
		ID:        maxID + 1,
		Username:  username,
		Password:  password,
		Role:      role,
		Status:    model.StatusActive,
		CreatedAt: model.Now(),
	}
	doc.Users = append(doc.Users, acct)
	if err := s.saveAccounts(doc); err != nil {
		return model.Account{}, err
	}
	s.log.Info("created account", "id", acct.ID, "username", username, "role", role)
	return acct, nil
}

// UpdateAccount applies the non-nil fields of patch to the account with
// the given id.
func (s *Store) UpdateAccount(id int64, patch model.AccountPatch) error {
	s.accounts.mu.Lock()
	defer s.accounts.mu.Unlock()

	doc := s.loadAccounts()
	for i := range doc.Users {
		if doc.Users[i].ID != id {
			continue
		}
		if patch.Password != nil {
			doc.Users[i].Password = *patch.Password
		}
		if patch.Role != nil {
			doc.Users[i].Role = *patch.Role
		}
		if patch.Status != nil {
			doc.Users[i].Status = *patch.Status
		}
		return s.saveAccounts(doc)
	}
	return ErrNotFound
}

// DeleteAccount removes the account with the given id.
func (s *Store) DeleteAccount(id int64) error {
	s.accounts.mu.Lock()
	defer s.accounts.mu.Unlock()

	doc := s.loadAccounts()
	for i, a := range doc.Users {
		if a.ID == id {
			doc.Users = append(doc.Users[:i], doc.Users[i+1:]...)
			return s.saveAccounts(doc)
		}
	}
	return ErrNotFound
}
