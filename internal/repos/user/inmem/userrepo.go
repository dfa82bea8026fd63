// Package inmem provides a user repository that works from memory.
package inmem

import (
	"fmt"
	"sync"

	"github.com/quickcourt/quickcourt/internal/models"
)

// UserRepo provides a simple in-memory user storage
type UserRepo struct {
	mu    sync.RWMutex
	users map[uint]models.User
	// The maximum user ID currently in the storage
	maxUserID uint
}

// New creates a new user repository instance
func New() *UserRepo {
	return &UserRepo{
		users: make(map[uint]models.User),
	}
}

// Create creates a new user
func (r *UserRepo) Create(u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID > 0 {
		if _, ok := r.users[u.ID]; ok {
			return fmt.Errorf("Create: A user with the given ID does already exist")
		}
	} else {
		// ID is 0 - assign a new one
		u.ID = r.maxUserID + 1
	}
	if r.maxUserID < u.ID {
		r.maxUserID = u.ID
	}
	r.users[u.ID] = *u
	return nil
}

// Update updates an existing user
func (r *UserRepo) Update(u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return fmt.Errorf("Update: Cannot update non-existing user")
	}
	r.users[u.ID] = *u
	return nil
}

// Delete removes an existing user from the user storage
func (r *UserRepo) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

// GetByID returns the user with the given ID
func (r *UserRepo) GetByID(id uint) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[id]; ok {
		// Copy the user
		ret := u
		return &ret, nil
	}
	return nil, nil
}

// GetByName returns the user with the given login name, or nil if there is none
func (r *UserRepo) GetByName(name string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Name == name {
			ret := u // copy
			return &ret, nil
		}
	}
	return nil, nil
}

// GetByDisplayName returns the user whose roster display name matches, or nil
func (r *UserRepo) GetByDisplayName(name string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.DisplayName() == name {
			ret := u // copy
			return &ret, nil
		}
	}
	return nil, nil
}

// GetByCredentials returns the user which has the given username and password - this is used for login
func (r *UserRepo) GetByCredentials(username string, password string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Name == username && u.CheckPassword(password) == nil {
			ret := u // copy
			return &ret, nil
		}
	}
	return nil, nil
}
