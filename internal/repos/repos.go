// Package repos contains the repository interfaces needed in QuickCourt
// It exists to prevent circular dependencies between the service package and the repo
// implementations
package repos

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/quickcourt/quickcourt/internal/models"
)

var (
	// ErrEntityNotExisting is fired by a repository when an entity that is read, updated
	// or deleted does not exist
	ErrEntityNotExisting = fmt.Errorf("cannot update: Entity does not exist")
)

// EventRepo defines a repository that handles storing and querying events together
// with their rosters and waitlists
type EventRepo interface {
	// Create creates a new event, assigning its ID
	Create(ev *models.Event) error
	// Delete removes the given event and all of its membership records
	Delete(id string) error
	// GetByID returns the event with the given ID including its ordered roster and waitlist
	GetByID(id string) (*models.Event, error)
	// Find searches for events matching the given search string - supports pagination.
	// With upcoming set, events scheduled in the past are excluded
	Find(search string, upcoming bool, offset uint, limit uint) ([]models.Event, uint, error)
	// Mutate loads the event document inside a single transaction, applies the given
	// transition to it and persists the result. The transaction boundary makes each
	// mutation an atomic read-modify-write per event: concurrent mutations can never
	// observe or produce a roster above capacity. When apply returns an error, nothing
	// is written and the error is passed through
	Mutate(id string, apply func(ev *models.Event) error) (*models.Event, error)
}

// UserRepo defines a repository that is able to store, query and authenticate users
type UserRepo interface {
	// Create creates a new user
	Create(u *models.User) error
	// Update updates an existing user
	Update(u *models.User) error
	// Delete removes an existing user from the user storage
	Delete(id uint) error
	// GetByID returns the user with the given ID
	GetByID(id uint) (*models.User, error)
	// GetByName returns the user with the given login name, or nil if there is none
	GetByName(name string) (*models.User, error)
	// GetByDisplayName returns the user whose roster display name matches, or nil
	GetByDisplayName(name string) (*models.User, error)
	// GetByCredentials returns the user which has the given username and password - this is used for login
	GetByCredentials(username string, password string) (*models.User, error)
}

// SessionRepo stores information about active API sessions
type SessionRepo interface {
	// CreateFor creates a new session for the given user ID
	CreateFor(userID uint) (*models.Session, error)
	// GetByID returns the session associated with the given session ID and extends it's expiry if requested
	GetByID(sessionID string, extend bool) (*models.Session, error)
	// Delete removes a session from the session storage
	Delete(sessionID string) error
}

// -- Helpers for SQLX repos -------------------------------------------------------------------------------------------

// DoRollback rolls back a transaction and catches any error resulting from it while appending the original error
func DoRollback(tx *sqlx.Tx, originalError error) error {
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("doRollback: Transaction rollback failed: %v; Recent error: %v", err, originalError)
	}
	return originalError
}
