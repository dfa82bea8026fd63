// Package inmem provides a session repository that holds the session data in-memory
package inmem

import (
	"math/rand"
	"time"

	"github.com/quickcourt/quickcourt/internal/models"
	"github.com/quickcourt/quickcourt/internal/repos"
)

const (
	// How long does a session last after the last update?
	expireMinutes = 60
	tokenLength   = 64
)

const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var randSrc = rand.NewSource(time.Now().UnixNano())

// RandomString creates a random string with the given length
func RandomString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[randSrc.Int63()%int64(len(letterBytes))]
	}
	return string(b)
}

// SessionRepo is a session repository that stores the session data in-memory. All
// access to the session map is funneled through a single control goroutine
type SessionRepo struct {
	ops chan func(sessions map[string]*models.Session)
}

// New creates a new session repository instance
func New() *SessionRepo {
	r := &SessionRepo{
		ops: make(chan func(map[string]*models.Session)),
	}
	go r.control()
	return r
}

// control owns the session map. It applies incoming operations and purges expired
// sessions about once a minute
func (r *SessionRepo) control() {
	sessions := map[string]*models.Session{}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case op := <-r.ops:
			op(sessions)
		case <-ticker.C:
			for key, sess := range sessions {
				if sess.Expired() {
					delete(sessions, key)
				}
			}
		}
	}
}

// do runs the given operation inside the control goroutine and waits for it to finish
func (r *SessionRepo) do(op func(sessions map[string]*models.Session)) {
	done := make(chan struct{})
	r.ops <- func(sessions map[string]*models.Session) {
		op(sessions)
		close(done)
	}
	<-done
}

// CreateFor creates a new session for the given user ID
func (r *SessionRepo) CreateFor(userID uint) (*models.Session, error) {
	var ret models.Session
	r.do(func(sessions map[string]*models.Session) {
		sess := models.Session{
			ID:        RandomString(tokenLength),
			UserID:    userID,
			ExpiresAt: time.Now().Add(time.Minute * expireMinutes),
		}
		sessions[sess.ID] = &sess
		ret = sess
	})
	return &ret, nil
}

// GetByID returns the session associated with the given session ID and extends it's expiry if requested
func (r *SessionRepo) GetByID(sessionID string, extend bool) (*models.Session, error) {
	var ret *models.Session
	var err error
	r.do(func(sessions map[string]*models.Session) {
		sess, ok := sessions[sessionID]
		if !ok {
			err = repos.ErrEntityNotExisting
			return
		}
		if sess.Expired() {
			delete(sessions, sessionID)
			err = repos.ErrEntityNotExisting
			return
		}
		if extend {
			sess.ExpiresAt = time.Now().Add(time.Minute * expireMinutes)
		}
		copy := *sess
		ret = &copy
	})
	return ret, err
}

// Delete removes a session from the session storage
func (r *SessionRepo) Delete(sessionID string) error {
	r.do(func(sessions map[string]*models.Session) {
		delete(sessions, sessionID)
	})
	return nil
}
