package internal

import (
	"net/http"
	"strings"

	"github.com/quickcourt/quickcourt/internal/models"
	"github.com/quickcourt/quickcourt/internal/repos"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// SessionService is QuickCourt's identity provider: it manages accounts and their API
// sessions and hands out the stable display name other services use as the participant
// identity
type SessionService interface {
	// Signup creates a new account and logs it in right away
	Signup(ctx context.Context, req SignupRequest) (*SessionInfo, error)
	// Login tries to log-in the user with the given credentials and returns the info about the created session if login
	// was successful
	Login(ctx context.Context, user string, password string) (*SessionInfo, error)
	// Logout logs out a currently active session
	Logout(ctx context.Context, sessionID string) error
	// WhoAmI returns information about the current session
	WhoAmI(ctx context.Context, sessionID string) (*SessionInfo, error)
	// GetContents returns the session and user data associated with the given session ID
	// This service function will be used internally and does not have an endpoint
	GetContents(ctx context.Context, sessionID string, extendExpiry bool) (*models.Session, *models.User, error)
}

// -- Session service implementation -----------------------------------------------------------------------------------

// SignupRequest carries the data needed to create a new account
type SignupRequest struct {
	User      string `json:"user"`
	Pass      string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// SessionInfo is a session information object that is returned upon login. It contains both, the session ID and
// information about the user that is logged in
type SessionInfo struct {
	SessionID   string `json:"sessionId"`
	UserName    string `json:"userName"`
	DisplayName string `json:"displayName"`
}

type sessionService struct {
	logger   *logrus.Entry
	sessions repos.SessionRepo
	users    repos.UserRepo
}

// NewSessionService creates a new session service instance with the provided repositories
func NewSessionService(sr repos.SessionRepo, ur repos.UserRepo, logger *logrus.Entry) SessionService {
	return &sessionService{
		logger:   logger,
		sessions: sr,
		users:    ur,
	}
}

// makeSessionInfo creates a session info object from the given session and user data
func makeSessionInfo(sess *models.Session, user *models.User) *SessionInfo {
	return &SessionInfo{
		SessionID:   sess.ID,
		UserName:    user.Name,
		DisplayName: user.DisplayName(),
	}
}

// Signup creates a new account and logs it in right away
func (s *sessionService) Signup(ctx context.Context, req SignupRequest) (*SessionInfo, error) {
	req.User = strings.ToLower(strings.TrimSpace(req.User))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.User == "" || req.Pass == "" || req.FirstName == "" {
		return nil, MakeError(
			http.StatusBadRequest,
			ErrCodeRequiredFieldMissing,
			"User, password and first name must not be empty",
		)
	}
	u := models.User{
		Name:      req.User,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	// Both the login name and the roster display name have to be unique - participants
	// are keyed by their display name on event rosters
	if existing, err := s.users.GetByName(u.Name); err != nil || existing != nil {
		if err != nil {
			return nil, s.repoError(err, "Failed to check for an existing user")
		}
		return nil, MakeError(
			http.StatusConflict,
			ErrCodeUserExists,
			"An account with this user name already exists",
		)
	}
	if existing, err := s.users.GetByDisplayName(u.DisplayName()); err != nil || existing != nil {
		if err != nil {
			return nil, s.repoError(err, "Failed to check for an existing display name")
		}
		return nil, MakeError(
			http.StatusConflict,
			ErrCodeUserExists,
			"A player with this name already exists - please use a distinct name",
		)
	}
	if err := u.SetPassword(req.Pass); err != nil {
		return nil, s.repoError(err, "Failed to hash the password")
	}
	if err := s.users.Create(&u); err != nil {
		return nil, s.repoError(err, "Failed to create the account")
	}
	s.logger.WithField("user", u.Name).Info("New account created")
	return s.Login(ctx, u.Name, req.Pass)
}

// Login tries to log-in the user with the given credentials and returns the info about the created session if login
// was successful
func (s *sessionService) Login(ctx context.Context, user string, password string) (*SessionInfo, error) {
	user = strings.ToLower(strings.TrimSpace(user))
	u, err := s.users.GetByCredentials(user, password)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load user data for auth")
		return nil, s.repoError(err, "Failed to authenticate user")
	}
	if u == nil {
		// Login failed
		return nil, MakeError(
			http.StatusForbidden,
			ErrCodeLoginFailed,
			"Login failed",
		)
	}
	sess, err := s.sessions.CreateFor(u.ID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to create session")
		return nil, s.repoError(err, "Failed to create session")
	}
	return makeSessionInfo(sess, u), nil
}

// Logout logs out a currently active session
func (s *sessionService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		s.logger.WithError(err).Error("Failed to delete session")
		return s.repoError(err, "Failed to logout. Error in the data store")
	}
	return nil
}

// WhoAmI returns information about the current session
func (s *sessionService) WhoAmI(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, u, err := s.GetContents(ctx, sessionID, false)
	if err != nil {
		return nil, err
	}
	if sess == nil || u == nil {
		return nil, MakeError(
			http.StatusForbidden,
			ErrCodeNotLoggedIn,
			"No active session",
		)
	}
	return makeSessionInfo(sess, u), nil
}

// GetContents returns the session and user data associated with the given session ID
// This service function will be used internally and does not have an endpoint
func (s *sessionService) GetContents(ctx context.Context, sessionID string, extendExpiry bool) (*models.Session, *models.User, error) {
	sess, err := s.sessions.GetByID(sessionID, extendExpiry)
	if err != nil {
		if err == repos.ErrEntityNotExisting {
			return nil, nil, nil
		}
		s.logger.WithError(err).Error("Failed to retrieve session from repo")
		return nil, nil, s.repoError(err, "Failed to retrieve session information from storage")
	}
	u, err := s.users.GetByID(sess.UserID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to retrieve user data from repo")
		return nil, nil, s.repoError(err, "Failed to retrieve user information from storage")
	}
	if u == nil {
		return nil, nil, nil
	}
	return sess, u, nil
}

func (s *sessionService) repoError(err error, msg string) error {
	return MakeErrorWithData(http.StatusInternalServerError, ErrCodeRepoError, msg, err)
}
