package internal

import (
	"fmt"
	"net/http"

	"github.com/quickcourt/quickcourt/internal/log"
	"github.com/quickcourt/quickcourt/internal/models"
	"github.com/quickcourt/quickcourt/internal/repos"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// MembershipService owns the membership lifecycle of a single event: joining, leaving,
// waitlisting, FIFO promotion and the organizer's paid bookkeeping. Every operation is
// one atomic read-modify-write against the event repository, and the acting identity
// is an explicit parameter of every call
type MembershipService interface {
	// Join admits the identity to the event's roster or, when the roster is full, to
	// its waitlist. Invite-only events require the matching passcode
	Join(ctx context.Context, eventID, identity, passcode string) (*JoinResult, error)
	// Leave removes the identity from the roster or the waitlist. A vacated roster
	// seat promotes the head of the waitlist
	Leave(ctx context.Context, eventID, identity string) (*models.Event, error)
	// TogglePaid flips the paid flag of a roster participant - organizer only
	TogglePaid(ctx context.Context, eventID, actor, targetName string) (*models.Event, error)
	// Participants returns the event's roster in join order
	Participants(ctx context.Context, eventID string) ([]models.Participant, error)
	// Waitlist returns the event's waitlist in queue order
	Waitlist(ctx context.Context, eventID string) ([]models.Participant, error)
}

// JoinResult reports the outcome of a join request. Position is only set for
// waitlisted identities and is their 1-indexed rank in the queue
type JoinResult struct {
	Status   string        `json:"status"`
	Position int           `json:"position,omitempty"`
	Event    *models.Event `json:"event"`
}

// -- MembershipService implementation ---------------------------------------------------------------------------------

type membershipService struct {
	repo   repos.EventRepo
	logger *logrus.Entry
}

// NewMembershipService creates a new membership service instance
func NewMembershipService(repo repos.EventRepo, logger *logrus.Entry) MembershipService {
	return &membershipService{
		repo:   repo,
		logger: logger,
	}
}

// Join admits the identity to the event's roster or its waitlist
func (s *membershipService) Join(ctx context.Context, eventID, identity, passcode string) (*JoinResult, error) {
	var status string
	var position int
	ev, err := s.repo.Mutate(eventID, func(ev *models.Event) error {
		var err error
		status, position, err = ev.Admit(identity, passcode)
		return err
	})
	if err != nil {
		return nil, s.translateError(err, eventID)
	}
	s.logger.WithFields(logrus.Fields{
		log.FldEvent:       eventID,
		log.FldParticipant: identity,
	}).Infof("Participant joined with status '%s'", status)
	return &JoinResult{Status: status, Position: position, Event: ev}, nil
}

// Leave removes the identity from the roster or the waitlist
func (s *membershipService) Leave(ctx context.Context, eventID, identity string) (*models.Event, error) {
	var promoted string
	ev, err := s.repo.Mutate(eventID, func(ev *models.Event) error {
		var err error
		promoted, err = ev.Remove(identity)
		return err
	})
	if err != nil {
		return nil, s.translateError(err, eventID)
	}
	entry := s.logger.WithFields(logrus.Fields{
		log.FldEvent:       eventID,
		log.FldParticipant: identity,
	})
	if promoted != "" {
		entry.Infof("Participant left; '%s' promoted from the waitlist", promoted)
	} else {
		entry.Info("Participant left")
	}
	return ev, nil
}

// TogglePaid flips the paid flag of a roster participant. Only the event's organizer
// may do this, and the check happens before anything is changed
func (s *membershipService) TogglePaid(ctx context.Context, eventID, actor, targetName string) (*models.Event, error) {
	ev, err := s.repo.Mutate(eventID, func(ev *models.Event) error {
		if ev.Organizer != actor {
			return MakeError(
				http.StatusForbidden,
				ErrCodeNotAuthorized,
				"Only the organizer may change the paid state of a participant",
			)
		}
		_, err := ev.TogglePaid(targetName)
		return err
	})
	if err != nil {
		return nil, s.translateError(err, eventID)
	}
	return ev, nil
}

// Participants returns the event's roster in join order
func (s *membershipService) Participants(ctx context.Context, eventID string) ([]models.Participant, error) {
	ev, err := s.getEvent(eventID)
	if err != nil {
		return nil, err
	}
	return ev.Participants, nil
}

// Waitlist returns the event's waitlist in queue order
func (s *membershipService) Waitlist(ctx context.Context, eventID string) ([]models.Participant, error) {
	ev, err := s.getEvent(eventID)
	if err != nil {
		return nil, err
	}
	return ev.Waitlist, nil
}

func (s *membershipService) getEvent(eventID string) (*models.Event, error) {
	ev, err := s.repo.GetByID(eventID)
	if err != nil {
		return nil, s.translateError(err, eventID)
	}
	return ev, nil
}

// translateError maps repo and model sentinel errors to their client-facing HTTPError
func (s *membershipService) translateError(err error, eventID string) error {
	switch err {
	case repos.ErrEntityNotExisting:
		return MakeError(http.StatusNotFound, ErrCodeEventNotFound,
			fmt.Sprintf("Event '%s' does not exist", eventID),
		)
	case models.ErrInvalidPasscode:
		return MakeError(
			http.StatusForbidden,
			ErrCodeInvalidPasscode,
			"The provided passcode does not match",
		)
	case models.ErrAlreadyJoined:
		return MakeError(
			http.StatusConflict,
			ErrCodeAlreadyJoined,
			"This participant has already joined or is on the waitlist",
		)
	case models.ErrNotAParticipant:
		return MakeError(
			http.StatusNotFound,
			ErrCodeNotAParticipant,
			"This participant is not part of the event",
		)
	}
	if _, ok := err.(*HTTPError); ok {
		return err
	}
	return MakeErrorWithData(http.StatusInternalServerError, ErrCodeRepoError,
		fmt.Sprintf("Error while updating membership of event '%s'", eventID), err,
	)
}
