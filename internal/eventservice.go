package internal

import (
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/quickcourt/quickcourt/internal/log"
	"github.com/quickcourt/quickcourt/internal/models"
	"github.com/quickcourt/quickcourt/internal/repos"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// EventService provides service functions for working with events. The acting identity
// is always passed in explicitly - there is no ambient "current user" inside the service
type EventService interface {
	List(ctx context.Context, search *Search) ([]models.Event, uint, error)
	Get(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event, organizer string) (*models.Event, error)
	Update(ctx context.Context, id string, patch models.EventPatch, actor string) (*models.Event, error)
	Delete(ctx context.Context, id string, actor string) error
}

// -- EventService implementation --------------------------------------------------------------------------------------

const passcodeLength = 6

const passcodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generatePasscode creates a new shared secret for an invite-only event
func generatePasscode() string {
	b := make([]byte, passcodeLength)
	for i := range b {
		b[i] = passcodeChars[rand.Intn(len(passcodeChars))]
	}
	return string(b)
}

// EventService implementation
type eventService struct {
	repo   repos.EventRepo
	logger *logrus.Entry
}

// NewEventService creates a new event service instance
func NewEventService(repo repos.EventRepo, logger *logrus.Entry) EventService {
	return &eventService{
		repo:   repo,
		logger: logger,
	}
}

// List searches for events matching the given search term
func (s *eventService) List(ctx context.Context, search *Search) ([]models.Event, uint, error) {
	events, numRows, err := s.repo.Find(search.Search, search.Upcoming, search.Offset, search.Limit)
	if err != nil {
		return nil, 0, MakeErrorWithData(
			http.StatusInternalServerError,
			ErrCodeRepoError,
			"Error while searching events",
			err,
		)
	}
	return events, numRows, nil
}

// Get returns the event with the given ID
func (s *eventService) Get(ctx context.Context, id string) (*models.Event, error) {
	ev, err := s.repo.GetByID(id)
	if err != nil {
		if err == repos.ErrEntityNotExisting {
			return nil, MakeError(http.StatusNotFound, ErrCodeEventNotFound,
				fmt.Sprintf("Event '%s' does not exist", id),
			)
		}
		return nil, MakeErrorWithData(http.StatusInternalServerError, ErrCodeRepoError,
			fmt.Sprintf("Error while retrieving event '%s'", id), err,
		)
	}
	return ev, nil
}

// Create creates a new event with the acting identity as its organizer
func (s *eventService) Create(ctx context.Context, event *models.Event, organizer string) (*models.Event, error) {
	event.Title = strings.TrimSpace(event.Title)
	event.Location = strings.TrimSpace(event.Location)
	if event.Visibility == "" {
		event.Visibility = models.VisibilityPublic
	}
	if err := event.Validate(time.Now()); err != nil {
		if err == models.ErrInvalidSchedule {
			return nil, MakeError(
				http.StatusBadRequest,
				ErrCodeInvalidSchedule,
				"The event cannot be scheduled in the past",
			)
		}
		return nil, MakeErrorWithData(
			http.StatusBadRequest,
			ErrCodeRequiredFieldMissing,
			err.Error(),
			nil,
		)
	}
	// The passcode exists if and only if the event is invite-only
	if event.InviteOnly() {
		if event.Passcode == "" {
			event.Passcode = generatePasscode()
		}
	} else {
		event.Passcode = ""
	}
	event.Organizer = organizer
	event.Participants = []models.Participant{}
	event.Waitlist = []models.Participant{}
	if err := s.repo.Create(event); err != nil {
		return nil, MakeErrorWithData(
			http.StatusInternalServerError,
			ErrCodeRepoError,
			"Error while creating the event",
			err,
		)
	}
	s.logger.WithFields(logrus.Fields{
		log.FldEvent: event.ID,
		log.FldUser:  organizer,
	}).Info("Event created")
	return event, nil
}

// Update applies the given patch to an existing event. Only the organizer may edit;
// the authorization is checked before anything is changed
func (s *eventService) Update(ctx context.Context, id string, patch models.EventPatch, actor string) (*models.Event, error) {
	ev, err := s.repo.Mutate(id, func(ev *models.Event) error {
		if ev.Organizer != actor {
			return MakeError(
				http.StatusForbidden,
				ErrCodeNotAuthorized,
				"Only the organizer may edit this event",
			)
		}
		if patch.Title != nil {
			ev.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Location != nil {
			ev.Location = strings.TrimSpace(*patch.Location)
		}
		if patch.Details != nil {
			ev.Details = *patch.Details
		}
		if patch.ScheduledAt != nil {
			ev.ScheduledAt = *patch.ScheduledAt
		}
		if patch.Cost != nil {
			ev.Cost = *patch.Cost
		}
		if patch.MaxParticipants != nil {
			// Shrinking must never silently drop admitted participants
			if *patch.MaxParticipants < len(ev.Participants) {
				return models.ErrCapacityBelowCurrent
			}
			ev.MaxParticipants = *patch.MaxParticipants
		}
		if patch.Visibility != nil {
			ev.Visibility = *patch.Visibility
		}
		if err := ev.Validate(time.Now()); err != nil {
			if err == models.ErrInvalidSchedule {
				return err
			}
			return MakeError(http.StatusBadRequest, ErrCodeIllegalValue, err.Error())
		}
		if ev.InviteOnly() {
			if ev.Passcode == "" {
				ev.Passcode = generatePasscode()
			}
		} else {
			ev.Passcode = ""
		}
		// A raised capacity pulls waiting identities onto the roster right away
		if promoted := ev.PromoteUpTo(); len(promoted) > 0 {
			s.logger.WithField(log.FldEvent, ev.ID).
				Infof("Promoted %d waitlisted participants after capacity increase", len(promoted))
		}
		return nil
	})
	if err != nil {
		return nil, s.translateError(err, id)
	}
	return ev, nil
}

// Delete removes an existing event from the repository. Only the organizer may delete
func (s *eventService) Delete(ctx context.Context, id string, actor string) error {
	ev, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if ev.Organizer != actor {
		return MakeError(
			http.StatusForbidden,
			ErrCodeNotAuthorized,
			"Only the organizer may delete this event",
		)
	}
	if err := s.repo.Delete(id); err != nil {
		if err == repos.ErrEntityNotExisting {
			return MakeError(http.StatusNotFound, ErrCodeEventNotFound,
				fmt.Sprintf("Event '%s' does not exist", id),
			)
		}
		return MakeErrorWithData(http.StatusInternalServerError, ErrCodeRepoError,
			fmt.Sprintf("Error while deleting event '%s'", id), err,
		)
	}
	s.logger.WithFields(logrus.Fields{
		log.FldEvent: id,
		log.FldUser:  actor,
	}).Info("Event deleted")
	return nil
}

// translateError maps repo and model sentinel errors to their client-facing HTTPError
func (s *eventService) translateError(err error, id string) error {
	switch err {
	case repos.ErrEntityNotExisting:
		return MakeError(http.StatusNotFound, ErrCodeEventNotFound,
			fmt.Sprintf("Event '%s' does not exist", id),
		)
	case models.ErrCapacityBelowCurrent:
		return MakeError(
			http.StatusBadRequest,
			ErrCodeCapacityBelowCurrent,
			"The capacity cannot be lowered below the number of admitted participants",
		)
	case models.ErrInvalidSchedule:
		return MakeError(
			http.StatusBadRequest,
			ErrCodeInvalidSchedule,
			"The event cannot be scheduled in the past",
		)
	}
	if _, ok := err.(*HTTPError); ok {
		return err
	}
	return MakeErrorWithData(http.StatusInternalServerError, ErrCodeRepoError,
		fmt.Sprintf("Error while updating event '%s'", id), err,
	)
}
