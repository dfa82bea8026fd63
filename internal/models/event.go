package models

import (
	"errors"
	"strings"
	"time"
)

const (
	// VisibilityPublic marks an event that anyone may join
	VisibilityPublic = "public"
	// VisibilityInviteOnly marks an event that requires the event's passcode to join or enter the waitlist
	VisibilityInviteOnly = "invite-only"
)

// Membership states a participant can be in for a single event
const (
	// StatusJoined is reported when an identity holds a seat in the participant roster
	StatusJoined = "joined"
	// StatusWaitlisted is reported when an identity is queued for the next free seat
	StatusWaitlisted = "waitlisted"
)

var (
	// ErrInvalidPasscode is returned when joining an invite-only event with a wrong or missing passcode
	ErrInvalidPasscode = errors.New("passcode does not match")
	// ErrAlreadyJoined is returned when an identity is already present in the roster or the waitlist
	ErrAlreadyJoined = errors.New("already joined or waitlisted")
	// ErrNotAParticipant is returned when a leave or toggle targets an identity that is not present
	ErrNotAParticipant = errors.New("not a participant of this event")
	// ErrCapacityBelowCurrent is returned when an edit would shrink the capacity below the roster size
	ErrCapacityBelowCurrent = errors.New("capacity below current participant count")
	// ErrInvalidSchedule is returned when an event would be scheduled in the past
	ErrInvalidSchedule = errors.New("event schedule lies in the past")
)

// A Participant is one identity admitted to an event's roster or queued on its waitlist.
// The display name is the identity key - it is unique within a single event
type Participant struct {
	// Display name of the participant
	Name string `db:"name" json:"name"`
	// Has the participant paid the event's cost? Toggled by the organizer only
	Paid bool `db:"paid" json:"paid"`
}

// Event describes a single pickup-sports event with its roster and waitlist
type Event struct {
	// Opaque ID assigned by the store at creation
	ID string `db:"id" json:"id"`
	// Title of the event
	Title string `db:"title" json:"title"`
	// Where the event takes place
	Location string `db:"location" json:"location"`
	// Free-text details shown to interested players
	Details string `db:"details" json:"details,omitempty"`
	// The instant the event starts at
	ScheduledAt time.Time `db:"scheduledAt" json:"dateTime"`
	// Cost per participant - zero is displayed as "Free"
	Cost float64 `db:"cost" json:"cost"`
	// Maximum number of participants admitted to the roster
	MaxParticipants int `db:"maxParticipants" json:"maxParticipants"`
	// Either "public" or "invite-only"
	Visibility string `db:"visibility" json:"visibility"`
	// Shared secret required to join - set if and only if the event is invite-only.
	// Serialized only for the organizer; see the transport's repacking
	Passcode string `db:"passcode" json:"passcode,omitempty"`
	// Display name of the creating identity - immutable after creation
	Organizer string `db:"organizer" json:"organizer"`
	// Creation date of this entry
	CreatedAt time.Time `db:"createdAt" json:"createdAt"`
	// Date of the last update of this entry
	UpdatedAt time.Time `db:"updatedAt" json:"updatedAt"`
	// Admitted participants in join order - never longer than MaxParticipants
	Participants []Participant `db:"-" json:"participants"`
	// Queued identities in waitlist order - position is the 1-indexed rank in this list
	Waitlist []Participant `db:"-" json:"waitlist"`
}

// ValidVisibility checks if the given value is a valid event visibility
func ValidVisibility(v string) bool {
	return v == VisibilityPublic || v == VisibilityInviteOnly
}

// InviteOnly checks if joining the event requires its passcode
func (e *Event) InviteOnly() bool {
	return e.Visibility == VisibilityInviteOnly
}

// HasMember checks if the given name is present in the roster or on the waitlist
func (e *Event) HasMember(name string) bool {
	for _, p := range e.Participants {
		if p.Name == name {
			return true
		}
	}
	for _, p := range e.Waitlist {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Admit applies a join request to the in-memory event document. The identity is seated
// on the roster while capacity remains and queued on the waitlist otherwise. It returns
// the resulting membership status and, for waitlisted identities, the 1-indexed
// waitlist position. The document is left untouched when an error is returned
func (e *Event) Admit(name, passcode string) (string, int, error) {
	if e.InviteOnly() && passcode != e.Passcode {
		return "", 0, ErrInvalidPasscode
	}
	if e.HasMember(name) {
		return "", 0, ErrAlreadyJoined
	}
	if len(e.Participants) < e.MaxParticipants {
		e.Participants = append(e.Participants, Participant{Name: name})
		return StatusJoined, 0, nil
	}
	e.Waitlist = append(e.Waitlist, Participant{Name: name})
	return StatusWaitlisted, len(e.Waitlist), nil
}

// Remove applies a leave request to the in-memory event document. Leaving the roster
// frees one seat and promotes the head of the waitlist into it; leaving the waitlist
// promotes nobody. The name of the promoted identity is returned, if any
func (e *Event) Remove(name string) (string, error) {
	for i, p := range e.Participants {
		if p.Name == name {
			e.Participants = append(e.Participants[:i], e.Participants[i+1:]...)
			// One vacated seat promotes at most one waitlisted identity
			if len(e.Waitlist) > 0 {
				head := e.Waitlist[0]
				e.Waitlist = e.Waitlist[1:]
				e.Participants = append(e.Participants, head)
				return head.Name, nil
			}
			return "", nil
		}
	}
	for i, p := range e.Waitlist {
		if p.Name == name {
			e.Waitlist = append(e.Waitlist[:i], e.Waitlist[i+1:]...)
			return "", nil
		}
	}
	return "", ErrNotAParticipant
}

// TogglePaid flips the paid flag of the named roster participant and returns the new
// value. Waitlisted identities carry no paid flag and cannot be toggled
func (e *Event) TogglePaid(name string) (bool, error) {
	for i, p := range e.Participants {
		if p.Name == name {
			e.Participants[i].Paid = !p.Paid
			return e.Participants[i].Paid, nil
		}
	}
	return false, ErrNotAParticipant
}

// PromoteUpTo moves waitlisted identities into free roster seats, FIFO, until the
// roster is full or the waitlist is empty. Used when an edit raises the capacity.
// It returns the names promoted, in order
func (e *Event) PromoteUpTo() []string {
	var promoted []string
	for len(e.Participants) < e.MaxParticipants && len(e.Waitlist) > 0 {
		head := e.Waitlist[0]
		e.Waitlist = e.Waitlist[1:]
		e.Participants = append(e.Participants, head)
		promoted = append(promoted, head.Name)
	}
	return promoted
}

// Validate checks the event's own fields for consistency. Membership invariants are
// maintained by the transition methods and are not re-checked here
func (e *Event) Validate(now time.Time) error {
	if strings.TrimSpace(e.Title) == "" || strings.TrimSpace(e.Location) == "" {
		return errors.New("title and location must not be empty")
	}
	if e.MaxParticipants < 1 {
		return errors.New("maxParticipants must be a positive integer")
	}
	if e.Cost < 0 {
		return errors.New("cost must not be negative")
	}
	if !ValidVisibility(e.Visibility) {
		return errors.New("visibility must be 'public' or 'invite-only'")
	}
	if e.ScheduledAt.Before(now) {
		return ErrInvalidSchedule
	}
	return nil
}

// EventPatch carries the fields an organizer may change on an existing event.
// Nil fields are left untouched
type EventPatch struct {
	Title           *string    `json:"title"`
	Location        *string    `json:"location"`
	Details         *string    `json:"details"`
	ScheduledAt     *time.Time `json:"dateTime"`
	Cost            *float64   `json:"cost"`
	MaxParticipants *int       `json:"maxParticipants"`
	Visibility      *string    `json:"visibility"`
}
