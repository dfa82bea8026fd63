// Package sqlite provides an event repository that stores events, rosters and
// waitlists inside a SQLite database
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jmoiron/sqlx"
	"github.com/quickcourt/quickcourt/internal/log"
	"github.com/quickcourt/quickcourt/internal/models"
	"github.com/quickcourt/quickcourt/internal/repos"
)

const (
	eventFields = `title, location, details, scheduledAt, cost, maxParticipants, visibility, passcode, organizer,
        createdAt, updatedAt`
	memberFields = `eventId, name, paid, waitlisted, position, createdAt, updatedAt`
)

// memberRow is the database representation of one roster or waitlist entry
type memberRow struct {
	EventID    string `db:"eventId"`
	Name       string `db:"name"`
	Paid       bool   `db:"paid"`
	Waitlisted bool   `db:"waitlisted"`
	Position   int    `db:"position"`
}

// selecter is satisfied by both *sqlx.DB and *sqlx.Tx
type selecter interface {
	Select(dest interface{}, query string, args ...interface{}) error
}

// EventRepo is an event repository that stores its data inside a SQLite database
type EventRepo struct {
	db     *sqlx.DB
	logger *logrus.Entry
}

// New creates a new event repository instance with the given database and logger
func New(db *sqlx.DB, logger *logrus.Entry) *EventRepo {
	return &EventRepo{
		db:     db,
		logger: logger,
	}
}

// Create creates a new event, assigning its ID
func (r *EventRepo) Create(ev *models.Event) error {
	r.logger.WithField("title", ev.Title).Debug("Adding new event")
	ev.ID = uuid.New().String()
	// SQLite compares the stored timestamps as plain strings, so they have to be
	// written in UTC to line up with datetime('now')
	ev.ScheduledAt = ev.ScheduledAt.UTC()
	query := fmt.Sprintf(
		"INSERT INTO Events(id, %s) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'), datetime('now'))",
		eventFields,
	)
	_, err := r.db.Exec(query, ev.ID, ev.Title, ev.Location, ev.Details, ev.ScheduledAt, ev.Cost,
		ev.MaxParticipants, ev.Visibility, ev.Passcode, ev.Organizer)
	if err != nil {
		return err
	}
	// Setting the dates like this should be enough for now
	ev.CreatedAt = time.Now()
	ev.UpdatedAt = time.Now()
	return nil
}

// Delete removes the given event and all of its membership records
func (r *EventRepo) Delete(id string) error {
	r.logger.WithField(log.FldID, id).Debug("Deleting event")
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("Delete: Failed to start transaction: %v", err)
	}
	res, err := tx.Exec("DELETE FROM Events WHERE id = ?", id)
	if err != nil {
		return repos.DoRollback(tx, err)
	}
	var num int64
	if num, err = res.RowsAffected(); err == nil {
		if num == 0 {
			return repos.DoRollback(tx, repos.ErrEntityNotExisting)
		}
	}
	if _, err = tx.Exec("DELETE FROM EventMembers WHERE eventId = ?", id); err != nil {
		return repos.DoRollback(tx, fmt.Errorf("Delete: Failed to remove membership records: %v", err))
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("Delete: Failed to commit transaction: %v", err)
	}
	return nil
}

// GetByID returns the event with the given ID including its ordered roster and waitlist
func (r *EventRepo) GetByID(id string) (*models.Event, error) {
	r.logger.WithField(log.FldID, id).Debug("Loading event")
	query := fmt.Sprintf("SELECT id, %s FROM Events WHERE id = ?", eventFields)
	var ev models.Event
	err := r.db.Get(&ev, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			// Nothing found
			return nil, repos.ErrEntityNotExisting
		}
		return nil, err
	}
	if err = loadMembers(r.db, &ev); err != nil {
		return nil, errors.Wrap(err, "GetByID: Failed to load membership records")
	}
	return &ev, nil
}

// Find searches for events matching the given search string - supports pagination.
// With upcoming set, events scheduled in the past are excluded
func (r *EventRepo) Find(search string, upcoming bool, offset uint, limit uint) ([]models.Event, uint, error) {
	if limit == 0 {
		limit = 50
	}
	r.logger.WithFields(logrus.Fields{
		log.FldSearch: search,
		log.FldOffset: offset,
		log.FldLimit:  limit,
	}).Debug("Searching for events")
	// For now, we're using a simple LIKE search
	search = "%" + search + "%"
	where := `(title LIKE $1 OR location LIKE $1 OR details LIKE $1)`
	if upcoming {
		where += ` AND scheduledAt >= datetime('now')`
	}
	query := fmt.Sprintf(`SELECT id, %s FROM Events WHERE %s ORDER BY scheduledAt LIMIT $2 OFFSET $3`,
		eventFields, where)
	var ret []models.Event
	err := r.db.Select(&ret, query, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if err = attachMembers(r.db, ret); err != nil {
		return nil, 0, errors.Wrap(err, "Find: Failed to load membership records")
	}
	// Query the full count
	query = fmt.Sprintf(`SELECT COUNT(*) FROM Events WHERE %s`, where)
	var numRows uint
	if err = r.db.Get(&numRows, query, search); err != nil {
		return nil, 0, err
	}
	return ret, numRows, nil
}

// Mutate loads the event document inside a single transaction, applies the given
// transition and persists the result. SQLite serializes writing transactions, so two
// concurrent mutations of the same event can never both observe a free seat - the
// roster cannot be pushed past its capacity
func (r *EventRepo) Mutate(id string, apply func(ev *models.Event) error) (*models.Event, error) {
	r.logger.WithField(log.FldID, id).Debug("Mutating event")
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("Mutate: Unable to start transaction: %v", err)
	}
	query := fmt.Sprintf("SELECT id, %s FROM Events WHERE id = ?", eventFields)
	var ev models.Event
	if err = tx.Get(&ev, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, repos.DoRollback(tx, repos.ErrEntityNotExisting)
		}
		return nil, repos.DoRollback(tx, fmt.Errorf("Mutate: Failed to load event: %v", err))
	}
	if err = loadMembers(tx, &ev); err != nil {
		return nil, repos.DoRollback(tx, fmt.Errorf("Mutate: Failed to load membership records: %v", err))
	}
	if err = apply(&ev); err != nil {
		// The transition refused - nothing may be written
		return nil, repos.DoRollback(tx, err)
	}
	// Keep the stored timestamp in UTC - see Create
	ev.ScheduledAt = ev.ScheduledAt.UTC()
	query = `UPDATE Events SET title = ?, location = ?, details = ?, scheduledAt = ?, cost = ?,
        maxParticipants = ?, visibility = ?, passcode = ?, updatedAt = datetime('now') WHERE id = ?`
	if _, err = tx.Exec(query, ev.Title, ev.Location, ev.Details, ev.ScheduledAt, ev.Cost,
		ev.MaxParticipants, ev.Visibility, ev.Passcode, ev.ID); err != nil {
		return nil, repos.DoRollback(tx, fmt.Errorf("Mutate: Failed to update event: %v", err))
	}
	// Rewrite the membership records in their new order
	if _, err = tx.Exec("DELETE FROM EventMembers WHERE eventId = ?", ev.ID); err != nil {
		return nil, repos.DoRollback(tx, fmt.Errorf("Mutate: Failed to clear membership records: %v", err))
	}
	insert := fmt.Sprintf(
		"INSERT INTO EventMembers(%s) VALUES(?, ?, ?, ?, ?, datetime('now'), datetime('now'))",
		memberFields,
	)
	for i, p := range ev.Participants {
		if _, err = tx.Exec(insert, ev.ID, p.Name, p.Paid, false, i+1); err != nil {
			return nil, repos.DoRollback(tx, fmt.Errorf("Mutate: Failed to write roster record: %v", err))
		}
	}
	for i, p := range ev.Waitlist {
		if _, err = tx.Exec(insert, ev.ID, p.Name, p.Paid, true, i+1); err != nil {
			return nil, repos.DoRollback(tx, fmt.Errorf("Mutate: Failed to write waitlist record: %v", err))
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("Mutate: Failed to commit transaction: %v", err)
	}
	ev.UpdatedAt = time.Now()
	return &ev, nil
}

// loadMembers fills the roster and waitlist of a single event in their stored order
func loadMembers(q selecter, ev *models.Event) error {
	var rows []memberRow
	query := `SELECT eventId, name, paid, waitlisted, position FROM EventMembers
        WHERE eventId = ? ORDER BY waitlisted, position`
	if err := q.Select(&rows, query, ev.ID); err != nil {
		return err
	}
	ev.Participants = []models.Participant{}
	ev.Waitlist = []models.Participant{}
	for _, row := range rows {
		p := models.Participant{Name: row.Name, Paid: row.Paid}
		if row.Waitlisted {
			ev.Waitlist = append(ev.Waitlist, p)
		} else {
			ev.Participants = append(ev.Participants, p)
		}
	}
	return nil
}

// attachMembers fills the rosters and waitlists of all listed events with one query
func attachMembers(q selecter, evs []models.Event) error {
	if len(evs) == 0 {
		return nil
	}
	params := []interface{}{}
	for i := range evs {
		evs[i].Participants = []models.Participant{}
		evs[i].Waitlist = []models.Participant{}
		params = append(params, evs[i].ID)
	}
	query := fmt.Sprintf(
		`SELECT eventId, name, paid, waitlisted, position FROM EventMembers
            WHERE eventId IN (?%s) ORDER BY waitlisted, position`,
		strings.Repeat(", ?", len(evs)-1),
	)
	var rows []memberRow
	if err := q.Select(&rows, query, params...); err != nil {
		return err
	}
	byID := map[string]*models.Event{}
	for i := range evs {
		byID[evs[i].ID] = &evs[i]
	}
	for _, row := range rows {
		ev, ok := byID[row.EventID]
		if !ok {
			continue
		}
		p := models.Participant{Name: row.Name, Paid: row.Paid}
		if row.Waitlisted {
			ev.Waitlist = append(ev.Waitlist, p)
		} else {
			ev.Participants = append(ev.Participants, p)
		}
	}
	return nil
}
