// Package migrate handles SQL database migration for the internal QuickCourt database
package migrate

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

var migrations []dbMigration

type dbMigration struct {
	Version uint
	Queries []string
}

// Execute runs the current DB migration on the given database
func (mig *dbMigration) Execute(db *sqlx.DB, logger *logrus.Entry) error {
	// Check if the migration has already run
	query := `SELECT success FROM Migrations WHERE version = $1`
	var success = false
	err := db.QueryRow(query, mig.Version).Scan(&success)
	if err != nil && err != sql.ErrNoRows {
		logger.WithError(err).Error("Failed to fetch version information")
		return err
	}
	if !success {
		// We need to execute this migration
		logger.Infof("Executing DB migration #%d", mig.Version)
		for i, query := range mig.Queries {
			logger.Infof("Query %d of %d...", (i + 1), len(mig.Queries))
			if _, err := db.Exec(query); err != nil {
				logger.WithError(err).Errorf("Query #%d failed", (i + 1))
				db.Exec(`REPLACE INTO Migrations(version, success) VALUES($1, 0)`, mig.Version)
				return err
			}
		}
		// Queries executed successfully - save our status
		db.Exec(`REPLACE INTO Migrations(version, success) VALUES($1, 1)`, mig.Version)
	}
	return nil
}

// ExecuteMigrationsOnDb executes the database migrations on the given database instance
func ExecuteMigrationsOnDb(db *sqlx.DB, logger *logrus.Entry) error {
	// Create the migrations table if it does not exist, yet
	query := `CREATE TABLE IF NOT EXISTS Migrations (
                version   INTEGER NOT NULL,
                success   INTEGER NOT NULL DEFAULT 0,
                PRIMARY KEY(version)
            )`
	if _, err := db.Exec(query); err != nil {
		logger.WithError(err).Error("Failed to create migrations table")
		return err
	}
	for _, mig := range migrations {
		if err := mig.Execute(db, logger); err != nil {
			logger.WithError(err).Errorf("Failed to execute migration #%d", mig.Version)
			return err
		}
	}
	return nil
}

// For now, the migrations are part of the package...
func init() {
	migrations = []dbMigration{
		{
			Version: 1,
			Queries: []string{
				`CREATE TABLE "Events" (
                    id VARCHAR(36) NOT NULL PRIMARY KEY,
                    title VARCHAR(128) NOT NULL DEFAULT '',
                    location VARCHAR(255) NOT NULL DEFAULT '',
                    details TEXT NOT NULL DEFAULT '',
                    scheduledAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                    cost REAL NOT NULL DEFAULT 0,
                    maxParticipants INTEGER NOT NULL DEFAULT 1,
                    visibility VARCHAR(16) NOT NULL DEFAULT 'public',
                    passcode VARCHAR(32) NOT NULL DEFAULT '',
                    organizer VARCHAR(128) NOT NULL DEFAULT '',
                    createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                    updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
                );`,
				`CREATE TABLE "EventMembers" (
                    id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
                    eventId VARCHAR(36) NOT NULL,
                    name VARCHAR(128) NOT NULL,
                    paid INTEGER NOT NULL DEFAULT 0,
                    waitlisted INTEGER NOT NULL DEFAULT 0,
                    position INTEGER NOT NULL DEFAULT 0,
                    createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                    updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
                );`,
				`CREATE TABLE "Users" (
                    id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
                    name VARCHAR(64) NOT NULL,
                    passwordHash VARCHAR(128) NOT NULL DEFAULT '',
                    firstName VARCHAR(64) NOT NULL DEFAULT '',
                    lastName VARCHAR(64) NOT NULL DEFAULT '',
                    createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                    updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
                );`,
				`CREATE UNIQUE INDEX idx_member_identity ON EventMembers (eventId ASC, name ASC);`,
				`CREATE INDEX idx_member_order ON EventMembers (eventId ASC, waitlisted ASC, position ASC);`,
				`CREATE INDEX idx_event_schedule ON Events (scheduledAt ASC);`,
			},
		},
	}
}
