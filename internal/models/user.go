package models

import (
	"fmt"
	"strings"

	"github.com/elithrar/simple-scrypt"
)

// User defines an account that can log into QuickCourt. The full name doubles as the
// participant identity on event rosters
type User struct {
	// Internal user ID
	ID uint
	// The user name used to log-in
	Name string
	// The hashed password for authentication
	PasswordHash string
	// First name of the player
	FirstName string
	// Last name of the player
	LastName string
}

// DisplayName returns the name this user appears under on rosters and waitlists
// (first + last name)
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// SetPassword sets a new password creating a password hash from the incoming password
// and storing it in the user's PasswordHash property
func (u *User) SetPassword(pass string) error {
	hash, err := scrypt.GenerateFromPassword([]byte(pass), scrypt.DefaultParams)
	if err != nil {
		return fmt.Errorf("SetPassword: Error during password hashing: %v", err)
	}
	// The library already uses a string encoding here - so there is no need to encode further
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword checks if the given password corresponds to the hash stored in the user
// struct. It returns an error if the password does not match
func (u *User) CheckPassword(pass string) error {
	return scrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pass))
}
