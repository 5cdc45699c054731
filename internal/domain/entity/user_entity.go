package entity

import (
	"time"
)

// User is the aggregate root for the user domain.
// OTPHash and OTPExpiresAt hold the live login challenge; they are always
// set together and cleared together, so a user has at most one outstanding
// challenge at a time.
type User struct {
	ID           string
	Firstname    string
	Lastname     string
	Username     string // unique, system-generated
	Email        string // unique
	OTPHash      *string
	OTPExpiresAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName is the name shown to other participants in presence and chat events.
func (u *User) DisplayName() string {
	return u.Firstname + " " + u.Lastname
}

// HasLiveChallenge reports whether an OTP challenge is outstanding (expiry is
// checked separately at verify time).
func (u *User) HasLiveChallenge() bool {
	return u.OTPHash != nil && u.OTPExpiresAt != nil
}
