package models

import (
	"time"
	"unicode"
	"unicode/utf8"
)

// User represents a row in the PostgreSQL users table.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Password  string    `json:"-"` // never serialize
	IsStaff   bool      `json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`

	// Profile is the user's one-to-one profile, populated on joined reads.
	Profile *Profile `json:"profile,omitempty"`
}

// Profile is the per-user metadata record. Every user gets exactly one,
// created in the same transaction as the user row.
type Profile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"created_at"`

	// Owner fields, populated on joined reads.
	Username  string `json:"-"`
	FirstName string `json:"-"`
	LastName  string `json:"-"`
}

// AvatarInitial returns the single uppercase character shown in the user's
// avatar: the first letter of the first name, or of the username when the
// first name is empty. Usernames are validated non-empty at registration.
func AvatarInitial(firstName, username string) string {
	s := firstName
	if s == "" {
		s = username
	}
	r, _ := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r))
}

// AvatarInitial derives the owner's avatar letter from the joined owner fields.
func (p *Profile) AvatarInitial() string {
	return AvatarInitial(p.FirstName, p.Username)
}

// RegisterRequest is the body for POST /register/.
type RegisterRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

// LoginRequest is the body for POST /login/ and POST /api/token/.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ProfileUpdateRequest is the body for POST /profile/.
type ProfileUpdateRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Bio       string `json:"bio"`
}

// BioRequest is the writable part of a profile on the REST API. The avatar
// initial is derived, so bio is the only settable field.
type BioRequest struct {
	Bio string `json:"bio"`
}
