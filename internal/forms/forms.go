// Package forms validates registration and profile-update input, returning
// field-level error messages. Validation never writes anything: a user is
// only created after a form comes back clean.
package forms

import (
	"context"
	"regexp"
	"strings"
	"unicode"
)

const (
	maxNameLen     = 150
	minPasswordLen = 8
)

var usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)

// Errors maps a field name to its validation messages.
type Errors map[string][]string

func (e Errors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

// HasErrors reports whether any field failed validation.
func (e Errors) HasErrors() bool { return len(e) > 0 }

// UniquenessStore answers the two uniqueness probes forms need.
type UniquenessStore interface {
	// EmailTaken reports whether a user other than excludeUserID has this
	// email. Comparison is against the stored value, case-sensitive.
	EmailTaken(ctx context.Context, email, excludeUserID string) (bool, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
}

// RegisterForm validates a registration submission.
type RegisterForm struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Password1 string
	Password2 string
}

func (f *RegisterForm) Validate(ctx context.Context, store UniquenessStore) (Errors, error) {
	errs := Errors{}

	switch {
	case f.Username == "":
		errs.add("username", "This field is required.")
	case len(f.Username) > maxNameLen:
		errs.add("username", "Ensure this value has at most 150 characters.")
	case !usernameRe.MatchString(f.Username):
		errs.add("username", "Enter a valid username. Letters, digits and @/./+/-/_ only.")
	default:
		taken, err := store.UsernameTaken(ctx, f.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			errs.add("username", "A user with that username already exists.")
		}
	}

	if err := validateEmail(ctx, store, f.Email, "", errs); err != nil {
		return nil, err
	}

	if len(f.Password1) < minPasswordLen {
		errs.add("password2", "This password is too short. It must contain at least 8 characters.")
	} else if isEntirelyNumeric(f.Password1) {
		errs.add("password2", "This password is entirely numeric.")
	}
	if f.Password1 != f.Password2 {
		errs.add("password2", "The two password fields didn't match.")
	}

	return errs, nil
}

// UserUpdateForm validates the profile page's identity fields. UserID is the
// instance being edited: its own current email never counts as taken.
type UserUpdateForm struct {
	UserID    string
	FirstName string
	LastName  string
	Email     string
}

func (f *UserUpdateForm) Validate(ctx context.Context, store UniquenessStore) (Errors, error) {
	errs := Errors{}
	if len(f.FirstName) > maxNameLen {
		errs.add("first_name", "Ensure this value has at most 150 characters.")
	}
	if len(f.LastName) > maxNameLen {
		errs.add("last_name", "Ensure this value has at most 150 characters.")
	}
	if err := validateEmail(ctx, store, f.Email, f.UserID, errs); err != nil {
		return nil, err
	}
	return errs, nil
}

func validateEmail(ctx context.Context, store UniquenessStore, email, excludeUserID string, errs Errors) error {
	switch {
	case email == "":
		errs.add("email", "This field is required.")
		return nil
	case !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@"):
		errs.add("email", "Enter a valid email address.")
		return nil
	}
	taken, err := store.EmailTaken(ctx, email, excludeUserID)
	if err != nil {
		return err
	}
	if taken {
		errs.add("email", "A user with that email already exists.")
	}
	return nil
}

func isEntirelyNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
