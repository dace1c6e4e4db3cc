package forms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore answers uniqueness probes from fixed sets.
type fakeStore struct {
	emails    map[string]string // email -> owning user id
	usernames map[string]bool
}

func (f *fakeStore) EmailTaken(_ context.Context, email, excludeUserID string) (bool, error) {
	owner, ok := f.emails[email]
	if !ok {
		return false, nil
	}
	return excludeUserID == "" || owner != excludeUserID, nil
}

func (f *fakeStore) UsernameTaken(_ context.Context, username string) (bool, error) {
	return f.usernames[username], nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		emails:    map[string]string{"taken@example.com": "u-1"},
		usernames: map[string]bool{"existing": true},
	}
}

func validRegisterForm() RegisterForm {
	return RegisterForm{
		Username:  "newuser",
		FirstName: "New",
		LastName:  "User",
		Email:     "new@example.com",
		Password1: "StrongPass123!",
		Password2: "StrongPass123!",
	}
}

func TestRegisterForm_Valid(t *testing.T) {
	form := validRegisterForm()
	errs, err := form.Validate(context.Background(), newFakeStore())
	require.NoError(t, err)
	assert.False(t, errs.HasErrors())
}

func TestRegisterForm_DuplicateEmail(t *testing.T) {
	form := validRegisterForm()
	form.Email = "taken@example.com"
	errs, err := form.Validate(context.Background(), newFakeStore())
	require.NoError(t, err)
	require.Contains(t, errs, "email")
	assert.Len(t, errs["email"], 1)
}

func TestRegisterForm_DuplicateUsername(t *testing.T) {
	form := validRegisterForm()
	form.Username = "existing"
	errs, err := form.Validate(context.Background(), newFakeStore())
	require.NoError(t, err)
	assert.Contains(t, errs, "username")
}

func TestRegisterForm_UsernameFormat(t *testing.T) {
	form := validRegisterForm()
	form.Username = "bad name!"
	errs, err := form.Validate(context.Background(), newFakeStore())
	require.NoError(t, err)
	assert.Contains(t, errs, "username")
}

func TestRegisterForm_MissingUsername(t *testing.T) {
	form := validRegisterForm()
	form.Username = ""
	errs, err := form.Validate(context.Background(), newFakeStore())
	require.NoError(t, err)
	assert.Contains(t, errs, "username")
}

func TestRegisterForm_PasswordMismatch(t *testing.T) {
	form := validRegisterForm()
	form.Password2 = "Different123!"
	errs, err := form.Validate(context.Background(), newFakeStore())
	require.NoError(t, err)
	assert.Contains(t, errs, "password2")
}

func TestRegisterForm_PasswordTooShort(t *testing.T) {
	form := validRegisterForm()
	form.Password1 = "short1!"
	form.Password2 = "short1!"
	errs, err := form.Validate(context.Background(), newFakeStore())
	require.NoError(t, err)
	assert.Contains(t, errs, "password2")
}

func TestRegisterForm_PasswordEntirelyNumeric(t *testing.T) {
	form := validRegisterForm()
	form.Password1 = "1234567890"
	form.Password2 = "1234567890"
	errs, err := form.Validate(context.Background(), newFakeStore())
	require.NoError(t, err)
	assert.Contains(t, errs, "password2")
}

func TestRegisterForm_BadEmail(t *testing.T) {
	form := validRegisterForm()
	form.Email = "not-an-email"
	errs, err := form.Validate(context.Background(), newFakeStore())
	require.NoError(t, err)
	assert.Contains(t, errs, "email")
}

func TestUserUpdateForm_OwnEmailAllowed(t *testing.T) {
	form := UserUpdateForm{
		UserID:    "u-1",
		FirstName: "Test",
		LastName:  "User",
		Email:     "taken@example.com", // owned by u-1 in the fake
	}
	errs, err := form.Validate(context.Background(), newFakeStore())
	require.NoError(t, err)
	assert.False(t, errs.HasErrors())
}

func TestUserUpdateForm_ForeignEmailRejected(t *testing.T) {
	form := UserUpdateForm{
		UserID:    "u-2",
		FirstName: "Test",
		LastName:  "User",
		Email:     "taken@example.com", // owned by u-1
	}
	errs, err := form.Validate(context.Background(), newFakeStore())
	require.NoError(t, err)
	assert.Contains(t, errs, "email")
}
