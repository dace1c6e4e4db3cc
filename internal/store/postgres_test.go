package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- helpers ----

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

const (
	userID    = "3f1e8a00-0000-4000-8000-000000000001"
	profileID = "3f1e8a00-0000-4000-8000-000000000002"
)

func userRows(now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "username", "email", "first_name", "last_name", "is_staff", "created_at",
	}).AddRow(userID, "alice", "a@example.com", "Alice", "Smith", false, now)
}

func profileRows(now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "user_id", "bio", "created_at"}).
		AddRow(profileID, userID, "", now)
}

func createParams() CreateUserParams {
	return CreateUserParams{
		Username:  "alice",
		Email:     "a@example.com",
		FirstName: "Alice",
		LastName:  "Smith",
		Password:  "hashed",
	}
}

// ---- CreateUser: the user+profile pair commits or rolls back as one ----

func TestCreateUser_CreatesProfileInSameTransaction(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("alice", "a@example.com", "Alice", "Smith", "hashed", false).
		WillReturnRows(userRows(now))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO profiles`)).
		WithArgs(userID).
		WillReturnRows(profileRows(now))
	mock.ExpectCommit()

	u, err := s.CreateUser(context.Background(), createParams())
	require.NoError(t, err)
	assert.Equal(t, userID, u.ID)
	require.NotNil(t, u.Profile)
	assert.Equal(t, profileID, u.Profile.ID)
	assert.Equal(t, userID, u.Profile.UserID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_RollsBackWhenProfileInsertFails(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("alice", "a@example.com", "Alice", "Smith", "hashed", false).
		WillReturnRows(userRows(time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO profiles`)).
		WithArgs(userID).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.CreateUser(context.Background(), createParams())
	require.Error(t, err)

	// No commit expectation: the user row must not survive the failure.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("alice", "a@example.com", "Alice", "Smith", "hashed", false).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})
	mock.ExpectRollback()

	_, err := s.CreateUser(context.Background(), createParams())
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---- reads ----

func TestGetUserByID_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users u`)).
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetUserByID(context.Background(), userID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByID_MalformedID(t *testing.T) {
	s, _ := newMockStore(t)

	// No query expectation: a non-uuid id never reaches the database.
	_, err := s.GetUserByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetProfileByID_MalformedID(t *testing.T) {
	s, _ := newMockStore(t)

	_, err := s.GetProfileByID(context.Background(), "42")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetUserByID_SurvivesDeletedProfile(t *testing.T) {
	s, mock := newMockStore(t)

	rows := pgxmock.NewRows([]string{
		"id", "username", "email", "first_name", "last_name", "password",
		"is_staff", "created_at",
		"p_id", "p_user_id", "p_bio", "p_created_at",
	}).AddRow(userID, "alice", "a@example.com", "Alice", "Smith", "hashed",
		false, time.Now(),
		nil, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users u`)).
		WithArgs(userID).
		WillReturnRows(rows)

	u, err := s.GetUserByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Nil(t, u.Profile)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---- uniqueness probes ----

func TestEmailTaken_PassesExcludeID(t *testing.T) {
	s, mock := newMockStore(t)

	// The SQL itself carries the exclusion clause; the edited user's own
	// row never counts as a conflict.
	mock.ExpectQuery(regexp.QuoteMeta(`($2 = '' OR id::text <> $2)`)).
		WithArgs("me@example.com", userID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	taken, err := s.EmailTaken(context.Background(), "me@example.com", userID)
	require.NoError(t, err)
	assert.False(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailTaken_NoExclusion(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs("taken@example.com", "").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := s.EmailTaken(context.Background(), "taken@example.com", "")
	require.NoError(t, err)
	assert.True(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---- deletes ----

func TestDeleteUser_RemovesRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users`)).
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.DeleteUser(context.Background(), userID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUser_UnknownID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users`)).
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, s.DeleteUser(context.Background(), userID), ErrNotFound)
}

// ---- error mapping ----

func TestMapErr(t *testing.T) {
	assert.ErrorIs(t, mapErr("get", pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, mapErr("insert", &pgconn.PgError{Code: "23505"}), ErrDuplicate)

	plain := errors.New("connection refused")
	got := mapErr("query", plain)
	assert.NotErrorIs(t, got, ErrNotFound)
	assert.NotErrorIs(t, got, ErrDuplicate)
	assert.ErrorIs(t, got, plain)
}
