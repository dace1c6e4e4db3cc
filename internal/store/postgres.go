package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ayush/accounts-portal/internal/models"
)

var (
	// ErrNotFound is returned when no row matches the given id.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("already exists")
)

// DB is the query interface the store runs on. *pgxpool.Pool satisfies it;
// tests substitute a mock.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore handles user and profile CRUD against PostgreSQL.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateUserParams are the validated inputs for CreateUser. Password must
// already be hashed.
type CreateUserParams struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
	IsStaff   bool
}

// CreateUser inserts the user row and its profile row in a single
// transaction: either both exist afterwards or neither does.
func (s *PostgresStore) CreateUser(ctx context.Context, p CreateUserParams) (*models.User, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var u models.User
	err = tx.QueryRow(ctx,
		`INSERT INTO users (username, email, first_name, last_name, password, is_staff)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, username, email, first_name, last_name, is_staff, created_at`,
		p.Username, p.Email, p.FirstName, p.LastName, p.Password, p.IsStaff,
	).Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.IsStaff, &u.CreatedAt)
	if err != nil {
		return nil, mapErr("create user", err)
	}

	var prof models.Profile
	err = tx.QueryRow(ctx,
		`INSERT INTO profiles (user_id) VALUES ($1)
		 RETURNING id, user_id, bio, created_at`,
		u.ID,
	).Scan(&prof.ID, &prof.UserID, &prof.Bio, &prof.CreatedAt)
	if err != nil {
		return nil, mapErr("create profile", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	u.Profile = &prof
	return &u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if !validUUID(id) {
		return nil, ErrNotFound
	}
	return s.getUser(ctx, `u.id = $1`, id)
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, `u.username = $1`, username)
}

func (s *PostgresStore) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var u models.User
	var prof nullableProfile
	err := s.db.QueryRow(ctx,
		`SELECT u.id, u.username, u.email, u.first_name, u.last_name, u.password,
		        u.is_staff, u.created_at,
		        p.id, p.user_id, p.bio, p.created_at
		 FROM users u
		 LEFT JOIN profiles p ON p.user_id = u.id
		 WHERE `+where, arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Password,
		&u.IsStaff, &u.CreatedAt,
		&prof.id, &prof.userID, &prof.bio, &prof.createdAt)
	if err != nil {
		return nil, mapErr("get user", err)
	}
	u.Profile = prof.attach(&u)
	return &u, nil
}

// nullableProfile absorbs the LEFT JOIN columns: a user whose profile was
// deleted still loads.
type nullableProfile struct {
	id        *string
	userID    *string
	bio       *string
	createdAt *time.Time
}

func (n *nullableProfile) attach(u *models.User) *models.Profile {
	if n.id == nil {
		return nil
	}
	return &models.Profile{
		ID:        *n.id,
		UserID:    *n.userID,
		Bio:       *n.bio,
		CreatedAt: *n.createdAt,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// ListUsers returns one page of users with their profiles, plus the total
// user count for the pagination envelope.
func (s *PostgresStore) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	rows, err := s.db.Query(ctx,
		`SELECT u.id, u.username, u.email, u.first_name, u.last_name,
		        u.is_staff, u.created_at,
		        p.id, p.user_id, p.bio, p.created_at
		 FROM users u
		 LEFT JOIN profiles p ON p.user_id = u.id
		 ORDER BY u.created_at, u.id
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		var prof nullableProfile
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
			&u.IsStaff, &u.CreatedAt,
			&prof.id, &prof.userID, &prof.bio, &prof.createdAt); err != nil {
			return nil, 0, fmt.Errorf("list users: %w", err)
		}
		u.Profile = prof.attach(&u)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, count, nil
}

// UpdateUser sets the editable identity fields (first/last name, email).
func (s *PostgresStore) UpdateUser(ctx context.Context, id, firstName, lastName, email string) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE users SET first_name = $2, last_name = $3, email = $4 WHERE id = $1`,
		id, firstName, lastName, email)
	if err != nil {
		return mapErr("update user", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes the user row; the profile row goes with it via the
// ON DELETE CASCADE foreign key, so the pair is removed atomically.
func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// EmailTaken reports whether another user already has this email, exactly as
// stored. excludeUserID skips the user being edited; pass "" for none.
func (s *PostgresStore) EmailTaken(ctx context.Context, email, excludeUserID string) (bool, error) {
	var taken bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND ($2 = '' OR id::text <> $2))`,
		email, excludeUserID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("email taken: %w", err)
	}
	return taken, nil
}

// UsernameTaken reports whether the username is already registered.
func (s *PostgresStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var taken bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("username taken: %w", err)
	}
	return taken, nil
}

const profileSelect = `
	SELECT p.id, p.user_id, p.bio, p.created_at,
	       u.username, u.first_name, u.last_name
	FROM profiles p
	JOIN users u ON u.id = p.user_id`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.UserID, &p.Bio, &p.CreatedAt,
		&p.Username, &p.FirstName, &p.LastName)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) GetProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	if !validUUID(id) {
		return nil, ErrNotFound
	}
	p, err := scanProfile(s.db.QueryRow(ctx, profileSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, mapErr("get profile", err)
	}
	return p, nil
}

func (s *PostgresStore) GetProfileByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx, profileSelect+` WHERE p.user_id = $1`, userID))
	if err != nil {
		return nil, mapErr("get profile", err)
	}
	return p, nil
}

// ListProfiles returns one page of profiles joined with owner fields, plus
// the total profile count.
func (s *PostgresStore) ListProfiles(ctx context.Context, limit, offset int) ([]models.Profile, int, error) {
	rows, err := s.db.Query(ctx,
		profileSelect+` ORDER BY p.created_at, p.id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list profiles: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}

	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}
	return profiles, count, nil
}

// CreateProfile inserts a profile for the given user. The registration path
// already creates one, so this only succeeds for users whose profile was
// deleted; a live profile surfaces as ErrDuplicate.
func (s *PostgresStore) CreateProfile(ctx context.Context, userID, bio string) (*models.Profile, error) {
	var id string
	err := s.db.QueryRow(ctx,
		`INSERT INTO profiles (user_id, bio) VALUES ($1, $2) RETURNING id`,
		userID, bio,
	).Scan(&id)
	if err != nil {
		return nil, mapErr("create profile", err)
	}
	return s.GetProfileByID(ctx, id)
}

// UpdateProfileBio sets the bio, the only writable profile field.
func (s *PostgresStore) UpdateProfileBio(ctx context.Context, id, bio string) (*models.Profile, error) {
	ct, err := s.db.Exec(ctx, `UPDATE profiles SET bio = $2 WHERE id = $1`, id, bio)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetProfileByID(ctx, id)
}

func (s *PostgresStore) DeleteProfile(ctx context.Context, id string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// validUUID screens ids coming straight from URL params: a malformed id can
// never match a row, so it maps to ErrNotFound instead of a query error.
func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// mapErr converts pgx errors to the store's sentinels.
func mapErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return fmt.Errorf("%s: %w", op, err)
}
