package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ayush/accounts-portal/internal/middleware"
	"github.com/ayush/accounts-portal/internal/models"
	"github.com/ayush/accounts-portal/internal/store"
)

// UserStore defines the interface for user reads.
type UserStore interface {
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, int, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Users holds the read-only /api/users/ handlers.
type Users struct {
	store UserStore
}

func NewUsers(store UserStore) *Users {
	return &Users{store: store}
}

// List returns one page of users with nested profiles. Staff requesters also
// see each user's email.
func (h *Users) List(w http.ResponseWriter, r *http.Request) {
	elevated := middleware.UserFrom(r.Context()).IsStaff

	limit, offset := pagination(r)
	users, count, err := h.store.ListUsers(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("list users")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	results := make([]map[string]any, 0, len(users))
	for i := range users {
		results = append(results, serializeUser(&users[i], elevated))
	}
	writeJSON(w, http.StatusOK, envelope(count, results))
}

// Get returns a single user with nested profile.
func (h *Users) Get(w http.ResponseWriter, r *http.Request) {
	elevated := middleware.UserFrom(r.Context()).IsStaff

	id := chi.URLParam(r, "id")
	user, err := h.store.GetUserByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", id).Msg("load user")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, serializeUser(user, elevated))
}
