package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ayush/accounts-portal/internal/middleware"
	"github.com/ayush/accounts-portal/internal/models"
	"github.com/ayush/accounts-portal/internal/store"
)

// ProfileStore defines the interface for profile persistence.
type ProfileStore interface {
	ListProfiles(ctx context.Context, limit, offset int) ([]models.Profile, int, error)
	GetProfileByID(ctx context.Context, id string) (*models.Profile, error)
	CreateProfile(ctx context.Context, userID, bio string) (*models.Profile, error)
	UpdateProfileBio(ctx context.Context, id, bio string) (*models.Profile, error)
	DeleteProfile(ctx context.Context, id string) error
}

// Profiles holds the /api/profiles/ handlers.
type Profiles struct {
	store ProfileStore
}

func NewProfiles(store ProfileStore) *Profiles {
	return &Profiles{store: store}
}

// List returns one page of profiles. Any authenticated requester may read.
func (h *Profiles) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	profiles, count, err := h.store.ListProfiles(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("list profiles")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	results := make([]map[string]any, 0, len(profiles))
	for i := range profiles {
		results = append(results, serializeProfile(&profiles[i]))
	}
	writeJSON(w, http.StatusOK, envelope(count, results))
}

// Create makes a profile owned by the requester. Registration already
// created one, so this mostly answers 409.
func (h *Profiles) Create(w http.ResponseWriter, r *http.Request) {
	requester := middleware.UserFrom(r.Context())

	var req models.BioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	profile, err := h.store.CreateProfile(r.Context(), requester.ID, req.Bio)
	if errors.Is(err, store.ErrDuplicate) {
		http.Error(w, `{"error":"profile already exists"}`, http.StatusConflict)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("create profile")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, serializeProfile(profile))
}

// Get returns a single profile.
func (h *Profiles) Get(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, serializeProfile(profile))
}

// Update replaces the writable field set (bio). Owner only.
func (h *Profiles) Update(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, false)
}

// Patch updates bio when present and leaves it alone otherwise. Owner only.
func (h *Profiles) Patch(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, true)
}

func (h *Profiles) write(w http.ResponseWriter, r *http.Request, partial bool) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	if !h.requireOwner(w, r, profile) {
		return
	}

	var req struct {
		Bio *string `json:"bio"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	bio := ""
	switch {
	case req.Bio != nil:
		bio = *req.Bio
	case partial:
		bio = profile.Bio
	}

	updated, err := h.store.UpdateProfileBio(r.Context(), profile.ID, bio)
	if err != nil {
		log.Error().Err(err).Str("profile_id", profile.ID).Msg("update profile")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, serializeProfile(updated))
}

// Delete removes a profile. Owner only.
func (h *Profiles) Delete(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	if !h.requireOwner(w, r, profile) {
		return
	}

	if err := h.store.DeleteProfile(r.Context(), profile.ID); err != nil {
		log.Error().Err(err).Str("profile_id", profile.ID).Msg("delete profile")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Profiles) load(w http.ResponseWriter, r *http.Request) (*models.Profile, bool) {
	id := chi.URLParam(r, "id")
	profile, err := h.store.GetProfileByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Str("profile_id", id).Msg("load profile")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return nil, false
	}
	return profile, true
}

// requireOwner enforces the owner-or-read-only rule for mutating methods:
// ownership is exact identity equality, with no staff override.
func (h *Profiles) requireOwner(w http.ResponseWriter, r *http.Request, p *models.Profile) bool {
	requester := middleware.UserFrom(r.Context())
	if requester == nil || requester.ID != p.UserID {
		http.Error(w, `{"error":"you do not have permission to perform this action"}`, http.StatusForbidden)
		return false
	}
	return true
}
