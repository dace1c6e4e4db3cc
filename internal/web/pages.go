package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ayush/accounts-portal/internal/forms"
	"github.com/ayush/accounts-portal/internal/middleware"
	"github.com/ayush/accounts-portal/internal/models"
)

// Store defines what the session views need from persistence.
type Store interface {
	UpdateUser(ctx context.Context, id, firstName, lastName, email string) error
	GetProfileByUserID(ctx context.Context, userID string) (*models.Profile, error)
	UpdateProfileBio(ctx context.Context, id, bio string) (*models.Profile, error)
	forms.UniquenessStore
}

// Handler holds the session-based page handlers.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Home serves the landing page.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"page": "home"})
}

// About serves the about page.
func (h *Handler) About(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"page": "about"})
}

// Help serves the help page.
func (h *Handler) Help(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"page": "help"})
}

// Dashboard shows the signed-in user's overview. Guarded by RequirePage.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"page":           "dashboard",
		"username":       user.Username,
		"first_name":     user.FirstName,
		"last_name":      user.LastName,
		"avatar_initial": models.AvatarInitial(user.FirstName, user.Username),
	})
}

// ProfilePage shows the signed-in user's identity fields and bio.
func (h *Handler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	profile, err := h.store.GetProfileByUserID(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("load profile")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page":           "profile",
		"username":       user.Username,
		"first_name":     user.FirstName,
		"last_name":      user.LastName,
		"email":          user.Email,
		"bio":            profile.Bio,
		"avatar_initial": models.AvatarInitial(user.FirstName, user.Username),
	})
}

// ProfileUpdate handles the profile form: identity fields plus bio. A valid
// submission updates both and redirects back to the profile page.
func (h *Handler) ProfileUpdate(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	var req models.ProfileUpdateRequest
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, `{"error":"invalid form data"}`, http.StatusBadRequest)
			return
		}
		req = models.ProfileUpdateRequest{
			FirstName: r.PostFormValue("first_name"),
			LastName:  r.PostFormValue("last_name"),
			Email:     r.PostFormValue("email"),
			Bio:       r.PostFormValue("bio"),
		}
	}

	form := forms.UserUpdateForm{
		UserID:    user.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	}
	errs, err := form.Validate(r.Context(), h.store)
	if err != nil {
		log.Error().Err(err).Msg("profile validation")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if errs.HasErrors() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	if err := h.store.UpdateUser(r.Context(), user.ID, req.FirstName, req.LastName, req.Email); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("update user")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	profile, err := h.store.GetProfileByUserID(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("load profile")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	if _, err := h.store.UpdateProfileBio(r.Context(), profile.ID, req.Bio); err != nil {
		log.Error().Err(err).Str("profile_id", profile.ID).Msg("update bio")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/profile/", http.StatusFound)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
