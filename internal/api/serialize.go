package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ayush/accounts-portal/internal/models"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// serializeProfile maps a profile to its API shape. Bio is the only field a
// caller can write; the avatar initial is derived from the owner's name.
func serializeProfile(p *models.Profile) map[string]any {
	return map[string]any{
		"id":             p.ID,
		"user":           p.UserID,
		"bio":            p.Bio,
		"avatar_initial": p.AvatarInitial(),
		"user_info": map[string]any{
			"username":   p.Username,
			"first_name": p.FirstName,
			"last_name":  p.LastName,
		},
	}
}

// serializeUser maps a user to its API shape. The email field is visible to
// elevated (staff) requesters only; everyone else gets the same object
// without it.
func serializeUser(u *models.User, elevated bool) map[string]any {
	out := map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
	}
	if elevated {
		out["email"] = u.Email
	}
	if u.Profile != nil {
		out["profile"] = map[string]any{
			"id":             u.Profile.ID,
			"bio":            u.Profile.Bio,
			"avatar_initial": models.AvatarInitial(u.FirstName, u.Username),
		}
	}
	return out
}

// envelope is the paginated list response body.
func envelope(count int, results []map[string]any) map[string]any {
	if results == nil {
		results = []map[string]any{}
	}
	return map[string]any{"count": count, "results": results}
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// pagination reads page/page_size query params into LIMIT/OFFSET terms.
func pagination(r *http.Request) (limit, offset int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return size, (page - 1) * size
}
