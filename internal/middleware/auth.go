package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ayush/accounts-portal/internal/auth"
	"github.com/ayush/accounts-portal/internal/models"
)

// UserGetter loads the authenticated user record.
type UserGetter interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type userKey struct{}

// UserFrom returns the authenticated user injected by RequirePage or
// RequireAPI, or nil on unguarded routes.
func UserFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey{}).(*models.User)
	return u
}

// RequirePage guards session views: anonymous requesters are redirected to
// the login page instead of getting an error.
func RequirePage(sessions auth.Sessions, users UserGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := sessionUser(r, sessions, users)
			if user == nil {
				http.Redirect(w, r, "/login/", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
		})
	}
}

// RequireAPI guards REST endpoints. It accepts a bearer token or a session
// cookie; requests with neither are rejected before any data access.
func RequireAPI(sessions auth.Sessions, users UserGetter, jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := tokenUser(r, users, jwtSecret)
			if user == nil {
				user = sessionUser(r, sessions, users)
			}
			if user == nil {
				http.Error(w, `{"error":"authentication credentials were not provided"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
		})
	}
}

func sessionUser(r *http.Request, sessions auth.Sessions, users UserGetter) *models.User {
	cookie, err := r.Cookie(auth.SessionCookie)
	if err != nil {
		return nil
	}
	userID, err := sessions.Get(r.Context(), cookie.Value)
	if err != nil || userID == "" {
		return nil
	}
	user, err := users.GetUserByID(r.Context(), userID)
	if err != nil {
		return nil
	}
	return user
}

func tokenUser(r *http.Request, users UserGetter, jwtSecret []byte) *models.User {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return nil
	}
	userID, err := auth.UserIDFromToken(strings.TrimPrefix(h, prefix), jwtSecret)
	if err != nil {
		return nil
	}
	user, err := users.GetUserByID(r.Context(), userID)
	if err != nil {
		return nil
	}
	return user
}
