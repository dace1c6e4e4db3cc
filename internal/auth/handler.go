package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/accounts-portal/internal/forms"
	"github.com/ayush/accounts-portal/internal/models"
	"github.com/ayush/accounts-portal/internal/store"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, p store.CreateUserParams) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	forms.UniquenessStore
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users     UserStore
	sessions  Sessions
	jwtSecret []byte
}

func NewHandler(users UserStore, sessions Sessions, jwtSecret []byte) *Handler {
	return &Handler{users: users, sessions: sessions, jwtSecret: jwtSecret}
}

// RegisterPage serves the registration page shell.
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"page": "register"})
}

// Register validates the submission, creates the user (profile included,
// same transaction), logs the new user in and redirects to the dashboard.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeBody(w, r, &req, func() {
		req = models.RegisterRequest{
			Username:  r.PostFormValue("username"),
			FirstName: r.PostFormValue("first_name"),
			LastName:  r.PostFormValue("last_name"),
			Email:     r.PostFormValue("email"),
			Password1: r.PostFormValue("password1"),
			Password2: r.PostFormValue("password2"),
		}
	}) {
		return
	}

	form := forms.RegisterForm{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password1: req.Password1,
		Password2: req.Password2,
	}
	errs, err := form.Validate(r.Context(), h.users)
	if err != nil {
		log.Error().Err(err).Msg("register validation")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if errs.HasErrors() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password1), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	user, err := h.users.CreateUser(r.Context(), store.CreateUserParams{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  string(hashed),
	})
	if errors.Is(err, store.ErrDuplicate) {
		// A concurrent registration slipped past the form's uniqueness
		// probe; the unique index caught it.
		http.Error(w, `{"error":"user already exists"}`, http.StatusConflict)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("create user")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	// Registration logs the new user straight in.
	if err := h.startSession(w, r, user.ID); err != nil {
		http.Error(w, `{"error":"session creation failed"}`, http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/dashboard/", http.StatusFound)
}

// LoginPage serves the login page shell.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"page": "login"})
}

// Login authenticates a user, creates a session and redirects to the
// dashboard. Bad credentials leave the requester anonymous.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeBody(w, r, &req, func() {
		req = models.LoginRequest{
			Username: r.PostFormValue("username"),
			Password: r.PostFormValue("password"),
		}
	}) {
		return
	}

	user, ok := h.checkCredentials(r.Context(), req.Username, req.Password)
	if !ok {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	if err := h.startSession(w, r, user.ID); err != nil {
		http.Error(w, `{"error":"session creation failed"}`, http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/dashboard/", http.StatusFound)
}

// Logout destroys the current session, authenticated or not.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookie)
	if err == nil {
		h.sessions.Delete(r.Context(), cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

// Token exchanges credentials for an API bearer token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	user, ok := h.checkCredentials(r.Context(), req.Username, req.Password)
	if !ok {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	token, err := GenerateToken(user.ID, h.jwtSecret, TokenTTL)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) checkCredentials(ctx context.Context, username, password string) (*models.User, bool) {
	user, err := h.users.GetUserByUsername(ctx, username)
	if err != nil || user == nil {
		return nil, false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, false
	}
	return user, true
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, userID string) error {
	sid, err := h.sessions.Create(r.Context(), userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionTTL / time.Second),
	})
	return nil
}

// decodeBody fills v from a JSON body, or runs fromForm for a regular form
// post. Returns false after writing the error response.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, fromForm func()) bool {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		if err := json.NewDecoder(r.Body).Decode(v); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return false
		}
		return true
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, `{"error":"invalid form data"}`, http.StatusBadRequest)
		return false
	}
	fromForm()
	return true
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
