package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/middleware"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/services/auth"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register creates a new user account
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || len(req.Password) < 8 {
		h.respondError(w, http.StatusBadRequest, "email and a password of at least 8 characters are required")
		return
	}

	user, err := h.services.Auth.Register(auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     strings.TrimSpace(req.Name),
	})
	if err != nil {
		if err == auth.ErrEmailExists {
			h.respondError(w, http.StatusConflict, "email already registered")
			return
		}
		h.log.Error().Err(err).Msg("registration failed")
		h.respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	h.respond(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Login authenticates a user and returns a session token
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.services.Auth.Login(auth.LoginInput{
		Email:    strings.TrimSpace(strings.ToLower(req.Email)),
		Password: req.Password,
	})
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    result.Token,
		Path:     "/",
		Expires:  result.Expires,
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	h.respond(w, http.StatusOK, loginResponse{Token: result.Token, Expires: result.Expires})
}

// Logout invalidates the user's sessions
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.services.Auth.Logout(user.ID); err != nil {
		h.log.Error().Err(err).Msg("logout failed")
		h.respondError(w, http.StatusInternalServerError, "logout failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	h.respond(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me returns the authenticated user
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.respond(w, http.StatusOK, user)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword rotates the user's password and invalidates sessions
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changePasswordRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.NewPassword) < 8 {
		h.respondError(w, http.StatusBadRequest, "new password must be at least 8 characters")
		return
	}

	if err := h.services.Auth.ChangePassword(user.ID, req.OldPassword, req.NewPassword); err != nil {
		if err == auth.ErrInvalidCredentials {
			h.respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.Error().Err(err).Msg("password change failed")
		h.respondError(w, http.StatusInternalServerError, "password change failed")
		return
	}

	h.respond(w, http.StatusOK, map[string]string{"status": "password changed"})
}
