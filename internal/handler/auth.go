package handler

import (
	"net/http"
	"time"

	"github.com/mmynk/debtwiser/internal/middleware"
	"github.com/mmynk/debtwiser/internal/models"
)

// DefaultCookieName holds the session token when no name is configured.
const DefaultCookieName = "access_token"

type cookieConfig struct {
	name   string
	secure bool
	maxAge time.Duration
}

func (c cookieConfig) set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c cookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionBody struct {
	User  *models.User `json:"user"`
	Token string       `json:"token,omitempty"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	session, err := h.auth.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.cookie.set(w, session.Token)
	writeJSON(w, http.StatusCreated, sessionBody{User: session.User})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.cookie.set(w, session.Token)
	writeJSON(w, http.StatusOK, sessionBody{User: session.User, Token: session.Token})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	h.cookie.clear(w)
	writeJSON(w, http.StatusOK, messageBody{Message: "logged out"})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.CurrentUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
