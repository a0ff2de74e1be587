package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/onokeee/mindmap/interfaces/http/rest/dto"
	"github.com/onokeee/mindmap/interfaces/http/rest/middleware"
	"github.com/onokeee/mindmap/pkg/auth"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
)

// AuthHandler handles login, logout and session checks
type AuthHandler struct {
	base
	users        *auth.UserDirectory
	tokens       *auth.JWTService
	secureCookie bool
}

// NewAuthHandler creates a new auth handler. secureCookie marks the auth
// cookie Secure, for deployments behind HTTPS.
func NewAuthHandler(
	users *auth.UserDirectory,
	tokens *auth.JWTService,
	secureCookie bool,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		base:         base{errorHandler: errorHandler, logger: logger},
		users:        users,
		tokens:       tokens,
		secureCookie: secureCookie,
	}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := dto.Decode(r, &req, false); err != nil {
		h.respondError(w, r, err)
		return
	}

	user, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Info("Login failed", zap.String("username", req.Username))
			h.respondError(w, r, pkgerrors.NewUnauthorizedError("Invalid credentials"))
			return
		}
		h.respondError(w, r, err)
		return
	}

	token, expires, err := h.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	h.logger.Info("User logged in", zap.String("userID", user.ID))
	h.respondJSON(w, http.StatusOK, dto.LoginResponse{
		Status:    "success",
		Username:  user.Username,
		Token:     token,
		ExpiresAt: expires,
	})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so logging
// out only drops the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	h.respondJSON(w, http.StatusOK, dto.StatusResponse{Status: "success"})
}

// Session handles GET /api/auth/session. It never fails; an anonymous
// caller is reported as logged out.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.ValidateToken(middleware.ExtractToken(r))
	if err != nil {
		h.respondJSON(w, http.StatusOK, dto.SessionCheckResponse{LoggedIn: false})
		return
	}
	h.respondJSON(w, http.StatusOK, dto.SessionCheckResponse{LoggedIn: true, Username: claims.Username})
}
