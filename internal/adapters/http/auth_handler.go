package http

import (
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/labstack/echo/v4"

	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

// SessionCookie describes the cookie that carries the access token.
type SessionCookie struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

func (sc SessionCookie) set(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     sc.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sc.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   sc.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (sc SessionCookie) clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sc.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sc.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// AuthHandler handles sign-up, sign-in and the confirmation callback
type AuthHandler struct {
	authService ports.AuthService
	cookie      SessionCookie
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService ports.AuthService, cookie SessionCookie, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
		logger:      logger,
	}
}

// SignUp godoc
// @Summary Create an account
// @Description Creates an unconfirmed account and sends a confirmation link
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.SignUpRequest true "Credentials"
// @Success 201 {object} MessageResponse
// @Failure 400 {object} ports.ErrorResponse
// @Failure 409 {object} ports.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req ports.SignUpRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if _, err := h.authService.SignUp(c.Request().Context(), req); err != nil {
		h.logger.Warnw("Sign-up failed", "error", err, "email", req.Email)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, MessageResponse{Message: "Check your email for the confirmation link"})
}

// SignIn godoc
// @Summary Sign in
// @Description Returns a session and sets the session cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.SignInRequest true "Credentials"
// @Success 200 {object} ports.Session
// @Failure 401 {object} ports.ErrorResponse
// @Router /auth/signin [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req ports.SignInRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.authService.SignIn(c.Request().Context(), req)
	if err != nil {
		return toHTTPError(err)
	}

	h.cookie.set(c, session.AccessToken)
	return c.JSON(http.StatusOK, session)
}

// SignOut godoc
// @Summary Sign out
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Security BearerAuth
// @Router /auth/signout [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	if err := h.authService.SignOut(c.Request().Context(), userID); err != nil {
		return toHTTPError(err)
	}

	h.cookie.clear(c)
	return c.JSON(http.StatusOK, MessageResponse{Message: "Signed out"})
}

// Callback exchanges the confirmation code for a session and redirects to
// the next parameter.
func (h *AuthHandler) Callback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return c.Redirect(http.StatusSeeOther, "/auth/auth-code-error")
	}

	session, err := h.authService.ExchangeCode(c.Request().Context(), code)
	if err != nil {
		h.logger.Warnw("Code exchange failed", "error", err, "ip", c.RealIP())
		return c.Redirect(http.StatusSeeOther, "/auth/auth-code-error")
	}

	h.cookie.set(c, session.AccessToken)
	return c.Redirect(http.StatusSeeOther, safeNext(c.QueryParam("next")))
}

// safeNext keeps redirects on this site. Browsers read a backslash as a
// slash and drop tabs and newlines, so those are refused as well.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	if strings.Contains(next, `\`) || strings.ContainsFunc(next, unicode.IsControl) {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}
