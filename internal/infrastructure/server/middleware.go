package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	httpHandlers "github.com/eyetracktask/eyetrack/internal/adapters/http"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

// sessionToken reads the access token from the Authorization header, falling
// back to the session cookie.
func sessionToken(c echo.Context, cookieName string) string {
	if authHeader := c.Request().Header.Get(echo.HeaderAuthorization); authHeader != "" {
		if token := strings.TrimPrefix(authHeader, "Bearer "); token != authHeader {
			return token
		}
		return ""
	}

	cookie, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// authenticate validates the session token and stores the user in the
// context. It reports whether a valid session was found.
func (s *Server) authenticate(c echo.Context, authService ports.AuthService) bool {
	token := sessionToken(c, s.config.JWT.CookieName)
	if token == "" {
		return false
	}

	claims, err := authService.ValidateToken(token)
	if err != nil {
		s.logger.LogSecurityEvent("invalid_token", "", c.RealIP(), map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}

	c.Set(httpHandlers.ContextUserKey, claims.UserID)
	c.Set(httpHandlers.ContextEmailKey, claims.Email)
	return true
}

// authMiddleware rejects API requests without a valid session
func (s *Server) authMiddleware(authService ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !s.authenticate(c, authService) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
			}
			return next(c)
		}
	}
}

// isPublicPage reports whether path is reachable without a session.
func isPublicPage(path string) bool {
	return path == "/login" || strings.HasPrefix(path, "/auth/")
}

// pageMiddleware redirects browsers: signed-in users away from the public
// pages, anonymous users to /login from everything else.
func (s *Server) pageMiddleware(authService ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			signedIn := s.authenticate(c, authService)
			public := isPublicPage(c.Request().URL.Path)

			switch {
			case signedIn && public:
				return c.Redirect(http.StatusSeeOther, "/")
			case !signedIn && !public:
				return c.Redirect(http.StatusSeeOther, "/login")
			}
			return next(c)
		}
	}
}
