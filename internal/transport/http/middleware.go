package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
	"github.com/smlier739/copytrip-backend-sub000/internal/util"
)

const contextViewerKey = "viewer"

// TokenParser validates a bearer token. *util.JWTManager satisfies it.
type TokenParser interface {
	Parse(token string) (*util.Claims, error)
}

func RequireAuth(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if strings.TrimSpace(authHeader) == "" {
				return c.JSON(http.StatusUnauthorized, util.Error("missing authorization header"))
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return c.JSON(http.StatusUnauthorized, util.Error("invalid authorization header"))
			}
			claims, err := tokens.Parse(strings.TrimSpace(parts[1]))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, util.Error("invalid or expired token"))
			}
			c.Set(contextViewerKey, &domain.Viewer{
				UserID: claims.UserID,
				Entitlements: domain.Entitlements{
					IsAdmin:   claims.IsAdmin,
					IsPremium: claims.IsPremium,
				},
			})
			return next(c)
		}
	}
}

func CurrentViewer(c echo.Context) (*domain.Viewer, bool) {
	viewer, ok := c.Get(contextViewerKey).(*domain.Viewer)
	return viewer, ok && viewer != nil
}
