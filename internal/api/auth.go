package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"storefront-service/internal/entity"
	"storefront-service/internal/service"
)

const currentUserKey = "currentUser"

type UserLoader interface {
	GetUser(ctx context.Context, id string) (*entity.User, error)
}

// JWT validates the bearer token and leaves the parsed token in c.Get("user").
func JWT(secret string) echo.MiddlewareFunc {
	return jwtMiddleware(secret, "header:Authorization:Bearer ")
}

// QueryJWT reads the token from ?token= for clients that cannot set headers,
// such as browser WebSockets.
func QueryJWT(secret string) echo.MiddlewareFunc {
	return jwtMiddleware(secret, "query:token")
}

func jwtMiddleware(secret, lookup string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup:   lookup,
		SigningKey:    []byte(secret),
		SigningMethod: jwt.SigningMethodHS256.Name,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(service.JwtCustomClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": entity.ErrUnauthorized.Error()})
		},
	})
}

// LoadUser resolves the token subject to an active user. It must run after JWT.
func LoadUser(users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return respondError(c, entity.ErrUnauthorized)
			}
			claims, ok := token.Claims.(*service.JwtCustomClaims)
			if !ok || claims.Subject == "" {
				return respondError(c, entity.ErrUnauthorized)
			}

			user, err := users.GetUser(c.Request().Context(), claims.Subject)
			if errors.Is(err, entity.ErrNotFound) {
				// the account behind a still valid token is gone
				return respondError(c, entity.ErrUnauthorized)
			}
			if err != nil {
				return respondError(c, err)
			}
			c.Set(currentUserKey, user)
			return next(c)
		}
	}
}

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := currentUser(c)
		if user == nil || user.Role != entity.RoleAdmin {
			return respondError(c, entity.ErrForbidden)
		}
		return next(c)
	}
}

func currentUser(c echo.Context) *entity.User {
	user, _ := c.Get(currentUserKey).(*entity.User)
	return user
}
