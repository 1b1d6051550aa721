package middleware

import (
	"context"
	"strings"

	"cardanocart/internal/apperr"
	"cardanocart/internal/models"
	"cardanocart/internal/policy"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Keys under which the authenticated caller is stored in fiber Locals.
const (
	LocalUserID   = "user_id"
	LocalUsername = "username"
	LocalRole     = "role"
)

// Authenticator resolves an access token to its stored user.
// *services.AuthService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, tokenString string) (*models.User, error)
}

// AuthRequired is a Fiber middleware to check for a valid JWT token. The
// caller's identity and role are taken from the stored user, not from the
// token claims.
func AuthRequired(authenticator Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return err
		}
		if tokenString == "" {
			return apperr.New(apperr.KindAuthFailure, "Authentication credentials were not provided.")
		}

		user, err := authenticator.Authenticate(c.UserContext(), tokenString)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				return err
			}
			logrus.WithError(err).WithField("path", c.Path()).Debug("JWT validation failed")
			return apperr.InvalidToken()
		}

		c.Locals(LocalUserID, user.ID)
		c.Locals(LocalUsername, user.Username)
		c.Locals(LocalRole, string(user.Role))
		return c.Next()
	}
}

// bearerToken returns "" when no Authorization header is set.
func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", nil
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperr.New(apperr.KindAuthFailure, "Authorization header format must be 'Bearer <token>'")
	}
	return strings.TrimSpace(parts[1]), nil
}

// CurrentActor builds the caller from the values stored by AuthRequired.
// It returns policy.Anonymous when the request is not authenticated.
func CurrentActor(c *fiber.Ctx) policy.Actor {
	id, _ := c.Locals(LocalUserID).(string)
	if id == "" {
		return policy.Anonymous
	}
	username, _ := c.Locals(LocalUsername).(string)
	role, _ := c.Locals(LocalRole).(string)
	return policy.Actor{ID: id, Username: username, Role: models.Role(role)}
}
