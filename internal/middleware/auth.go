package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/encounter-api/internal/handler"
	"github.com/jwalitptl/encounter-api/pkg/auth"
	"github.com/jwalitptl/encounter-api/pkg/errors"
	"github.com/jwalitptl/encounter-api/pkg/httputil"
)

const (
	ContextActorRole = "actor_role"
	actorIDKey       = "actor_id"
)

type AuthMiddleware struct {
	jwt auth.JWTService
}

func NewAuthMiddleware(jwt auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Authenticate verifies the bearer token and stores the actor on the request.
// Role checks happen in the workflow guards, not here.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.AbortWithError(c, errors.Unauthenticated("missing authorization header"))
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			httputil.AbortWithError(c, errors.Unauthenticated("invalid authorization format"))
			return
		}

		actor, err := m.jwt.ValidateToken(token)
		if err != nil {
			log.Debug().Err(err).Str("request_id", c.GetString(ContextRequestID)).Msg("Token rejected")
			httputil.AbortWithError(c, errors.Unauthenticated("invalid token"))
			return
		}

		handler.SetActor(c, actor)
		c.Set(ContextActorRole, string(actor.Role))
		c.Set(actorIDKey, actor.ID.String())
		c.Next()
	}
}
