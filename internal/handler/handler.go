// Package handler holds helpers shared by the HTTP handlers.
package handler

import (
	stderrors "errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/pkg/errors"
	"github.com/jwalitptl/encounter-api/pkg/httputil"
)

const actorKey = "actor"

// SetActor stores the authenticated actor on the request.
func SetActor(c *gin.Context, actor model.Actor) {
	c.Set(actorKey, actor)
}

// Actor returns the authenticated actor, responding 401 when there is none.
func Actor(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(actorKey)
	actor, _ := v.(model.Actor)
	if !ok || actor.ID == uuid.Nil {
		httputil.AbortWithError(c, errors.Unauthenticated("missing actor"))
		return model.Actor{}, false
	}
	return actor, true
}

// ParamID parses a UUID path parameter, responding 400 on failure.
func ParamID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httputil.RespondWithError(c, errors.Validationf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

// BindJSON binds the request body into dst. An empty body is allowed when
// optional is set.
func BindJSON(c *gin.Context, dst interface{}, optional bool) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || (optional && stderrors.Is(err, io.EOF)) {
		return true
	}
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		err = errors.Validation("invalid request body", err)
	}
	httputil.RespondWithError(c, err)
	return false
}
