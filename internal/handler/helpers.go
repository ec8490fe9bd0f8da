package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wedding/guesthub/internal/service"
	"wedding/guesthub/pkg/response"
)

var ErrNoClaims = errors.New("claims not found in context")

func getAccountIDFromContext(c *gin.Context) (uuid.UUID, error) {
	p, ok := service.PrincipalFrom(c.Request.Context())
	if !ok {
		return uuid.Nil, ErrNoClaims
	}
	return p.AccountID, nil
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}

// respondError maps service errors onto the response envelope. Unknown
// errors are reported as 500 with fallback as the message.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case service.IsNotFound(err):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrInvalidRSVPStatus), errors.Is(err, service.ErrInvalidInput):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrAlreadyLinked):
		response.Conflict(c, response.CodeAlreadyLinked, err.Error())
	case errors.Is(err, service.ErrCapacityExceeded):
		response.Conflict(c, response.CodeCapacityExceeded, err.Error())
	case errors.Is(err, service.ErrSyncInProgress):
		response.Conflict(c, response.CodeSyncInProgress, err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		response.Forbidden(c, err.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c, fallback)
	}
}
