package handler

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/teamgrid/ragengine/internal/ai"
	"github.com/teamgrid/ragengine/internal/middleware"
	"github.com/teamgrid/ragengine/internal/pkg/errcode"
	"github.com/teamgrid/ragengine/internal/pkg/errors"
	"github.com/teamgrid/ragengine/internal/pkg/response"
)

func getCallerID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextCallerIDKey)
	callerID, _ := value.(string)
	return callerID
}

func getOrgID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextOrgIDKey)
	orgID, _ := value.(string)
	return orgID
}

func getRequestID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextRequestIDKey)
	requestID, _ := value.(string)
	return requestID
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("request_id", getRequestID(c)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("caller_id", getCallerID(c)),
		zap.Error(err),
	)
	switch {
	case errors.IsInvalid(err):
		response.Error(c, errcode.ErrInvalid, err.Error())
	case errors.IsNotFound(err):
		response.Error(c, errcode.ErrNotFound, "not found")
	case stderrors.Is(err, ai.ErrUnavailable):
		response.Error(c, errcode.ErrAIUnavailable, "ai provider unavailable")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
