package apierr

import (
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
)

// Response is the JSON body of every failed request.
type Response struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Abort writes err as a JSON error response and stops the handler chain.
// The underlying cause, when present, is returned in the error field.
func Abort(ctx *gin.Context, err error) {
	typed := From(err)
	status := HTTPStatus(typed.Code)

	resp := Response{Message: typed.Message}
	if typed.Cause != nil {
		resp.Error = typed.Cause.Error()
	}
	if status >= 500 {
		gmw.GetLogger(ctx).Error("request failed",
			zap.String("code", string(typed.Code)), zap.Error(err))
	}

	ctx.AbortWithStatusJSON(status, resp)
}
