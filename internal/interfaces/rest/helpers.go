package rest

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nexuscrm/forcemapper/pkg/errors"
	"go.uber.org/zap"
)

// RespondAppError sends a standardised JSON error response using pkg/errors
func RespondAppError(c *gin.Context, logger *zap.Logger, err error) {
	if stderrors.Is(err, errors.ErrTableNotMapped) {
		err = errors.NewNotFoundError("table", c.Param("name"))
	}
	code := errors.GetHTTPStatus(err)
	message := err.Error()

	if code >= 500 {
		logger.Error("❌ Request failed",
			zap.Int("status", code),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}

	c.JSON(code, gin.H{
		"error":   message,
		"message": message,
		"code":    errors.GetErrorCode(err),
		"data":    nil,
	})
}

// BindJSON binds JSON and returns true if successful. If failed, it sends bad request error.
func BindJSON(c *gin.Context, logger *zap.Logger, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		RespondAppError(c, logger, errors.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

// HandleGetEnvelope executes a read action and returns the result wrapped in a JSON key
// Response: { [key]: result }
func HandleGetEnvelope(c *gin.Context, logger *zap.Logger, key string, action func() (interface{}, error)) {
	result, err := action()
	if err != nil {
		RespondAppError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{key: result})
}
