package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeBadRequest       = 40000
	CodeUnsupportedType  = 40001
	CodeInvalidFileName  = 40002
	CodeDocumentNotFound = 40401
	CodePayloadTooLarge  = 41300
	CodeExtractionFailed = 42200
	CodeTooManyRequests  = 42900
	CodeInternalServer   = 50000
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// OK writes data as the 200 response body.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
