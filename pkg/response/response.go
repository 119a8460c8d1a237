package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess       = 0
	CodeParamError    = 400
	CodeUnauthorized  = 401
	CodeForbidden     = 403
	CodeNotFound      = 404
	CodeConflict      = 409
	CodeServerError   = 500
	CodeBusinessError = 1000
)

const (
	CodeEntitlementDenied     = 1001
	CodePurchaseStatusInvalid = 1002
	CodeBalanceNotEnough      = 1003
	CodeAlreadyPurchased      = 1004
	CodeLotteryMismatch       = 1005
	CodeBusy                  = 1006
	CodeRefundFailed          = 1007
	CodeDepositLimit          = 1008
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorWithData business failure that carries structured detail
// (field errors, denial reason).
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

// FieldError validation failure with per-field messages.
func FieldError(c *gin.Context, fields map[string]string) {
	ErrorWithData(c, CodeParamError, "validation failed", gin.H{"fields": fields})
}

func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Code: CodeUnauthorized, Message: message})
}

func Forbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, Response{Code: CodeForbidden, Message: message})
}

func NotFound(c *gin.Context, message string) {
	Error(c, CodeNotFound, message)
}

// ServerError never echoes internal error text to the client.
func ServerError(c *gin.Context) {
	Error(c, CodeServerError, "internal server error")
}

func BusinessError(c *gin.Context, code int, message string) {
	Error(c, code, message)
}
