package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "sudooom.impostor/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    appErrors.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// ErrorWithMsg 自定义错误消息
func ErrorWithMsg(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ErrorWithData 错误响应附带数据，如修正建议
func ErrorWithData(c *gin.Context, err error, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    appErrors.GetCode(err),
		Message: appErrors.GetMessage(err),
		Data:    data,
	})
}

// ErrorFromAppError 从 AppError 生成错误响应
func ErrorFromAppError(c *gin.Context, err error) {
	ErrorWithData(c, err, nil)
}

// InvalidParams 参数校验失败
func InvalidParams(c *gin.Context, message string) {
	ErrorWithMsg(c, appErrors.CodeInvalidParams, message)
}

// Unauthorized 会话无效
func Unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
		Code:    appErrors.CodeSessionNotFound,
		Message: appErrors.ErrSessionNotFound.Message,
		Data:    nil,
	})
}

// Forbidden 会话与房间不匹配
func Forbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, Response{
		Code:    appErrors.CodeSessionMismatch,
		Message: appErrors.ErrSessionMismatch.Message,
		Data:    nil,
	})
}
