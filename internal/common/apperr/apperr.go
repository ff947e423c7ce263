package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error 业务错误：携带 HTTP 状态码，服务层返回、传输层负责映射。
type Error struct {
	Code    int    // HTTP 状态码
	Message string // 对外可见的错误描述
}

func (e *Error) Error() string {
	return e.Message
}

// New 创建携带状态码的业务错误。
func New(code int, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func BadRequest(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return New(http.StatusForbidden, format, args...)
}

func Internal(format string, args ...interface{}) *Error {
	return New(http.StatusInternalServerError, format, args...)
}

// StatusCode 从错误链中提取状态码；非业务错误按 500 处理。
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return http.StatusInternalServerError
}
