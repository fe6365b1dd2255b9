package services

import (
	"errors"
)

var (
	// ErrValidation 客户端输入错误
	ErrValidation = errors.New("validation failed")
	// ErrNotFound 目标不存在
	ErrNotFound = errors.New("not found")
	// ErrConflict 唯一约束冲突，或条件更新时行已被并发修改
	ErrConflict = errors.New("conflict")
	// ErrRateLimited 超出限流
	ErrRateLimited = errors.New("rate limited")
)

// ValidationError 携带出错字段和原始表单输入，便于回显
type ValidationError struct {
	Field   string
	Message string
	Input   map[string]string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string, input map[string]string) *ValidationError {
	return &ValidationError{Field: field, Message: message, Input: input}
}

// AsValidation 取出 ValidationError
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
