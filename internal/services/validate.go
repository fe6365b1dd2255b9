package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldMessages 字段+tag 到提示语，找不到时用通用提示
var fieldMessages = map[string]string{
	"Title.required":    "Title is required",
	"Title.max":         "Title must be 300 characters or less",
	"URL.max":           "URL must be 2000 characters or less",
	"URL.http_url":      "Please enter a valid URL",
	"Content.required":  "Content is required",
	"Content.max":       "Content must be 10,000 characters or less",
	"Name.required":     "Name is required",
	"Name.max":          "Name must be 100 characters or less",
	"Message.required":  "Message is required",
	"Message.max":       "Message must be 1000 characters or less",
	"Username.required": "Username and password are required",
	"Username.min":      "Username must be between 3 and 50 characters",
	"Username.max":      "Username must be between 3 and 50 characters",
	"Password.required": "Username and password are required",
	"Password.min":      "Password must be at least 6 characters",
}

// validateStruct 把 validator 的第一条错误转成 ValidationError
func validateStruct(v any, input map[string]string) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("services.validateStruct: %w", err)
	}

	fe := verrs[0]
	msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]
	if !ok {
		msg = fmt.Sprintf("%s is invalid", fe.Field())
	}
	return invalid(strings.ToLower(fe.Field()), msg, input)
}
