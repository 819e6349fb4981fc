package serrors

import "fmt"

// Base is a coded error. Two Base errors compare equal under errors.Is when
// their codes match, so package-level sentinels can carry stable codes while
// call sites attach contextual messages.
type Base struct {
	Code    string
	Message string
	Field   string
}

func NewError(code, message, field string) *Base {
	return &Base{Code: code, Message: message, Field: field}
}

func NewFieldRequiredError(field string) *Base {
	return &Base{
		Code:    "FIELD_REQUIRED",
		Message: fmt.Sprintf("%s is required", field),
		Field:   field,
	}
}

func (e *Base) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Base) Is(target error) bool {
	t, ok := target.(*Base)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy carrying the same code with a new message.
func (e *Base) WithMessage(format string, args ...interface{}) *Base {
	return &Base{Code: e.Code, Message: fmt.Sprintf(format, args...), Field: e.Field}
}
