package apierr

import "strings"

// FieldError is a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects field failures in the order they were found.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, f := range v {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return strings.Join(msgs, "; ")
}

// Add appends a failure for field.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

// For returns the first message recorded for field, or "".
func (v ValidationErrors) For(field string) string {
	for _, f := range v {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// Err returns nil when there are no failures, otherwise a validation *Error.
func (v ValidationErrors) Err(op string) error {
	if len(v) == 0 {
		return nil
	}
	return NewValidation(op, v)
}
