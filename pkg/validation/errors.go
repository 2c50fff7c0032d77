package validation

import (
	"errors"
	"strings"

	"github.com/goliatone/go-pickupform/pkg/model"
)

// Error is the failure returned by Validate. Message is the single line shown
// to the user; Fields lists the keys that triggered it.
type Error struct {
	Stage   model.Group      `json:"stage"`
	Fields  []model.FieldKey `json:"fields,omitempty"`
	Message string           `json:"message"`
}

func (e *Error) Error() string {
	if e == nil {
		return "validation: <nil>"
	}
	return e.Message
}

// FieldPath joins the offending keys for logging.
func (e *Error) FieldPath() string {
	if e == nil || len(e.Fields) == 0 {
		return ""
	}
	parts := make([]string, len(e.Fields))
	for i, key := range e.Fields {
		parts[i] = string(key)
	}
	return strings.Join(parts, ",")
}

// AsError unwraps err into a *Error.
func AsError(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

func fail(stage model.Group, message string, fields ...model.FieldKey) *Error {
	return &Error{
		Stage:   stage,
		Fields:  append([]model.FieldKey(nil), fields...),
		Message: message,
	}
}
