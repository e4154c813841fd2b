// Package apperr defines the error kinds returned by the services and their
// HTTP representation.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type Kind int

const (
	KindStorage Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindForbiddenTransition
	KindPartialFailure
)

var kindInfo = map[Kind]struct {
	status int
	code   string
}{
	KindStorage:             {http.StatusInternalServerError, "STORAGE_ERROR"},
	KindValidation:          {http.StatusBadRequest, "VALIDATION_ERROR"},
	KindAuthentication:      {http.StatusUnauthorized, "AUTHENTICATION_ERROR"},
	KindAuthorization:       {http.StatusForbidden, "AUTHORIZATION_ERROR"},
	KindNotFound:            {http.StatusNotFound, "NOT_FOUND"},
	KindConflict:            {http.StatusConflict, "CONFLICT"},
	KindForbiddenTransition: {http.StatusForbidden, "FORBIDDEN_TRANSITION"},
	KindPartialFailure:      {http.StatusInternalServerError, "PARTIAL_FAILURE"},
}

func (k Kind) Status() int { return kindInfo[k].status }
func (k Kind) Code() string { return kindInfo[k].code }

// Error is the single error type services hand back to the transport layer.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field violations for validation errors.
	Fields map[string]string
	// Pending lists record ids left behind by a partially applied cascade.
	Pending []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(": ")
		for i, k := range keys {
			if i > 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%s %s", k, e.Fields[k])
		}
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func Authentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func ForbiddenTransition(message string) *Error {
	return &Error{Kind: KindForbiddenTransition, Message: message}
}

func PartialFailure(message string, pending []string, err error) *Error {
	return &Error{Kind: KindPartialFailure, Message: message, Pending: pending, Err: err}
}

// Storage wraps an underlying store failure. The wrapped error is kept for
// logging but never serialized.
func Storage(message string, err error) *Error {
	return &Error{Kind: KindStorage, Message: message, Err: err}
}

// KindOf reports the kind of err. Errors that are not *Error are storage errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// Response is the JSON body written for every failed request.
type Response struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
	Pending []string          `json:"pending,omitempty"`
}

// ToResponse maps err to an HTTP status and body. Storage errors and
// unrecognised errors get a generic message so driver details never leak.
func ToResponse(err error) (int, Response) {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, Response{
			Error: "internal server error",
			Code:  KindStorage.Code(),
		}
	}

	resp := Response{
		Error:   e.Message,
		Code:    e.Kind.Code(),
		Fields:  e.Fields,
		Pending: e.Pending,
	}
	if e.Kind == KindStorage {
		resp.Error = "internal server error"
	}
	return e.Kind.Status(), resp
}
