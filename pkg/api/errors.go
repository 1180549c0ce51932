package api

import (
	"fmt"
	"net/http"
)

// ErrorType is the category of an API error. Each category maps to one
// HTTP status.
type ErrorType string

const (
	ErrorTypeInvalidRequest  ErrorType = "invalid_request"
	ErrorTypeUnauthorized    ErrorType = "unauthorized"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeTooManyRequests ErrorType = "too_many_requests"
	ErrorTypeServerError     ErrorType = "server_error"
)

var errorStatus = map[ErrorType]int{
	ErrorTypeInvalidRequest:  http.StatusBadRequest,
	ErrorTypeUnauthorized:    http.StatusUnauthorized,
	ErrorTypeNotFound:        http.StatusNotFound,
	ErrorTypeTooManyRequests: http.StatusTooManyRequests,
	ErrorTypeServerError:     http.StatusInternalServerError,
}

// Status returns the HTTP status for t. Unknown types are server errors.
func (t ErrorType) Status() int {
	if s, ok := errorStatus[t]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Machine-readable codes refining an ErrorType.
const (
	CodeCourseNotFound = "course_not_found"
	CodeInvalidQuery   = "invalid_query"
)

// APIError is the error a search client sees. Param names the offending
// request parameter (courseid, q) when there is one.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

func (e *APIError) Error() string {
	if e.Param == "" {
		return string(e.Type) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
}

// Status returns the HTTP status for the error's type.
func (e *APIError) Status() int { return e.Type.Status() }

// ErrorResponse is the JSON body of every error answer: {"error": {...}}.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{Type: ErrorTypeInvalidRequest, Param: param, Message: message}
}

// NewInvalidQueryError rejects a search term, for example one that is too long.
func NewInvalidQueryError(message string) *APIError {
	return &APIError{Type: ErrorTypeInvalidRequest, Code: CodeInvalidQuery, Param: "q", Message: message}
}

func NewNotFoundError(message string) *APIError {
	return &APIError{Type: ErrorTypeNotFound, Message: message}
}

// NewCourseNotFoundError reports a search scoped to a course that does not
// exist or that the caller may not search.
func NewCourseNotFoundError(courseID int64) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Code:    CodeCourseNotFound,
		Param:   "courseid",
		Message: fmt.Sprintf("course %d not found", courseID),
	}
}

func NewUnauthorizedError(message string) *APIError {
	return &APIError{Type: ErrorTypeUnauthorized, Message: message}
}

func NewTooManyRequestsError(message string) *APIError {
	return &APIError{Type: ErrorTypeTooManyRequests, Message: message}
}

func NewServerError(message string) *APIError {
	return &APIError{Type: ErrorTypeServerError, Message: message}
}
