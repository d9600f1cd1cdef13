package weberr

import (
	"net/http"
)

// ErrorResponse is the failure form of the action result.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type RequestError struct {
	Err error
}

func (r *RequestError) Error() string { return r.Err.Error() }

func (e *RequestError) Unwrap() error { return e.Err }

func NewError(err error, msg string, status int, opts ...Opt) error {
	e := &RequestError{Err: err}
	opts = append(opts, WithResponse(
		&ErrorResponse{Message: msg},
		status,
	))

	return Wrap(e, opts...)
}

// Invalid reports a validation failure with one message per offending field.
func Invalid(err error, fields map[string]string, opts ...Opt) error {
	e := &RequestError{Err: err}
	opts = append(opts, WithResponse(
		&ErrorResponse{Message: "Invalid input", Fields: fields},
		http.StatusUnprocessableEntity,
	))

	return Wrap(e, opts...)
}

func NotFound(err error, opts ...Opt) error {
	return NewError(
		err,
		"the resource could not be found",
		http.StatusNotFound,
		opts...,
	)
}

func NotAuthorized(err error, opts ...Opt) error {
	return NewError(
		err,
		"not authorized to access resource",
		http.StatusUnauthorized,
		opts...,
	)
}

func Forbidden(err error, opts ...Opt) error {
	return NewError(
		err,
		"access to the resource is forbidden",
		http.StatusForbidden,
		opts...,
	)
}

func InternalError(err error, opts ...Opt) error {
	return NewError(
		err,
		"the server encountered a problem and could not process your request",
		http.StatusInternalServerError,
		opts...,
	)
}

func BadRequest(err error, opts ...Opt) error {
	return NewError(
		err,
		"bad request",
		http.StatusBadRequest,
		opts...,
	)
}

// Conflict reports a business rule rejection using the error text as message.
func Conflict(err error, opts ...Opt) error {
	return NewError(
		err,
		err.Error(),
		http.StatusConflict,
		opts...,
	)
}
