// Package weberr attaches an HTTP response and log fields to errors so
// handlers can fail with a plain error return.
package weberr

import (
	"errors"

	"github.com/sirupsen/logrus"
)

type Opt func(error) error

func Wrap(err error, opts ...Opt) error {
	for _, opt := range opts {
		err = opt(err)
	}
	return err
}

// WithResponse makes the error answer the request with body and status.
func WithResponse(body any, status int) Opt {
	return func(err error) error {
		return &responseError{error: err, body: body, status: status}
	}
}

// WithFields adds fields to the log line of the failed request.
func WithFields(fields logrus.Fields) Opt {
	return func(err error) error {
		return &fieldsError{error: err, fields: fields}
	}
}

// Response returns the outermost response attached to err.
func Response(err error) (body any, status int, ok bool) {
	var re *responseError
	if errors.As(err, &re) {
		return re.body, re.status, true
	}
	return nil, 0, false
}

// Fields merges the log fields attached anywhere in the chain of err.
// Outer fields win.
func Fields(err error) (logrus.Fields, bool) {
	var out logrus.Fields
	for err != nil {
		if fe, ok := err.(*fieldsError); ok {
			if out == nil {
				out = logrus.Fields{}
			}
			for k, v := range fe.fields {
				if _, set := out[k]; !set {
					out[k] = v
				}
			}
		}
		err = errors.Unwrap(err)
	}
	return out, out != nil
}

type responseError struct {
	error
	body   any
	status int
}

func (e *responseError) Unwrap() error { return e.error }

type fieldsError struct {
	error
	fields logrus.Fields
}

func (e *fieldsError) Unwrap() error { return e.error }
