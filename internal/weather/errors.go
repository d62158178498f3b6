package weather

import (
	"github.com/juju/errors"
)

type ErrorKind string

const (
	KindNone      ErrorKind = ""
	KindTransient ErrorKind = "transient"
	KindAuth      ErrorKind = "auth"
	KindNotFound  ErrorKind = "not-found"
	KindParse     ErrorKind = "parse"
	KindPermanent ErrorKind = "permanent"
)

type transientError struct{ error }

func (e *transientError) Unwrap() error { return e.error }

// Kind classifies Fetch error.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var te *transientError
	switch {
	case errors.As(err, &te):
		return KindTransient
	case errors.Is(err, errors.Unauthorized):
		return KindAuth
	case errors.Is(err, errors.NotFound):
		return KindNotFound
	case errors.Is(err, errors.NotValid):
		return KindParse
	}
	return KindPermanent
}

func IsTransient(err error) bool { return Kind(err) == KindTransient }
