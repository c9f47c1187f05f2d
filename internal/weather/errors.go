package weather

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a fetch failure
type ErrorKind string

const (
	// ErrorKindNetwork covers transport failures and unexpected provider statuses
	ErrorKindNetwork ErrorKind = "network"
	// ErrorKindParse covers malformed provider responses
	ErrorKindParse ErrorKind = "parse"
	// ErrorKindNotFound means the provider has no data for the location
	ErrorKindNotFound ErrorKind = "not_found"
)

// FetchError is the error type returned by the weather client
type FetchError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a FetchError for a transport-level failure
func NewNetworkError(message string, err error) *FetchError {
	return &FetchError{Kind: ErrorKindNetwork, Message: message, Err: err}
}

// NewParseError creates a FetchError for a malformed provider response
func NewParseError(message string, err error) *FetchError {
	return &FetchError{Kind: ErrorKindParse, Message: message, Err: err}
}

// NewNotFoundError creates a FetchError for a location the provider cannot resolve
func NewNotFoundError(message string) *FetchError {
	return &FetchError{Kind: ErrorKindNotFound, Message: message}
}

// Kind returns the classification of err, or "" if err is not a FetchError
func Kind(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsNotFound reports whether err is a not-found fetch failure
func IsNotFound(err error) bool {
	return Kind(err) == ErrorKindNotFound
}

// IsNetwork reports whether err is a transport-level fetch failure
func IsNetwork(err error) bool {
	return Kind(err) == ErrorKindNetwork
}

// IsParse reports whether err is a malformed-response fetch failure
func IsParse(err error) bool {
	return Kind(err) == ErrorKindParse
}
