package credential

import (
	"errors"
	"fmt"
)

// ErrNoCredentials the provider could not supply credentials
var ErrNoCredentials = errors.New("no credentials available")

// ConfigurationError invalid construction parameters, never retried.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("invalid credential configuration %s: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ", " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func newConfigurationError(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

func IsConfigurationError(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

type FetchErrorKind string

const (
	FetchErrorNetwork      FetchErrorKind = "Network"
	FetchErrorStatus       FetchErrorKind = "Status"
	FetchErrorMalformed    FetchErrorKind = "Malformed"
	FetchErrorMissingField FetchErrorKind = "MissingField"
	FetchErrorSource       FetchErrorKind = "Source"
)

// FetchError a credential source failed to produce credentials.
type FetchError struct {
	Fetcher    string
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch credentials from %s failed, kind: %s, status: %d, %v", e.Fetcher, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch credentials from %s failed, kind: %s, %v", e.Fetcher, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func newFetchError(fetcher string, kind FetchErrorKind, err error) *FetchError {
	return &FetchError{Fetcher: fetcher, Kind: kind, Err: err}
}

func IsFetchError(err error) bool {
	var e *FetchError
	return errors.As(err, &e)
}
