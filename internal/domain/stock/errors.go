package stock

import (
	"errors"
	"fmt"
)

// ErrNoConnectivity is returned when the pre-flight connectivity check fails.
var ErrNoConnectivity = errors.New("no connectivity")

// TransportError means no response was received from an upstream provider.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response from an upstream provider.
type ServerError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status code: %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status code: %d: %s", e.Provider, e.StatusCode, e.Body)
}

// DataError is a response that was received but is unparseable or empty.
type DataError struct {
	Provider string
	Operator string
	Reason   string
	Err      error
}

func (e *DataError) Error() string {
	msg := "no data for operator " + e.Operator
	if e.Operator == "" {
		msg = "invalid data"
	}
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataError) Unwrap() error { return e.Err }

// NoData builds the DataError raised when a provider has nothing for op.
func NoData(provider string, op Operator, reason string) *DataError {
	return &DataError{Provider: provider, Operator: op.DisplayName, Reason: reason}
}
