package repository

import (
	"context"
	"errors"
	"fmt"

	"opecours/internal/domain/stock"
)

// Messages surfaced to consumers.
const (
	MsgNoConnectivityNoCache = "no connectivity and no cached data"
	MsgInternetConnection    = "internet connection error"
	MsgNoConnectivity        = "no connectivity"
)

// Classify turns a fetch error into the message carried by an Error state.
func Classify(err error) string {
	var (
		serverErr    *stock.ServerError
		transportErr *stock.TransportError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &serverErr):
		return fmt.Sprintf("server error (%d): %s", serverErr.StatusCode, serverErr.Body)
	case errors.Is(err, stock.ErrNoConnectivity):
		return MsgNoConnectivity
	case errors.As(err, &transportErr), errors.Is(err, context.DeadlineExceeded):
		return MsgInternetConnection
	default:
		return "error retrieving data: " + err.Error()
	}
}
