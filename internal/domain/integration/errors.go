package integration

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound      = errors.New("integration: marketplace order not found")
	ErrReturnNotFound     = errors.New("integration: order return not found")
	ErrChannelNotFound    = errors.New("integration: marketplace channel not found")
	ErrChannelDisabled    = errors.New("integration: marketplace channel disabled")
	ErrMissingIdentifier  = errors.New("integration: payload carries no order identifier")
	ErrInvalidPayload     = errors.New("integration: invalid payload")
	ErrTransportFailure   = errors.New("integration: marketplace transport failure")
	ErrTokenRefreshFailed = errors.New("integration: token refresh failed")

	// ErrRemoteDeclaredFailure matches every *RemoteFailureError via errors.Is.
	ErrRemoteDeclaredFailure = errors.New("integration: marketplace declared failure")
)

// RemoteFailureError is returned when the marketplace answers a call with a
// failure acknowledgement instead of a transport error.
type RemoteFailureError struct {
	Operation    string
	Code         string
	ShortMessage string
	LongMessage  string
}

func (e *RemoteFailureError) Error() string {
	msg := e.ShortMessage
	if e.LongMessage != "" && e.LongMessage != e.ShortMessage {
		msg = fmt.Sprintf("%s: %s", e.ShortMessage, e.LongMessage)
	}
	return fmt.Sprintf("%s: %s [%s] %s", ErrRemoteDeclaredFailure, e.Operation, e.Code, msg)
}

// Is reports whether target is ErrRemoteDeclaredFailure.
func (e *RemoteFailureError) Is(target error) bool {
	return target == ErrRemoteDeclaredFailure
}
