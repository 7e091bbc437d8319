package session

import "fmt"

// ErrorCode classifies session failures. Codes travel to the acting client
// on the error event; other room members never observe a failed mutation.
type ErrorCode string

const (
	CodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	CodeNotFound             ErrorCode = "NOT_FOUND"
	CodeAccessDenied         ErrorCode = "ACCESS_DENIED"
	CodeNotInCampaign        ErrorCode = "NOT_IN_CAMPAIGN"
	CodePersistenceFailure   ErrorCode = "PERSISTENCE_FAILURE"
)

// Error is a session-level failure. Only AuthenticationFailed is fatal to
// the connection; every other code is emitted back as an error event.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errNotFound(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func errAccessDenied(format string, args ...interface{}) *Error {
	return &Error{Code: CodeAccessDenied, Message: fmt.Sprintf(format, args...)}
}

func errNotInCampaign() *Error {
	return &Error{Code: CodeNotInCampaign, Message: "connection has not joined this campaign"}
}

func errPersistence(op string) *Error {
	return &Error{Code: CodePersistenceFailure, Message: op + " failed, no changes were applied"}
}
