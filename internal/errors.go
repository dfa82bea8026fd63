package internal

const (
	// ErrCodeUnknown is the error code for unknown errors
	ErrCodeUnknown = "UNKNOWN_ERROR"
	// ErrCodeRepoError is returned when the request to a repo fails with an error
	ErrCodeRepoError = "STORAGE_QUERY_FAILED"
	// ErrCodeRequiredFieldMissing is returned when at least one required field has not been populated on an incoming
	// request
	ErrCodeRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	// ErrCodeIllegalJSON is returned when the request did not contain a valid JSON body
	ErrCodeIllegalJSON = "ILLEGAL_JSON_REQUEST"
	// ErrCodeIllegalValue is returned when any field in the transferred data does not validate for some reason
	ErrCodeIllegalValue = "ILLEGAL_VALUE"
	// ErrCodeEventNotFound is returned when an operation works on an event that does not exist
	ErrCodeEventNotFound = "EVENT_NOT_FOUND"
	// ErrCodeInvalidPasscode is returned when joining an invite-only event with a wrong or missing passcode
	ErrCodeInvalidPasscode = "INVALID_PASSCODE"
	// ErrCodeAlreadyJoined is returned when an identity tries to join an event it is already a member of -
	// no matter if on the roster or the waitlist
	ErrCodeAlreadyJoined = "ALREADY_JOINED"
	// ErrCodeNotAParticipant is returned when a leave or toggle-paid request targets an identity that is
	// neither on the roster nor on the waitlist
	ErrCodeNotAParticipant = "NOT_A_PARTICIPANT"
	// ErrCodeNotAuthorized is returned when an operation reserved for the event's organizer is requested
	// by somebody else
	ErrCodeNotAuthorized = "NOT_AUTHORIZED"
	// ErrCodeCapacityBelowCurrent is returned when an edit would shrink the capacity below the number of
	// participants already admitted
	ErrCodeCapacityBelowCurrent = "CAPACITY_BELOW_CURRENT_PARTICIPANTS"
	// ErrCodeInvalidSchedule is returned when an event would be created or moved to an instant in the past
	ErrCodeInvalidSchedule = "INVALID_SCHEDULE"
	// ErrCodeLoginFailed is returned when the user fails to login for some reason
	ErrCodeLoginFailed = "LOGIN_FAILED"
	// ErrCodeNotLoggedIn is returned when the user tried to access an API that needs a logged-in user, but the user
	// has no authenticated session
	ErrCodeNotLoggedIn = "NOT_LOGGED_IN"
	// ErrCodeUserExists is returned when a signup collides with an existing login or display name
	ErrCodeUserExists = "USER_ALREADY_EXISTS"
)

// HTTPError is an error that contains information about the error message to return to the client
type HTTPError struct {
	message string
	code    string
	status  int
	data    interface{}
}

// MakeError creates a new HTTPError with the given contents
func MakeError(status int, code, message string) *HTTPError {
	return MakeErrorWithData(status, code, message, nil)
}

// MakeErrorWithData creates a new HTTPError with the given contents and an additional data element
func MakeErrorWithData(status int, code, message string, data interface{}) *HTTPError {
	return &HTTPError{message, code, status, data}
}

// Error implements the errorer interface
func (e *HTTPError) Error() string {
	return e.message
}

// Status returns the HTTP status that should be returned
func (e *HTTPError) Status() int {
	return e.status
}

// ErrorCode returns the machine-readable error code
func (e *HTTPError) ErrorCode() string {
	return e.code
}

// Data returns additional data about the error
func (e *HTTPError) Data() interface{} {
	return e.data
}
