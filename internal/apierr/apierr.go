// Package apierr defines the error shape the API returns to clients: a stable
// code string, a human-readable message and an HTTP status.
package apierr

// Error codes returned by the user endpoints.
const (
	CodeInvalidID    = "user_invalid_id"
	CodeCannotGet    = "cannot_get"
	CodeCannotEdit   = "cannot_edit"
	CodeCannotDelete = "cannot_delete"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

func New(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}
