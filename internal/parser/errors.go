package parser

import "errors"

// ErrInvalidName is the sentinel matched by every InvalidNameError.
// Use errors.Is to detect a name the grammar rejected, and errors.As to get
// the message.
var ErrInvalidName = errors.New("invalid name")

// Messages carried by InvalidNameError.
const (
	msgInvalidTitle    = "Invalid title: "
	msgMissingLastName = "Missing required last name"
	msgEmptyNamePart   = "Empty name part"
)

// InvalidNameError reports why an input could not be parsed.
// The parser stops at the first problem, so there is only ever one message.
type InvalidNameError struct {
	// Input is the trimmed input that was rejected.
	Input string

	// Message is the user-facing reason, e.g. "Invalid title: John".
	Message string
}

// Error implements the error interface.
func (e *InvalidNameError) Error() string {
	return e.Message
}

// Is reports whether target is ErrInvalidName.
func (e *InvalidNameError) Is(target error) bool {
	return target == ErrInvalidName
}

func invalidName(input, message string) *InvalidNameError {
	return &InvalidNameError{Input: input, Message: message}
}
