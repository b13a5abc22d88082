package backup

import "fmt"

// ErrorKind classifies what went wrong with a record or an operation.
type ErrorKind string

const (
	// ErrorKindFileFormat means the input bytes were unreadable or not
	// parsable JSON. Always operation-fatal.
	ErrorKindFileFormat ErrorKind = "FileFormatError"
	// ErrorKindDataValidation means a single record failed validation and
	// was skipped; the operation continues.
	ErrorKindDataValidation ErrorKind = "DataValidationError"
	// ErrorKindDatabase means a store write failed. The record is skipped
	// and the overall result is marked unsuccessful.
	ErrorKindDatabase ErrorKind = "DatabaseError"
	// ErrorKindConflict is reserved for future merge strategies.
	ErrorKindConflict ErrorKind = "ConflictError"
	// ErrorKindUnknown is the record-scoped catch-all, so one surprising
	// record cannot abort a whole import.
	ErrorKindUnknown ErrorKind = "UnknownError"
)

// ImportError is one entry in an ImportResult's error list.
type ImportError struct {
	Kind    ErrorKind `json:"type"`
	Message string    `json:"message"`
}

func (e ImportError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}
