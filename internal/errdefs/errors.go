// Package errdefs holds the error taxonomy shared by the loaders and the
// datavault builders. Structural problems (wrong file type, bad caller
// parameters, undecryptable rosters) surface through these values so callers
// can branch with errors.Is / errors.As; data-quality problems never do, they
// degrade to nil fields at the point of parsing.
package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat is returned when a file does not have the extension
	// the requested loader handles. It is raised before any decode attempt.
	ErrInvalidFormat = errors.New("invalid file format")

	// ErrConfiguration is returned for an invalid combination of caller
	// supplied parameters (no roster, malformed range, unknown mode).
	ErrConfiguration = errors.New("invalid configuration")

	// ErrDecryption is returned when a password-protected roster cannot be
	// opened, either because the password is wrong or the file is corrupted.
	ErrDecryption = errors.New("decryption failed")
)

// SchemaError reports a roster whose columns do not match the declared schema
// for its kind. Both the missing and the unexpected column sets are carried so
// the operator can tell a renamed column from a truncated file.
type SchemaError struct {
	Kind       string
	Missing    []string
	Unexpected []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("column mismatch in %s roster: missing %v, unexpected %v",
		e.Kind, e.Missing, e.Unexpected)
}
