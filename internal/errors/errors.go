// Package errors provides structured error handling for funcqc.
//
// It defines UserError, a type that carries what went wrong, why, and
// how to fix it, plus a set of exit codes matching the error taxonomy
// of the analysis pipeline (config, parse, resolution, storage, git).
//
// # Usage Example
//
//	err := errors.NewStorageError(
//	    "cannot write snapshot",
//	    "the data directory is locked by another funcqc process",
//	    "close other funcqc instances or remove the lock file",
//	    underlyingErr,
//	)
//	if err != nil {
//	    errors.FatalError(err, false)
//	}
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes, one per error taxonomy kind in the error handling design.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0

	// ExitConfig indicates a missing or invalid configuration.
	ExitConfig = 1

	// ExitStorage indicates a Snapshot Store read or write failure.
	ExitStorage = 2

	// ExitResolution indicates a call-site or snapshot identifier
	// could not be resolved.
	ExitResolution = 3

	// ExitAmbiguous indicates a user-supplied prefix matched more
	// than one snapshot or identifier.
	ExitAmbiguous = 4

	// ExitPermission indicates permission denied (file access, etc.).
	ExitPermission = 5

	// ExitGit indicates a worktree creation or removal failure.
	ExitGit = 6

	// ExitNotFound indicates a resource (snapshot, project) was not found.
	ExitNotFound = 7

	// ExitInput indicates invalid user input (bad arguments, flags).
	ExitInput = 8

	// ExitInternal indicates an unclassified or internal error.
	// Signals "this is a bug that should be reported".
	ExitInternal = 10
)

// UserError represents an error with structured context for end users.
//
// It provides three levels of information:
//   - Message: what went wrong (user-facing)
//   - Cause: why it happened (diagnostic)
//   - Fix: how to resolve it (actionable)
//
// UserError carries an exit code for consistent CLI exit behavior and
// optionally wraps an underlying error for errors.Is/As compatibility.
type UserError struct {
	Message  string
	Cause    string
	Fix      string
	ExitCode int
	Err      error
}

// Error implements the error interface.
func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *UserError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a configuration error with exit code ExitConfig.
//
// Use for a missing, invalid, or malformed .funcqc.yml.
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitConfig, Err: err}
}

// NewParseError creates a per-file parse error. ParseError is never
// fatal on its own: the caller logs it, skips the file, and continues
// the pipeline.
func NewParseError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInternal, Err: err}
}

// NewResolutionError creates an error for an unresolved call site or
// snapshot identifier, with exit code ExitResolution.
func NewResolutionError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitResolution, Err: err}
}

// NewAmbiguousIdentifierError creates an error for a user-supplied
// prefix or identifier matching more than one candidate. cause should
// list the matching candidates.
func NewAmbiguousIdentifierError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitAmbiguous}
}

// NewStorageError creates a Snapshot Store read/write error with exit
// code ExitStorage.
func NewStorageError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitStorage, Err: err}
}

// NewGitError creates an error for worktree creation/removal failures,
// with exit code ExitGit.
func NewGitError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitGit, Err: err}
}

// NewPermissionError creates a permission-denied error with exit code
// ExitPermission.
func NewPermissionError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitPermission, Err: err}
}

// NewNotFoundError creates a resource-not-found error with exit code
// ExitNotFound. Not-found errors typically don't wrap an underlying error.
func NewNotFoundError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitNotFound}
}

// NewInputError creates an invalid-user-input error with exit code
// ExitInput. Input errors typically don't wrap an underlying error.
func NewInputError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInput}
}

// NewInternalError creates an unclassified/internal error with exit
// code ExitInternal. Use for bugs, assertion failures, unexpected nils.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInternal, Err: err}
}

// Color definitions for error formatting.
var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display.
//
// Color output respects the NO_COLOR environment variable and can be
// explicitly disabled with the noColor parameter. Empty Cause or Fix
// fields are omitted.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON is the JSON-serializable projection of a UserError.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the UserError to a JSON-serializable structure.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{Error: e.Message, Cause: e.Cause, Fix: e.Fix, ExitCode: e.ExitCode}
}

// FatalError prints err and exits with the appropriate code. Never
// returns. If err is nil, it is a no-op.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
