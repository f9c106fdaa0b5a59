package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/cadence/internal/review"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected input (validation failed, review already submitted, rejected repair entries)
	ExitCommandError = 2 // Command error (bad flags, store unavailable, unauthenticated, etc.)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set once the error has been written to the user, so the
	// caller of Execute does not print it again.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitCommandError if the error is not an
// ExitError (flag and argument errors from cobra).
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// IsReported reports whether err was already written by a command.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for errors and verbose output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // review error code or COMMAND_ERROR
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// textRenderer is implemented by payloads with a human-readable form.
type textRenderer interface {
	renderText(w io.Writer)
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	if r, ok := data.(textRenderer); ok {
		r.renderText(f.Writer)
		return nil
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format. JSON errors go to
// Writer so the envelope stays on stdout; text errors go to ErrWriter.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	w := f.GetErrWriter()
	fmt.Fprintf(w, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(w, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// codeCommandError labels failures that carry no review error code.
const codeCommandError = "COMMAND_ERROR"

// fail writes err through f and returns the ExitError for it.
//
// Validation failures exit with ExitFailure and carry their field
// violations as details. Every other review error exits with
// ExitCommandError.
func fail(f *OutputFormatter, message string, err error) error {
	exit := ExitCommandError
	code := codeCommandError
	var details any

	text := message
	var rerr *review.Error
	switch {
	case errors.As(err, &rerr):
		code = string(rerr.Code)
		text = message + ": " + rerr.Message
		if rerr.Cause != nil {
			text = fmt.Sprintf("%s: %v", text, rerr.Cause)
		}
		if rerr.Code == review.CodeValidationFailed {
			exit = ExitFailure
			if len(rerr.Fields) > 0 {
				details = rerr.Fields
			}
		}
	case err != nil:
		text = fmt.Sprintf("%s: %v", message, err)
	}
	_ = f.Error(code, text, details)

	exitErr := WrapExitError(exit, message, err)
	exitErr.Reported = true
	return exitErr
}

// reject writes a failure that is the user's input, not an error value.
func reject(f *OutputFormatter, code, message string) error {
	_ = f.Error(code, message, nil)
	exitErr := NewExitError(ExitFailure, message)
	exitErr.Reported = true
	return exitErr
}
