package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport marks network or server-status failures while talking to
	// the fulfillment server.
	ErrTransport = errors.New("transport error")
	// ErrParse marks a malformed or incomplete fulfillment reply.
	ErrParse = errors.New("parse error")
	// ErrRightsBuild marks a failure to construct the rights document.
	ErrRightsBuild = errors.New("rights build error")
	// ErrDownload marks a non-success status while fetching content.
	ErrDownload = errors.New("download error")
	// ErrUnsupported marks content whose format cannot be handled.
	ErrUnsupported = errors.New("unsupported format")
	// ErrArchive marks a failure while mutating the downloaded container.
	ErrArchive = errors.New("archive mutation error")
	// ErrPatch marks a failure of the document patch collaborator.
	ErrPatch = errors.New("patch error")
	// ErrKeyRead marks an inability to read persisted key material.
	ErrKeyRead = errors.New("key read error")
	// ErrDecrypt marks a failure reported by the decryption collaborator.
	ErrDecrypt = errors.New("decryption error")
)

// WorkflowError carries the classification marker, workflow context, and the
// user-facing message for a failed operation.
type WorkflowError struct {
	Marker    error
	Stage     string
	Operation string
	// UserMessage is surfaced verbatim in terminal outcomes.
	UserMessage string
	Cause       error
}

func (e *WorkflowError) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.UserMessage)
	marker := "workflow error"
	if e.Marker != nil {
		marker = e.Marker.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", marker, detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", marker, detail)
}

func (e *WorkflowError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Marker != nil {
		out = append(out, e.Marker)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Wrap tags a failure with the provided sentinel marker and workflow context.
// The message is what a user should read in the terminal outcome; err is the
// underlying cause, if any.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransport
	}
	return &WorkflowError{
		Marker:      marker,
		Stage:       stage,
		Operation:   operation,
		UserMessage: message,
		Cause:       err,
	}
}

// Message extracts the user-facing portion of a workflow error. For errors
// not produced by Wrap it falls back to the full error text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		if msg := strings.TrimSpace(wfErr.UserMessage); msg != "" {
			return msg
		}
	}
	return err.Error()
}

// Retryable reports whether an error represents a condition a caller could
// reasonably retry. Only transport-level failures qualify; wrong keys,
// unsupported formats, and malformed replies are permanent.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrDownload)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "workflow failure"
	}
	return strings.Join(parts, ": ")
}
