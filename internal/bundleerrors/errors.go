// Package bundleerrors defines the stable error taxonomy surfaced by the
// bundle lifecycle and evidence engine. Every error carries a stable code
// string, a human message, optional context, and — where useful — a
// NextAction pointing the caller at the right follow-up tool and
// parameters, in the spirit of codefang's observability error
// classification constants.
package bundleerrors

import (
	"errors"
	"fmt"
)

// Code identifies a taxonomy entry. Stable across versions; safe to match on.
type Code string

// Error code constants. See spec §7 for the authoritative taxonomy.
const (
	CodeBundleNotFound        Code = "BUNDLE_NOT_FOUND"
	CodeStorageUnavailable    Code = "STORAGE_UNAVAILABLE"
	CodeBundleValidationError Code = "BUNDLE_VALIDATION_ERROR"
	CodeBundleInProgress      Code = "BUNDLE_IN_PROGRESS"
	CodeBundleCreationError   Code = "BUNDLE_CREATION_ERROR"
	CodeIndexCorrupt          Code = "INDEX_CORRUPT"
	CodeGitHubError           Code = "GITHUB_ERROR"
	CodeCrawlError            Code = "CRAWL_ERROR"
	CodeIngestError           Code = "INGEST_ERROR"
	CodeConfigError           Code = "CONFIG_ERROR"
	CodeOperationFailed       Code = "OPERATION_FAILED"
	CodeMissingEvidence       Code = "MISSING_EVIDENCE"
	CodeTargetFileNotFound    Code = "TARGET_FILE_NOT_FOUND"
)

// NextAction points the caller at a follow-up tool call that might resolve
// or make progress on the error.
type NextAction struct {
	ToolName string         `json:"toolName"`
	Args     map[string]any `json:"args,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

// Error is the concrete error type for every taxonomy entry.
type Error struct {
	Code       Code
	Message    string
	Context    map[string]any
	NextAction *NextAction
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a taxonomy error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap wraps cause under the given code and message.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithContext attaches structured context and returns the same error for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}

	e.Context[key] = value

	return e
}

// WithNextAction attaches a next-action hint and returns the same error for chaining.
func (e *Error) WithNextAction(action *NextAction) *Error {
	e.NextAction = action

	return e
}

// CodeOf extracts the Code from err, or "" if err is not (or does not wrap) an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ""
}

// BundleNotFound constructs the BundleNotFound error with a UUID-format hint.
func BundleNotFound(bundleID string) *Error {
	return New(CodeBundleNotFound, fmt.Sprintf("bundle not found: %s", bundleID)).
		WithContext("bundleId", bundleID).
		WithContext("hint", "bundle ids are UUIDs, e.g. 123e4567-e89b-12d3-a456-426614174000")
}

// StorageUnavailable constructs the StorageUnavailable error.
func StorageUnavailable() *Error {
	return New(CodeStorageUnavailable, "no writable storage root is configured")
}

// BundleValidationError constructs the BundleValidationError error.
func BundleValidationError(bundleID string, missing []string) *Error {
	return New(CodeBundleValidationError, "bundle failed completeness validation").
		WithContext("bundleId", bundleID).
		WithContext("missingComponents", missing)
}

// InProgressInfo describes the lock held by a competing task.
type InProgressInfo struct {
	TaskID      string
	StartedAt   string
	Repos       []string
	Fingerprint string
}

// BundleInProgress constructs the BundleInProgress error.
func BundleInProgress(info InProgressInfo) *Error {
	return New(CodeBundleInProgress, "a bundle with this fingerprint is already being created").
		WithContext("taskId", info.TaskID).
		WithContext("startedAt", info.StartedAt).
		WithContext("repos", info.Repos).
		WithContext("fingerprint", info.Fingerprint).
		WithNextAction(&NextAction{
			ToolName: "get_task_status",
			Args:     map[string]any{"taskId": info.TaskID},
			Reason:   "poll the in-progress task instead of starting a new one",
		})
}

// BundleCreationError wraps a downstream pipeline failure.
func BundleCreationError(cause error) *Error {
	return Wrap(CodeBundleCreationError, "bundle creation failed", cause)
}

// IndexCorrupt constructs the IndexCorrupt error with a repair suggestion.
func IndexCorrupt(bundleID string, cause error) *Error {
	return Wrap(CodeIndexCorrupt, "search index is missing or unreadable", cause).
		WithContext("bundleId", bundleID).
		WithNextAction(&NextAction{
			ToolName: "repair_bundle",
			Args:     map[string]any{"bundleId": bundleID},
			Reason:   "rebuild the search index from normalized files",
		})
}

// GitHubError wraps a GitHub acquisition failure.
func GitHubError(message string, cause error) *Error {
	return Wrap(CodeGitHubError, message, cause)
}

// CrawlError wraps a web crawl failure.
func CrawlError(message string, cause error) *Error {
	return Wrap(CodeCrawlError, message, cause)
}

// IngestError wraps an ingestion failure.
func IngestError(message string, cause error) *Error {
	return Wrap(CodeIngestError, message, cause)
}

// ConfigError constructs a ConfigError.
func ConfigError(message string, cause error) *Error {
	return Wrap(CodeConfigError, message, cause)
}

// OperationFailed wraps any other failure.
func OperationFailed(message string, cause error) *Error {
	return Wrap(CodeOperationFailed, message, cause)
}

// TargetFileNotFound constructs the TARGET_FILE_NOT_FOUND error for
// dependency-graph target mode requests naming a file outside the bundle.
func TargetFileNotFound(bundleID, path string) *Error {
	return New(CodeTargetFileNotFound, fmt.Sprintf("target file not found in bundle: %s", path)).
		WithContext("bundleId", bundleID).
		WithContext("path", path)
}

// MissingEvidence constructs the MISSING_EVIDENCE trace-write-blocked error.
func MissingEvidence(edgeType, source, target string) *Error {
	return New(CodeMissingEvidence, fmt.Sprintf(
		"edge type %q from %q to %q requires at least one source evidence", edgeType, source, target)).
		WithContext("edgeType", edgeType).
		WithContext("source", source).
		WithContext("target", target).
		WithNextAction(&NextAction{
			ToolName: "trace_upsert",
			Reason:   "attach at least one Evidence entry under sources before retrying",
		})
}
