// Package errors defines stable error codes and the structured error type
// used across the texforge engine. Non-fatal conditions are accumulated into
// batch reports rather than returned; the TexError type covers the failures
// that do abort an operation.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ScanFailed indicates a directory could not be read during scanning
	ScanFailed ErrorCode = "SCAN_FAILED"
	// RootUnreadable indicates the scan root itself is missing or unreadable
	RootUnreadable ErrorCode = "ROOT_UNREADABLE"
	// UdimAmbiguous indicates a filename matched more than one UDIM convention
	UdimAmbiguous ErrorCode = "UDIM_AMBIGUOUS"
	// LowConfidence indicates a classification defaulted to base color
	LowConfidence ErrorCode = "LOW_CONFIDENCE_CLASSIFICATION"
	// UnknownChannel indicates strict mode rejected an unclassifiable texture
	UnknownChannel ErrorCode = "UNKNOWN_CHANNEL"
	// DuplicateRole indicates two files claimed the same channel of one material
	DuplicateRole ErrorCode = "DUPLICATE_ROLE"
	// GraphAssemblyFailed indicates a backend call failed while wiring a material
	GraphAssemblyFailed ErrorCode = "GRAPH_ASSEMBLY_FAILED"
	// MaterialExists indicates an existing material was found and resolved by policy
	MaterialExists ErrorCode = "MATERIAL_EXISTS"
	// BackendUnavailable indicates the scene-graph backend is not reachable
	BackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	// ConfigInvalid indicates the configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// CatalogError indicates a catalog database operation failed
	CatalogError ErrorCode = "CATALOG_ERROR"
	// DeclarationInvalid indicates MATERIALS.toml failed to parse or validate
	DeclarationInvalid ErrorCode = "DECLARATION_INVALID"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Command     string `json:"command,omitempty"`
	Safe        bool   `json:"safe,omitempty"`
	Description string `json:"description,omitempty"`
}

// TexError represents a texforge error with code, message, and suggestions
type TexError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new TexError
func New(code ErrorCode, message string, cause error) *TexError {
	return &TexError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *TexError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TexError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *TexError) WithDetails(details interface{}) *TexError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from an error chain.
// Returns InternalError for errors that are not TexErrors.
func CodeOf(err error) ErrorCode {
	var te *TexError
	if errors.As(err, &te) {
		return te.Code
	}
	return InternalError
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	RootUnreadable: {
		{
			Command:     "texforge scan <path>",
			Safe:        true,
			Description: "Check that the texture root exists and is readable",
		},
	},
	ConfigInvalid: {
		{
			Command:     "texforge init --force",
			Safe:        false,
			Description: "Regenerate the default configuration template",
		},
	},
	CatalogError: {
		{
			Command:     "texforge refresh",
			Safe:        true,
			Description: "Clear the scan cache and rebuild catalog state",
		},
	},
	DeclarationInvalid: {
		{
			Safe:        true,
			Description: "Fix or remove MATERIALS.toml at the scan root",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
