package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to callers. The Discord layer renders Message privately to the
// invoking user; the ops HTTP layer renders Code and Message with HTTPStatus.
const (
	CodeDuplicateTicket       = "DUPLICATE_TICKET"
	CodeAlreadyClaimed        = "ALREADY_CLAIMED"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeInsufficientHierarchy = "INSUFFICIENT_HIERARCHY"
	CodeCapabilityFailure     = "CAPABILITY_FAILURE"
	CodeNotFound              = "NOT_FOUND"
	CodeValidation            = "VALIDATION_FAILED"
	CodeInternal              = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// NewDuplicateTicket reports that the owner already has a live ticket.
func NewDuplicateTicket(ownerID, channelID string) error {
	return NewDomainError(CodeDuplicateTicket, "You already have an open ticket.", http.StatusConflict, map[string]any{
		"owner_id":   ownerID,
		"channel_id": channelID,
	})
}

// NewAlreadyClaimed reports a claim attempt on a ticket that is no longer OPEN.
func NewAlreadyClaimed(channelID, claimantID string) error {
	return NewDomainError(CodeAlreadyClaimed, "This ticket has already been claimed.", http.StatusConflict, map[string]any{
		"channel_id":  channelID,
		"claimant_id": claimantID,
	})
}

func NewInsufficientHierarchy(message string) error {
	return NewDomainError(CodeInsufficientHierarchy, message, http.StatusForbidden, nil)
}

// NewCapabilityFailure wraps a failed platform call.
func NewCapabilityFailure(operation string, err error) error {
	return &DomainError{
		Code:       CodeCapabilityFailure,
		Message:    fmt.Sprintf("Discord rejected the request (%s).", operation),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"operation": operation},
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "Something went wrong, please try again.",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "Something went wrong, please try again.",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}
