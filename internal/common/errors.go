package common

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/ddr-generator/constants"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes, one per taxonomy entry.
const (
	CodeConfig            = "CONFIG_ERROR"
	CodeInputValidation   = "INPUT_VALIDATION"
	CodeUnreadablePDF     = "UNREADABLE_PDF"
	CodeNoTextLayer       = "NO_TEXT_LAYER"
	CodeLLMUnavailable    = "LLM_UNAVAILABLE"
	CodeMalformedResponse = "MALFORMED_LLM_RESPONSE"
	CodeReportComposition = "REPORT_COMPOSITION"
	CodeRender            = "RENDER_ERROR"
	CodeWorkflowTimeout   = "WORKFLOW_TIMEOUT"
	CodeCancelled         = "CANCELLED"
)

// Sentinels matched with errors.Is.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInputValidation      = errors.New("input validation failed")
	ErrUnreadablePDF        = errors.New("unreadable pdf")
	ErrNoTextLayer          = errors.New("no extractable text layer")
	ErrLLMUnavailable       = errors.New("llm unavailable")
	ErrMalformedLLMResponse = errors.New("malformed llm response")
	ErrReportComposition    = errors.New("report composition failed")
	ErrRender               = errors.New("render failed")
	ErrWorkflowTimeout      = errors.New("workflow deadline exceeded")
	ErrCancelled            = errors.New("run cancelled")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// withKind joins a sentinel and an optional underlying cause so both stay matchable.
func withKind(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

func NewInputValidationError(message string, cause error) error {
	return NewAppError(CodeInputValidation, message, withKind(ErrInputValidation, cause))
}

func NewUnreadablePDFError(path string, cause error) error {
	return NewAppError(CodeUnreadablePDF, "cannot parse "+path, withKind(ErrUnreadablePDF, cause))
}

func NewNoTextLayerError(path, detail string) error {
	msg := path + " has no extractable text"
	if detail != "" {
		msg += " (" + detail + ")"
	}
	return NewAppError(CodeNoTextLayer, msg, ErrNoTextLayer)
}

func NewLLMUnavailableError(message string, cause error) error {
	return NewAppError(CodeLLMUnavailable, message, withKind(ErrLLMUnavailable, cause))
}

func NewReportCompositionError(cause error) error {
	return NewAppError(CodeReportComposition, "could not compose report", withKind(ErrReportComposition, cause))
}

func NewRenderError(path string, cause error) error {
	return NewAppError(CodeRender, "could not write "+path, withKind(ErrRender, cause))
}

func NewWorkflowTimeoutError(stage constants.Stage, cause error) error {
	return NewAppError(CodeWorkflowTimeout, "deadline elapsed during "+string(stage), withKind(ErrWorkflowTimeout, cause))
}

func NewCancelledError(stage constants.Stage) error {
	return NewAppError(CodeCancelled, "cancelled during "+string(stage), ErrCancelled)
}

// MalformedResponseError is returned when model output cannot be parsed even after repair.
// Raw holds the unmodified response for diagnostics.
type MalformedResponseError struct {
	Raw   string
	Cause error
}

func NewMalformedResponseError(raw string, cause error) *MalformedResponseError {
	return &MalformedResponseError{Raw: raw, Cause: cause}
}

func (e *MalformedResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v (raw %d bytes)", CodeMalformedResponse, ErrMalformedLLMResponse, e.Cause, len(e.Raw))
	}
	return fmt.Sprintf("%s: %s (raw %d bytes)", CodeMalformedResponse, ErrMalformedLLMResponse, len(e.Raw))
}

func (e *MalformedResponseError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrMalformedLLMResponse}
	}
	return []error{ErrMalformedLLMResponse, e.Cause}
}

// StageError attaches the pipeline stage to the error that ended a run.
type StageError struct {
	Stage constants.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage recorded on err, or StageIdle when none is attached.
func StageOf(err error) constants.Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return constants.StageIdle
}
