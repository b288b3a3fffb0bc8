package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/joseph-ayodele/ddr-generator/constants"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Required - Common validation rules
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}

	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
		}
	case *string:
		if v == nil || strings.TrimSpace(*v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
		}
	}
	return nil
}

// MaxLength returns a rule bounding string length in runes.
func MaxLength(max int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := value.(string)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(str) > max {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("must be at most %d characters", max),
			}
		}
		return nil
	}
}

// Extension requires the path to end in ext (case-insensitive).
func Extension(ext string) ValidationRule {
	want := constants.NormalizeExt(ext)
	return func(fieldName string, value interface{}) *ValidationError {
		path, _ := value.(string)
		if path == "" {
			return nil
		}
		if constants.NormalizeExt(filepath.Ext(path)) != want {
			return &ValidationError{Field: fieldName, Value: value, Message: "must have a ." + want + " extension"}
		}
		return nil
	}
}

// RegularFile requires the path to exist and not be a directory.
func RegularFile(fieldName string, value interface{}) *ValidationError {
	path, _ := value.(string)
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ValidationError{Field: fieldName, Value: value, Message: "does not exist"}
		}
		return &ValidationError{Field: fieldName, Value: value, Message: "cannot be accessed: " + err.Error()}
	}
	if !info.Mode().IsRegular() {
		return &ValidationError{Field: fieldName, Value: value, Message: "is not a regular file"}
	}
	return nil
}

// MaxFileSize bounds the file size. Missing files are left to RegularFile.
func MaxFileSize(maxBytes int64) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		path, _ := value.(string)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		if info.Size() > maxBytes {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("is %d bytes, limit is %d", info.Size(), maxBytes),
			}
		}
		return nil
	}
}

// SniffedMime requires non-empty files to carry the given content type.
// Empty files pass so extraction can report them as having no text layer.
func SniffedMime(mime string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		path, _ := value.(string)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
			return nil
		}
		detected, err := mimetype.DetectFile(path)
		if err != nil {
			return &ValidationError{Field: fieldName, Value: value, Message: "cannot be read: " + err.Error()}
		}
		if !detected.Is(mime) {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("content is %s, expected %s", detected.String(), mime),
			}
		}
		return nil
	}
}

// PDFInputRules are the checks applied to each report path before a run starts.
func PDFInputRules(maxSizeMB int) []ValidationRule {
	return []ValidationRule{
		Required,
		Extension(constants.PDFExtension),
		RegularFile,
		MaxFileSize(int64(maxSizeMB) * 1024 * 1024),
		SniffedMime(constants.PDFMimeType),
	}
}

// ValidateAndReturnError validates and returns an input validation error if validation fails
func ValidateAndReturnError(validator *Validator) error {
	if validator.HasErrors() {
		return NewInputValidationError(validator.ErrorMessage(), nil)
	}
	return nil
}
