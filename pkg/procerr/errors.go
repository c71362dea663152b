package procerr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies a processing failure.
type Kind string

const (
	// KindFileValidation is raised before extraction for size, type or path problems.
	KindFileValidation Kind = "file_validation_error"
	// KindTextExtraction is raised when every extraction method yielded nothing.
	KindTextExtraction Kind = "text_extraction_error"
	// KindAnalysis is raised when analysis could not produce a result.
	KindAnalysis Kind = "ai_analysis_error"
	// KindPublish is raised when the result sink rejected an event after all retries.
	KindPublish Kind = "sns_publish_error"
	// KindStorage is raised when the object could not be fetched.
	KindStorage Kind = "storage_error"
	// KindProcessing covers anything unexpected.
	KindProcessing Kind = "processing_error"
)

// Error is a classified processing failure with structured context.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]string
	cause   error
}

// New creates an Error with no underlying cause.
func New(kind Kind, message string, context map[string]string) (err *Error) {
	err = &Error{
		Kind:    kind,
		Message: message,
		Context: context,
	}
	return err
}

// Wrap creates an Error around cause. The cause stays reachable through errors.Is and errors.As.
func Wrap(kind Kind, cause error, message string, context map[string]string) (err *Error) {
	err = New(kind, message, context)
	err.cause = cause
	return err
}

func (e *Error) Error() (msg string) {
	msg = fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.cause.Error())
	}
	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() (cause error) {
	cause = e.cause
	return cause
}

// Cause returns the wrapped cause for github.com/pkg/errors.Cause.
func (e *Error) Cause() (cause error) {
	cause = e.cause
	return cause
}

// Descriptor is the user-visible shape of a failure.
type Descriptor struct {
	Kind    Kind              `json:"error_type"`
	Message string            `json:"error_message"`
	Context map[string]string `json:"context,omitempty"`
}

// Describe converts any error into a Descriptor. Errors outside the taxonomy become processing errors.
func Describe(err error) (d Descriptor) {
	if err == nil {
		return d
	}

	var perr *Error
	if errors.As(err, &perr) {
		d = Descriptor{
			Kind:    perr.Kind,
			Message: perr.Message,
			Context: perr.Context,
		}
		if perr.cause != nil && !strings.Contains(perr.Message, perr.cause.Error()) {
			d.Message = fmt.Sprintf("%s: %s", perr.Message, perr.cause.Error())
		}
		return d
	}

	d = Descriptor{
		Kind:    KindProcessing,
		Message: err.Error(),
	}
	return d
}

// KindOf reports the kind of err, or KindProcessing if err is not classified.
func KindOf(err error) (kind Kind) {
	kind = KindProcessing
	var perr *Error
	if errors.As(err, &perr) {
		kind = perr.Kind
	}
	return kind
}

// String renders the context as sorted key=value pairs.
func (d Descriptor) String() (s string) {
	keys := make([]string, 0, len(d.Context))
	for k := range d.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+d.Context[k])
	}

	s = fmt.Sprintf("%s: %s", d.Kind, d.Message)
	if len(parts) > 0 {
		s = fmt.Sprintf("%s (%s)", s, strings.Join(parts, ", "))
	}
	return s
}
