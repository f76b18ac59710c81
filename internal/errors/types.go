// Package errors provides the structured error type used by the termsim CLI
// and preview server. The presentation engines never fail; these errors come
// from configuration, transcript files and the network surfaces around them.
package errors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind decides how an error is reported.
type Kind uint8

const (
	KindInternal Kind = iota
	// KindInvalid is bad input from a user or client.
	KindInvalid
	// KindDenied is input rejected as unsafe: a foreign origin or a path
	// escaping the working directory.
	KindDenied
	KindIO
	KindNetwork
	KindConfig
)

var kindNames = [...]string{"internal", "invalid", "denied", "io", "network", "config"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Error codes reported by the classify API and logged by the handler.
const (
	ErrCodeInvalidPath      = "ERR_INVALID_PATH"
	ErrCodePathTraversal    = "ERR_PATH_TRAVERSAL"
	ErrCodeInvalidOrigin    = "ERR_INVALID_ORIGIN"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeReadFailed       = "ERR_READ_FAILED"
	ErrCodeWriteFailed      = "ERR_WRITE_FAILED"
	ErrCodeWatchFailed      = "ERR_WATCH_FAILED"
	ErrCodeInvalidFormat    = "ERR_INVALID_FORMAT"
	ErrCodeInvalidInterval  = "ERR_INVALID_INTERVAL"
	ErrCodeServerFailed     = "ERR_SERVER_FAILED"
	ErrCodeInternalError    = "ERR_INTERNAL"
	ErrCodeValidationFailed = "ERR_VALIDATION_FAILED"
)

// Context keys with accessors.
const (
	KeyPath    = "path"
	KeySession = "session"
)

// TermsimError carries a code, the failing component and the transcript path
// or websocket session it concerns.
type TermsimError struct {
	Kind      Kind
	Code      string
	Message   string
	Cause     error
	Component string
	Context   map[string]interface{}
}

// New creates an error without a cause.
func New(kind Kind, code, message string) *TermsimError {
	return &TermsimError{Kind: kind, Code: code, Message: message}
}

// Wrap creates an error around cause.
func Wrap(kind Kind, code, message string, cause error) *TermsimError {
	return &TermsimError{Kind: kind, Code: code, Message: message, Cause: cause}
}

// Error formats as "component: message path [code]: cause".
func (e *TermsimError) Error() string {
	var b strings.Builder

	if e.Component != "" {
		b.WriteString(e.Component)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if path := e.Path(); path != "" {
		fmt.Fprintf(&b, " %q", path)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *TermsimError) Unwrap() error {
	return e.Cause
}

// Is matches any TermsimError with the same code.
func (e *TermsimError) Is(target error) bool {
	t, ok := target.(*TermsimError)
	return ok && t.Code != "" && e.Code == t.Code
}

// With attaches a context value.
func (e *TermsimError) With(key string, value interface{}) *TermsimError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithPath records the transcript or watched path.
func (e *TermsimError) WithPath(path string) *TermsimError {
	return e.With(KeyPath, path)
}

// WithSession records the websocket session id.
func (e *TermsimError) WithSession(id string) *TermsimError {
	return e.With(KeySession, id)
}

func (e *TermsimError) WithComponent(component string) *TermsimError {
	e.Component = component
	return e
}

// Path returns the recorded path, if any.
func (e *TermsimError) Path() string {
	s, _ := e.Context[KeyPath].(string)
	return s
}

// Session returns the recorded session id, if any.
func (e *TermsimError) Session() string {
	s, _ := e.Context[KeySession].(string)
	return s
}

// KindOf reports the kind of the first TermsimError in err's chain, or
// KindInternal for foreign errors.
func KindOf(err error) Kind {
	var te *TermsimError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindInternal
}

// Logger is the subset of logging.Logger the handler needs.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// ErrorHandler logs errors at a level chosen by kind.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err. Invalid input and network drops are warnings; everything
// else is an error.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var te *TermsimError
	if !errors.As(err, &te) {
		h.logger.Error(ctx, err, "Unexpected error")
		return
	}

	fields := []interface{}{"kind", te.Kind.String(), "code", te.Code}
	if te.Component != "" {
		fields = append(fields, "component", te.Component)
	}
	keys := make([]string, 0, len(te.Context))
	for k := range te.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, k, te.Context[k])
	}

	switch te.Kind {
	case KindInvalid, KindNetwork:
		h.logger.Warn(ctx, err, "Request failed", fields...)
	case KindDenied:
		h.logger.Error(ctx, err, "Rejected unsafe input", fields...)
	default:
		h.logger.Error(ctx, err, "Operation failed", fields...)
	}
}

// ErrInvalidPath reports an unusable file path.
func ErrInvalidPath(path string) *TermsimError {
	return New(KindInvalid, ErrCodeInvalidPath, "invalid path").WithPath(path)
}

// ErrPathTraversal reports a path escaping the working directory.
func ErrPathTraversal(path string) *TermsimError {
	return New(KindDenied, ErrCodePathTraversal, "path escapes the working directory").WithPath(path)
}

// ErrInvalidOrigin reports a rejected websocket origin.
func ErrInvalidOrigin(origin string) *TermsimError {
	return New(KindDenied, ErrCodeInvalidOrigin, "origin not allowed").With("origin", origin)
}

// ErrFileNotFound reports a missing transcript file.
func ErrFileNotFound(path string, cause error) *TermsimError {
	return Wrap(KindIO, ErrCodeFileNotFound, "transcript not found", cause).WithPath(path)
}

// ErrReadFailed reports a transcript that exists but could not be read.
func ErrReadFailed(path string, cause error) *TermsimError {
	return Wrap(KindIO, ErrCodeReadFailed, "cannot read transcript", cause).WithPath(path)
}
