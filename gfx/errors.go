// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	log "github.com/sirupsen/logrus"
)

// Kind classifies renderer errors.
type Kind int

const (
	// KindFatal is an irrecoverable driver or API failure.
	KindFatal Kind = iota + 1

	// KindUnavailable means a capability or backend is missing.
	KindUnavailable

	// KindContract is a caller bug.
	KindContract
)

func (k Kind) String() string {
	switch k {
	case KindFatal:
		return "fatal"
	case KindUnavailable:
		return "unavailable"
	case KindContract:
		return "contract violation"
	default:
		return "unknown"
	}
}

var (
	// ErrBackendUnavailable is returned when the selected backend cannot be
	// constructed in this build or on this host.
	ErrBackendUnavailable = &Error{Kind: KindUnavailable, Desc: "backend unavailable"}

	// ErrSwapchainOutOfDate is returned by acquire and present when the
	// swapchain no longer matches the surface and must be recreated.
	ErrSwapchainOutOfDate = errors.New("gfx: swapchain out of date")

	// ErrNotInitialised is returned by operations called before Init.
	ErrNotInitialised = errors.New("gfx: renderer not initialised")
)

// Error is a renderer failure with the native code that caused it and the
// place it was detected.
type Error struct {
	Kind    Kind
	Backend Backend
	Op      string
	Code    int64
	Desc    string
	File    string
	Line    int
}

// NewFatal reports a failed native call. The caller's file and line are
// recorded.
func NewFatal(b Backend, op string, code int64, desc string) *Error {
	return NewFatalAt(1, b, op, code, desc)
}

// NewFatalAt is NewFatal for helpers: skip counts the stack frames above the
// caller of NewFatalAt to attribute the error to.
func NewFatalAt(skip int, b Backend, op string, code int64, desc string) *Error {
	e := &Error{
		Kind:    KindFatal,
		Backend: b,
		Op:      op,
		Code:    code,
		Desc:    desc,
	}
	if _, file, line, ok := runtime.Caller(skip + 1); ok {
		e.File = filepath.Base(file)
		e.Line = line
	}
	return e
}

// Unavailable wraps ErrBackendUnavailable with a reason.
func Unavailable(b Backend, desc string) *Error {
	return &Error{Kind: KindUnavailable, Backend: b, Desc: desc}
}

func (e *Error) Error() string {
	msg := e.Desc
	if e.Op != "" {
		msg = fmt.Sprintf("%s(): %s", e.Op, e.Desc)
	}
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	if e.Backend != 0 {
		msg = e.Backend.String() + ": " + msg
	}
	if e.File != "" {
		msg = fmt.Sprintf("%s at %s:%d", msg, e.File, e.Line)
	}
	return msg
}

// Is matches any other *Error of the same kind, so errors.Is(err,
// ErrBackendUnavailable) holds for every unavailability.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Fields returns the error as logrus fields.
func (e *Error) Fields() log.Fields {
	f := log.Fields{"kind": e.Kind.String()}
	if e.Backend != 0 {
		f["backend"] = e.Backend.String()
	}
	if e.Op != "" {
		f["op"] = e.Op
	}
	if e.Code != 0 {
		f["code"] = e.Code
	}
	if e.File != "" {
		f["at"] = fmt.Sprintf("%s:%d", e.File, e.Line)
	}
	return f
}

// Fatal logs err with its context and terminates the process.
func Fatal(logger log.FieldLogger, err error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	var ge *Error
	if errors.As(err, &ge) {
		logger.WithFields(ge.Fields()).Fatal(ge.Desc)
		return
	}
	logger.Fatal(err)
}

// ContractViolation is the panic value raised when the renderer is misused.
type ContractViolation struct {
	Msg string
}

func (c ContractViolation) Error() string {
	return "gfx: " + c.Msg
}

// Violationf panics with a ContractViolation.
func Violationf(format string, args ...interface{}) {
	panic(ContractViolation{Msg: fmt.Sprintf(format, args...)})
}
