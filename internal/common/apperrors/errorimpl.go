package apperrors

import (
	"errors"
	"strings"
)

type appError struct {
	msg         string
	base        error
	wrapped     []error
	statusCode  int
	code        int
	expandError bool
	prefix      string
	suffix      string
}

// New creates a root error with the given message.
func New(msg string) Error {
	return &appError{msg: msg}
}

func (e *appError) Error() string {
	msg := e.msg
	if e.prefix != "" {
		msg = e.prefix + ": " + msg
	}
	if e.suffix != "" {
		msg = msg + ": " + e.suffix
	}
	return msg
}

func (e *appError) ErrorAll() string {
	if !e.expandError || len(e.wrapped) == 0 {
		return e.Error()
	}
	var b strings.Builder
	b.WriteString(e.Error())
	for _, err := range e.wrapped {
		if err == nil || err == e.base {
			continue
		}
		b.WriteString("; ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *appError) Unwrap() error {
	return e.base
}

func (e *appError) UnwrapAll() []error {
	return e.wrapped
}

// derive returns a child of e carrying msg. Codes and the expansion flag are
// inherited so a sentinel's classification survives every derivation.
func (e *appError) derive(msg string, errs []error) *appError {
	child := &appError{
		msg:         msg,
		base:        e,
		statusCode:  e.statusCode,
		code:        e.code,
		expandError: e.expandError,
	}
	for _, err := range errs {
		if err != nil {
			child.wrapped = append(child.wrapped, err)
		}
	}
	return child
}

func (e *appError) New(msg string) Error {
	return e.derive(msg, nil)
}

func (e *appError) Msg(msg string) Error {
	return e.derive(msg, append([]error{e}, e.wrapped...))
}

func (e *appError) MsgErr(msg string, errs ...error) Error {
	return e.derive(msg, append([]error{e}, errs...))
}

func (e *appError) Err(errs ...error) Error {
	return e.derive(e.msg, append([]error{e}, errs...))
}

func (e *appError) clone() *appError {
	cp := *e
	return &cp
}

func (e *appError) Prefix(p string) Error {
	cp := e.clone()
	cp.prefix = p
	return cp
}

func (e *appError) Suffix(s string) Error {
	cp := e.clone()
	cp.suffix = s
	return cp
}

func (e *appError) SetExpandError(flag bool) Error {
	cp := e.clone()
	cp.expandError = flag
	return cp
}

func (e *appError) SetStatusCode(code int) Error {
	cp := e.clone()
	cp.statusCode = code
	return cp
}

func (e *appError) StatusCode() int {
	return e.statusCode
}

func (e *appError) SetCode(code int) Error {
	cp := e.clone()
	cp.code = code
	return cp
}

func (e *appError) Code() int {
	return e.code
}

// Is reports whether target is the base chain or one of the wrapped errors.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.wrapped {
		if err == e {
			continue
		}
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
