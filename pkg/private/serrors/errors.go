// Copyright 2026 The securityd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package serrors provides errors that carry structured key/value context and
// an optional stack trace, and that log nicely through zap.
//
// Sentinel errors of the securityd packages are created with New and matched
// with errors.Is. Call sites attach context with Wrap or Join, for example:
//
//	return serrors.Join(trust.ErrIO, err, "op", "get", "policy", oid)
//
// errors.Is(err, err) always holds. For an error built by Wrap or Join,
// errors.Is also matches the cause and, for Join, the base error.
package serrors

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type field struct {
	key   string
	value any
}

// ctxError is the single error type of the package. Exactly one of msg and
// base describes the error itself; cause is optional.
type ctxError struct {
	msg    string
	base   error
	cause  error
	fields []field
	stack  *stack
}

func build(msg string, base, cause error, withStack bool, kv []any) *ctxError {
	fields := make([]field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, field{key: fmt.Sprint(kv[i]), value: kv[i+1]})
	}
	slices.SortStableFunc(fields, func(a, b field) int { return cmp.Compare(a.key, b.key) })
	e := &ctxError{msg: msg, base: base, cause: cause, fields: fields}
	var inner *ctxError
	if withStack && (cause == nil || !errors.As(cause, &inner)) {
		e.stack = callers()
	}
	return e
}

func (e *ctxError) head() string {
	if e.base != nil {
		return e.base.Error()
	}
	return e.msg
}

func (e *ctxError) Error() string {
	var b strings.Builder
	b.WriteString(e.head())
	if len(e.fields) > 0 {
		b.WriteString(" {")
		for i, f := range e.fields {
			if i > 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%s=%v", f.key, f.value)
		}
		b.WriteString("}")
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *ctxError) Unwrap() []error {
	var errs []error
	if e.base != nil {
		errs = append(errs, e.base)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// StackTrace returns the stack recorded when the error was created, or nil.
func (e *ctxError) StackTrace() StackTrace {
	if e.stack == nil {
		return nil
	}
	return e.stack.StackTrace()
}

// MarshalLogObject renders the message, the cause chain, the stack and the
// context as separate log fields.
func (e *ctxError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("msg", e.head())
	switch c := e.cause.(type) {
	case nil:
	case zapcore.ObjectMarshaler:
		if err := enc.AddObject("cause", c); err != nil {
			return err
		}
	default:
		enc.AddString("cause", c.Error())
	}
	if e.stack != nil {
		if err := enc.AddArray("stacktrace", e.stack); err != nil {
			return err
		}
	}
	for _, f := range e.fields {
		zap.Any(f.key, f.value).AddTo(enc)
	}
	return nil
}

// New returns an error with the given message and context and a stack trace.
func New(msg string, errCtx ...any) error {
	return build(msg, nil, nil, true, errCtx)
}

// Wrap returns an error with msg whose cause is cause. A stack trace is
// recorded unless cause already carries one.
func Wrap(msg string, cause error, errCtx ...any) error {
	return build(msg, nil, cause, true, errCtx)
}

// WrapNoStack is Wrap without a stack trace.
func WrapNoStack(msg string, cause error, errCtx ...any) error {
	return build(msg, nil, cause, false, errCtx)
}

// Join returns an error that matches both err and cause. It returns nil when
// both are nil.
func Join(err, cause error, errCtx ...any) error {
	if err == nil && cause == nil {
		return nil
	}
	return build("", err, cause, true, errCtx)
}

// JoinNoStack is Join without a stack trace.
func JoinNoStack(err, cause error, errCtx ...any) error {
	if err == nil && cause == nil {
		return nil
	}
	return build("", err, cause, false, errCtx)
}

// IsTimeout reports whether err or one of its causes is a timeout.
func IsTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// IsTemporary reports whether err or one of its causes is temporary.
func IsTemporary(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}

// List collects errors that do not abort an operation.
type List []error

func (l List) Error() string {
	msgs := make([]string, len(l))
	for i, err := range l {
		msgs[i] = err.Error()
	}
	return "[ " + strings.Join(msgs, "; ") + " ]"
}

// ToError returns nil for an empty list and the list otherwise.
func (l List) ToError() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

func (l List) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, err := range l {
		m, ok := err.(zapcore.ObjectMarshaler)
		if !ok {
			enc.AppendString(err.Error())
			continue
		}
		if err := enc.AppendObject(m); err != nil {
			return err
		}
	}
	return nil
}
