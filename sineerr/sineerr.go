// Copyright (c) 2020-2023, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package sineerr classifies the error kinds the orchestrator must react to
// differently: configuration errors abort a deploy, external-unavailable
// errors pause updates, partial tc failures are retried and logged.
package sineerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error for orchestrator-level handling.
type Kind int

const (
	// KindConfiguration covers bad YAML, unknown node references. Fatal at
	// deploy time, never expected at runtime.
	KindConfiguration Kind = iota
	// KindExternalUnavailable covers a channel server or container-lab
	// binary that cannot be reached.
	KindExternalUnavailable
	// KindTCFailure covers a single-link tc push failure; retried by the
	// caller before escalating.
	KindTCFailure
	// KindDown is not a failure: it marks the normal "link down" state.
	KindDown
	// KindShutdown covers cooperative teardown in progress.
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindExternalUnavailable:
		return "external_unavailable"
	case KindTCFailure:
		return "tc_failure"
	case KindDown:
		return "down"
	case KindShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind, keeping Unwrap intact so
// errors.Is/errors.As continue to work against the wrapped cause.
type Error struct {
	Kind  Kind
	cause error
	msg   string
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.msg, e.cause.Error())
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Wrap attaches kind and a message to cause, preserving it for errors.As.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:  kind,
		cause: errors.WithStack(cause),
		msg:   fmt.Sprintf(format, args...),
	}
}

// New creates a kinded error with no wrapped cause.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Error; ok is false otherwise.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}
