// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"errors"
	"fmt"
)

// ErrMalformedHierarchy matches every LoadError of kind MalformedHierarchy.
var ErrMalformedHierarchy = errors.New("malformed hierarchy")

// LoadErrorKind classifies dataset load failures.
type LoadErrorKind int

const (
	// LoadErrorUnreadable means the source could not be read or decoded.
	LoadErrorUnreadable LoadErrorKind = iota
	// LoadErrorMalformedHierarchy means the source decoded but is not a
	// valid tree.
	LoadErrorMalformedHierarchy
)

// LoadError is returned by Load when a dataset cannot be used. It is fatal:
// search features must not start without a dataset.
type LoadError struct {
	Kind    LoadErrorKind
	Level   Level
	ID      string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	var where string
	if e.Level != 0 {
		where = fmt.Sprintf(" (%s %q)", e.Level, e.ID)
	}

	if e.Err != nil {
		return fmt.Sprintf("loading dataset: %s%s: %v", e.Message, where, e.Err)
	}

	return fmt.Sprintf("loading dataset: %s%s", e.Message, where)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrMalformedHierarchy) work for hierarchy errors.
func (e *LoadError) Is(target error) bool {
	return target == ErrMalformedHierarchy && e.Kind == LoadErrorMalformedHierarchy
}

func malformed(level Level, id, format string, args ...any) *LoadError {
	return &LoadError{
		Kind:    LoadErrorMalformedHierarchy,
		Level:   level,
		ID:      id,
		Message: fmt.Sprintf(format, args...),
	}
}
