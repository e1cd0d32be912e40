// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package planar

import "errors"

// Sentinel errors returned by schema construction and store operations.
// Callers match them with errors.Is; the returned errors carry context
// such as the field name or the offending index.
var (
	// ErrSchema reports an invalid schema: an empty or duplicate field name,
	// an unknown kind, or a Go type that cannot be described as a record.
	ErrSchema = errors.New("planar: invalid schema")

	// ErrOutOfRange reports an index >= Len().
	ErrOutOfRange = errors.New("planar: index out of range")

	// ErrColumnLength reports columns of unequal length, or a column whose
	// byte length is not a multiple of the field's element size.
	ErrColumnLength = errors.New("planar: column length mismatch")

	// ErrValueType reports a record value that does not fit its field:
	// wrong Go type, wrong array length, or a number outside the kind's range.
	ErrValueType = errors.New("planar: value does not match field")
)
