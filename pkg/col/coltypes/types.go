// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package coltypes defines the physical types of columns flowing through the
// vectorized engine.
package coltypes

import (
	"fmt"

	"github.com/cockroachdb/redact"
)

// T represents an exec physical type - a bytes representation of a particular
// column type.
type T int

const (
	// Bool is a column of type bool.
	Bool T = iota
	// Int64 is a column of type int64.
	Int64
	// Float64 is a column of type float64.
	Float64
	// Bytes is a column of type []byte.
	Bytes
	// Decimal is a column of type apd.Decimal.
	Decimal

	// Unhandled is a temporary value that represents an unhandled type.
	Unhandled
)

// AllTypes is a slice of all handled exec physical types.
var AllTypes = []T{Bool, Int64, Float64, Bytes, Decimal}

// String implements the fmt.Stringer interface.
func (t T) String() string {
	switch t {
	case Bool:
		return "Bool"
	case Int64:
		return "Int64"
	case Float64:
		return "Float64"
	case Bytes:
		return "Bytes"
	case Decimal:
		return "Decimal"
	default:
		return fmt.Sprintf("Unhandled(%d)", int(t))
	}
}

// SafeValue implements the redact.SafeValue interface.
func (t T) SafeValue() {}

var _ redact.SafeValue = T(0)

// FromString parses the name of a type as printed by String. The match is
// case-insensitive with a few common SQL aliases.
func FromString(s string) (T, bool) {
	switch s {
	case "bool", "Bool", "BOOL", "boolean":
		return Bool, true
	case "int", "int64", "Int64", "INT", "bigint", "BIGINT":
		return Int64, true
	case "float", "float64", "Float64", "FLOAT", "double", "DOUBLE":
		return Float64, true
	case "bytes", "Bytes", "BYTES", "string", "STRING", "varchar":
		return Bytes, true
	case "decimal", "Decimal", "DECIMAL":
		return Decimal, true
	}
	return Unhandled, false
}

// TypesEqual returns whether the two type slices are identical.
func TypesEqual(a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
