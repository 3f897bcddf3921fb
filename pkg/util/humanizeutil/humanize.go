// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package humanizeutil renders and parses byte sizes and durations in the
// forms used by flags, config files and summaries.
package humanizeutil

import (
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Bytes is a memory size such as the build memory budget or the task memory
// limit. It reads "64 MiB", "1GiB" or a plain number of bytes from YAML and
// from flags, and writes itself back in IEC units.
type Bytes int64

var _ yaml.Unmarshaler = (*Bytes)(nil)
var _ yaml.Marshaler = Bytes(0)
var _ pflag.Value = (*Bytes)(nil)

// parseBytes accepts a leading minus so that a negative limit reaches config
// validation with its value instead of failing as a syntax error.
func parseBytes(s string) (Bytes, error) {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" {
		return 0, errors.Newf("invalid byte size %q", s)
	}
	v, err := humanize.ParseBytes(digits)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid byte size %q", s)
	}
	if v > math.MaxInt64 {
		return 0, errors.Newf("byte size %q overflows int64", s)
	}
	if len(digits) < len(s) {
		return -Bytes(v), nil
	}
	return Bytes(v), nil
}

func (b *Bytes) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.Newf("line %d: expected a byte size", value.Line)
	}
	v, err := parseBytes(value.Value)
	if err != nil {
		return errors.Wrapf(err, "line %d", value.Line)
	}
	*b = v
	return nil
}

func (b Bytes) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}

func (b Bytes) String() string {
	if b < 0 {
		return "-" + humanize.IBytes(uint64(-b))
	}
	return humanize.IBytes(uint64(b))
}

// Set parses a flag argument. The flag keeps its old value on error.
func (b *Bytes) Set(s string) error {
	v, err := parseBytes(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Type names the flag argument in usage output.
func (b *Bytes) Type() string { return "bytes" }
