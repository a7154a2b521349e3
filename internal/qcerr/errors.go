// Package qcerr defines the error taxonomy shared by the report parsers.
package qcerr

import (
	"errors"
	"fmt"
)

// Kind classifies a parse failure.
type Kind string

const (
	KindSectionNotFound     Kind = "section_not_found"
	KindColumnCountMismatch Kind = "column_count_mismatch"
	KindMalformedDescriptor Kind = "malformed_descriptor"
	KindMalformedValue      Kind = "malformed_value"
)

var (
	ErrSectionNotFound     = errors.New("section not found")
	ErrColumnCountMismatch = errors.New("column count mismatch")
	ErrMalformedDescriptor = errors.New("malformed taxon descriptor")
	ErrMalformedValue      = errors.New("malformed numeric value")

	// ErrNoData signals that no input produced a usable record. Callers
	// treat it as "nothing to report", not as a failure.
	ErrNoData = errors.New("no data found")
)

// ParseError is returned by the text parsers. Section names the block
// header or field that failed; Detail carries the offending input.
type ParseError struct {
	Kind    Kind
	Section string
	Detail  string
}

func (e *ParseError) Error() string {
	msg := string(e.Kind)
	if e.Section != "" {
		msg += fmt.Sprintf(" (%s)", e.Section)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is lets errors.Is match a ParseError against the per-kind sentinels.
func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrSectionNotFound:
		return e.Kind == KindSectionNotFound
	case ErrColumnCountMismatch:
		return e.Kind == KindColumnCountMismatch
	case ErrMalformedDescriptor:
		return e.Kind == KindMalformedDescriptor
	case ErrMalformedValue:
		return e.Kind == KindMalformedValue
	}
	return false
}

func SectionNotFound(section, detail string) error {
	return &ParseError{Kind: KindSectionNotFound, Section: section, Detail: detail}
}

func ColumnCountMismatch(section string, want, got int) error {
	return &ParseError{
		Kind:    KindColumnCountMismatch,
		Section: section,
		Detail:  fmt.Sprintf("header has %d columns, row has %d", want, got),
	}
}

func MalformedDescriptor(detail string) error {
	return &ParseError{Kind: KindMalformedDescriptor, Detail: fmt.Sprintf("%q", detail)}
}

func MalformedValue(section, value string) error {
	return &ParseError{Kind: KindMalformedValue, Section: section, Detail: fmt.Sprintf("%q", value)}
}

// DecodeError wraps a structured-input decode failure for one file.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Source == "" {
		return "decode json: " + e.Err.Error()
	}
	return fmt.Sprintf("decode json %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
