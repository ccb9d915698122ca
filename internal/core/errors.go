// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors, grouped by the component that raises them.
// Callers wrap them with fmt.Errorf("...: %w") and match with errors.Is.
var (
	// Tokenizer errors
	ErrNumberExpected   = errors.New("p4calc: number literal expected")
	ErrOperatorExpected = errors.New("p4calc: binary operator expected")

	// Sequence parser errors
	ErrTokenShapeInvalid = errors.New("p4calc: expression must be <number> <operator> <number>")
	ErrOperandRange      = errors.New("p4calc: operand does not fit in 32 bits")

	// Evaluator errors
	ErrSyntaxInvalid         = errors.New("p4calc: invalid expression syntax")
	ErrUnsupportedExpression = errors.New("p4calc: unsupported expression")

	// Codec errors
	ErrFrameTooShort   = errors.New("p4calc: frame too short")
	ErrMagicMismatch   = errors.New("p4calc: magic mismatch")
	ErrVersionMismatch = errors.New("p4calc: version mismatch")

	// Transport errors
	ErrTransportTimeout = errors.New("p4calc: transport timeout")
	ErrTransportIO      = errors.New("p4calc: transport i/o failure")
	ErrTransportUnknown = errors.New("p4calc: unknown transport")

	// Configuration errors
	ErrConfigInvalid = errors.New("p4calc: invalid configuration")
)
