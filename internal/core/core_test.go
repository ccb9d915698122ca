package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrorsWrap(t *testing.T) {
	sentinels := []error{
		ErrNumberExpected,
		ErrOperatorExpected,
		ErrTokenShapeInvalid,
		ErrOperandRange,
		ErrSyntaxInvalid,
		ErrUnsupportedExpression,
		ErrFrameTooShort,
		ErrMagicMismatch,
		ErrVersionMismatch,
		ErrTransportTimeout,
		ErrTransportIO,
		ErrTransportUnknown,
		ErrConfigInvalid,
	}

	for _, sentinel := range sentinels {
		t.Run(sentinel.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("round 3: %w", sentinel)
			if !errors.Is(wrapped, sentinel) {
				t.Errorf("errors.Is(%v, %v) = false, want true", wrapped, sentinel)
			}
		})
	}
}

func TestSentinelErrorsDistinct(t *testing.T) {
	if errors.Is(ErrFrameTooShort, ErrMagicMismatch) {
		t.Error("ErrFrameTooShort must not match ErrMagicMismatch")
	}
	if errors.Is(ErrSyntaxInvalid, ErrUnsupportedExpression) {
		t.Error("ErrSyntaxInvalid must not match ErrUnsupportedExpression")
	}
}

func TestDirectionString(t *testing.T) {
	if DirectionOut.String() != "out" {
		t.Errorf("expected out, got %s", DirectionOut)
	}
	if DirectionIn.String() != "in" {
		t.Errorf("expected in, got %s", DirectionIn)
	}
}
