package link

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorText(t *testing.T) {
	e := &Error{Op: "write", Port: "COM3", Kind: KindStalled, Err: errors.New("pipe broke")}
	want := "serial write on COM3: stalled: pipe broke"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}

	bare := &Error{Op: "read", Port: "COM3", Kind: KindTimeout}
	if bare.Error() != "serial read on COM3: timeout" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindStalled, true},
		{KindTimeout, true},
		{KindNotFound, false},
		{KindAccessDenied, false},
		{KindCancelled, false},
		{KindFatal, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			e := &Error{Kind: tt.kind}
			if e.Transient() != tt.want {
				t.Errorf("Transient() = %v, want %v", e.Transient(), tt.want)
			}
		})
	}
}

func TestAsError(t *testing.T) {
	inner := &Error{Op: "write", Port: "COM1", Kind: KindStalled}
	wrapped := fmt.Errorf("chunk 7: %w", inner)

	got, ok := AsError(wrapped)
	if !ok || got.Kind != KindStalled {
		t.Fatalf("AsError() = (%v, %v)", got, ok)
	}

	if _, ok := AsError(errors.New("plain")); ok {
		t.Error("AsError() matched a plain error")
	}
}

func TestClassifyUnknownErrorIsStalled(t *testing.T) {
	e := classify("write", "COM9", errors.New("kernel said no"))
	if e.Kind != KindStalled {
		t.Errorf("Kind = %s, want stalled (recovery-first policy)", e.Kind)
	}
	if !errors.Is(e, e.Err) {
		t.Error("cause not wrapped")
	}
}

func TestKindString(t *testing.T) {
	if KindAccessDenied.String() != "access denied" || Kind(99).String() == "" {
		t.Error("Kind.String() incomplete")
	}
}
