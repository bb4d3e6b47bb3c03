package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKind_String(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected string
	}{
		{ErrSetup, "setup error"},
		{ErrIO, "i/o error"},
		{ErrIntrospect, "introspection error"},
		{ErrConfig, "invalid config"},
		{ErrInternal, "internal error"},
		{ErrorKind(999), "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("ErrorKind.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTtymonError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *TtymonError
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "<nil>",
		},
		{
			name: "full error",
			err: &TtymonError{
				Op:     "resolve container",
				Kind:   ErrIntrospect,
				Detail: "no conmon peer",
				Err:    fmt.Errorf("inode not found"),
			},
			expected: "resolve container: no conmon peer: inode not found",
		},
		{
			name: "without detail",
			err: &TtymonError{
				Op:   "raw mode",
				Kind: ErrSetup,
			},
			expected: "raw mode: setup error",
		},
		{
			name: "kind only",
			err: &TtymonError{
				Kind: ErrIO,
			},
			expected: "i/o error",
		},
		{
			name: "with underlying error",
			err: &TtymonError{
				Op:   "read",
				Kind: ErrIO,
				Err:  fmt.Errorf("broken pipe"),
			},
			expected: "read: i/o error: broken pipe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("TtymonError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTtymonError_Unwrap(t *testing.T) {
	underlying := fmt.Errorf("underlying error")
	err := &TtymonError{
		Op:   "test",
		Kind: ErrInternal,
		Err:  underlying,
	}

	if got := err.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	var nilErr *TtymonError
	if got := nilErr.Unwrap(); got != nil {
		t.Errorf("nil.Unwrap() = %v, want nil", got)
	}
}

func TestTtymonError_Is(t *testing.T) {
	err1 := &TtymonError{Kind: ErrIntrospect, Op: "test1"}
	err2 := &TtymonError{Kind: ErrIntrospect, Op: "test2"}
	err3 := &TtymonError{Kind: ErrSetup, Op: "test3"}

	if !err1.Is(err2) {
		t.Error("err1.Is(err2) should be true (same kind)")
	}

	if err1.Is(err3) {
		t.Error("err1.Is(err3) should be false (different kind)")
	}

	if err1.Is(fmt.Errorf("some error")) {
		t.Error("err1.Is(fmt.Errorf(...)) should be false")
	}

	var nilErr *TtymonError
	if !nilErr.Is(nil) {
		t.Error("nil.Is(nil) should be true")
	}
}

func TestNew(t *testing.T) {
	err := New(ErrConfig, "validate", "container id is empty")

	if err.Kind != ErrConfig {
		t.Errorf("Kind = %v, want %v", err.Kind, ErrConfig)
	}
	if err.Op != "validate" {
		t.Errorf("Op = %q, want %q", err.Op, "validate")
	}
	if err.Detail != "container id is empty" {
		t.Errorf("Detail = %q, want %q", err.Detail, "container id is empty")
	}
}

func TestWrap(t *testing.T) {
	underlying := fmt.Errorf("permission denied")
	err := Wrap(underlying, ErrIO, "open file")

	if err.Err != underlying {
		t.Error("Wrapped error should preserve underlying error")
	}
	if err.Kind != ErrIO {
		t.Errorf("Kind = %v, want %v", err.Kind, ErrIO)
	}
	if err.Op != "open file" {
		t.Errorf("Op = %q, want %q", err.Op, "open file")
	}
}

func TestWrapWithDetail(t *testing.T) {
	underlying := fmt.Errorf("exit status 1")
	err := WrapWithDetail(underlying, ErrIntrospect, "inspect", "podman inspect failed")

	if err.Detail != "podman inspect failed" {
		t.Errorf("Detail = %q, want %q", err.Detail, "podman inspect failed")
	}
}

func TestIsKind(t *testing.T) {
	err := &TtymonError{Kind: ErrIntrospect}
	wrapped := fmt.Errorf("wrapped: %w", err)

	if !IsKind(err, ErrIntrospect) {
		t.Error("IsKind(err, ErrIntrospect) should be true")
	}
	if !IsKind(wrapped, ErrIntrospect) {
		t.Error("IsKind(wrapped, ErrIntrospect) should be true")
	}
	if IsKind(err, ErrSetup) {
		t.Error("IsKind(err, ErrSetup) should be false")
	}
	if IsKind(fmt.Errorf("plain error"), ErrIntrospect) {
		t.Error("IsKind(plain error, ErrIntrospect) should be false")
	}
}

func TestGetKind(t *testing.T) {
	err := &TtymonError{Kind: ErrIO}
	wrapped := fmt.Errorf("wrapped: %w", err)

	kind, ok := GetKind(err)
	if !ok || kind != ErrIO {
		t.Errorf("GetKind(err) = (%v, %v), want (%v, true)", kind, ok, ErrIO)
	}

	kind, ok = GetKind(wrapped)
	if !ok || kind != ErrIO {
		t.Errorf("GetKind(wrapped) = (%v, %v), want (%v, true)", kind, ok, ErrIO)
	}

	_, ok = GetKind(fmt.Errorf("plain error"))
	if ok {
		t.Error("GetKind(plain error) should return false")
	}
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *TtymonError
		kind ErrorKind
	}{
		{"ErrPTYAllocate", ErrPTYAllocate, ErrSetup},
		{"ErrForkFailed", ErrForkFailed, ErrSetup},
		{"ErrNoSupervisor", ErrNoSupervisor, ErrIntrospect},
		{"ErrInspectorFailed", ErrInspectorFailed, ErrIntrospect},
		{"ErrInvalidContainerID", ErrInvalidContainerID, ErrConfig},
		{"ErrPathTraversal", ErrPathTraversal, ErrConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("%s.Kind = %v, want %v", tt.name, tt.err.Kind, tt.kind)
			}
			wrapped := Wrap(fmt.Errorf("underlying"), tt.kind, "test")
			if !errors.Is(wrapped, tt.err) {
				t.Errorf("errors.Is(wrapped, %s) should be true", tt.name)
			}
		})
	}
}

func TestErrorChain(t *testing.T) {
	underlying := fmt.Errorf("file not found")
	err1 := Wrap(underlying, ErrIntrospect, "resolve peer")
	err2 := fmt.Errorf("tracker update failed: %w", err1)

	if !errors.Is(err2, ErrNoSupervisor) {
		t.Error("errors.Is should find ErrNoSupervisor in chain")
	}

	var terr *TtymonError
	if !errors.As(err2, &terr) {
		t.Error("errors.As should find TtymonError in chain")
	}
	if terr.Op != "resolve peer" {
		t.Errorf("terr.Op = %q, want %q", terr.Op, "resolve peer")
	}

	if errors.Unwrap(err1) != underlying {
		t.Error("Unwrap should return underlying error")
	}
}
