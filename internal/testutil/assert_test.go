package testutil

import (
	"errors"
	"fmt"
	"testing"
)

// These tests verify the assertion helpers work correctly.
// Since we can't mock *testing.T, we test success cases directly
// and test the formatMessage helper which is internally testable.

func TestAssertEqual_Success(t *testing.T) {
	AssertEqual(t, "Kb2", "Kb2")
	AssertEqual(t, 42, 42)
	AssertEqual(t, []string{"Ra6", "Rb6"}, []string{"Ra6", "Rb6"})
	AssertEqual(t, nil, nil)
	AssertEqual(t, "hello", "hello", "value should be %s", "hello")
}

func TestAssertSameElements_Success(t *testing.T) {
	AssertSameElements(t, []string{"Rc6", "Ra6", "Rb6"}, []string{"Ra6", "Rb6", "Rc6"})
	AssertSameElements(t, nil, []string{})
}

func TestAssertNoError_Success(t *testing.T) {
	AssertNoError(t, nil)
	AssertNoError(t, nil, "operation should succeed")
}

func TestAssertError_Success(t *testing.T) {
	AssertError(t, errors.New("test error"))
	AssertError(t, errors.New("test"), "expected error from %s", "operation")
}

func TestAssertErrorIs_Success(t *testing.T) {
	sentinel := errors.New("sentinel")
	AssertErrorIs(t, fmt.Errorf("wrapped: %w", sentinel), sentinel)
}

func TestAssertContains_Success(t *testing.T) {
	AssertContains(t, "(and check mate)", "check")
	AssertContains(t, "test", "")
}

func TestAssertTrue_Success(t *testing.T) {
	AssertTrue(t, true)
	AssertTrue(t, len("hello") == 5)
}

func TestAssertFalse_Success(t *testing.T) {
	AssertFalse(t, false)
	AssertFalse(t, len("hello") == 0)
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name string
		args []interface{}
		want string
	}{
		{"empty", nil, ""},
		{"single string", []interface{}{"hello"}, "hello"},
		{"single non-string", []interface{}{42}, "42"},
		{"format string", []interface{}{"value is %d", 42}, "value is 42"},
		{"non-string first", []interface{}{42, "ignored"}, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatMessage(tt.args...); got != tt.want {
				t.Errorf("formatMessage() = %q; want %q", got, tt.want)
			}
		})
	}
}
