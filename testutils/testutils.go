// Package testutils provides minimal assertion and requirement helpers for Go
// tests without external dependencies, in the spirit of testify's assert and
// require packages.
package testutils

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// Assert provides assertion methods that log failures but allow continuation.
type Assert struct {
	t *testing.T
}

// NewAssert creates an Assert bound to the provided testing.T instance.
func NewAssert(t *testing.T) *Assert {
	return &Assert{t: t}
}

// True asserts that the condition is true.
func (a *Assert) True(condition bool, format string, args ...any) {
	a.t.Helper()
	if !condition {
		a.t.Errorf("Expected condition to be true but was false. %s", fmt.Sprintf(format, args...))
	}
}

// False asserts that the condition is false.
func (a *Assert) False(condition bool, format string, args ...any) {
	a.t.Helper()
	if condition {
		a.t.Errorf("Expected condition to be false but was true. %s", fmt.Sprintf(format, args...))
	}
}

// Equal asserts that got equals want using reflect.DeepEqual.
func (a *Assert) Equal(want, got any, format string, args ...any) {
	a.t.Helper()
	if !reflect.DeepEqual(want, got) {
		a.t.Errorf("Expected %v but got %v. %s", want, got, fmt.Sprintf(format, args...))
	}
}

// Contains asserts that s contains substr.
func (a *Assert) Contains(s, substr string, format string, args ...any) {
	a.t.Helper()
	if !strings.Contains(s, substr) {
		a.t.Errorf("Expected %q to contain %q. %s", s, substr, fmt.Sprintf(format, args...))
	}
}

// Len asserts that the provided object has the expected length.
// Supports arrays, slices, maps, channels, and strings.
func (a *Assert) Len(object any, expected int, format string, args ...any) {
	a.t.Helper()
	rv := reflect.ValueOf(object)
	switch rv.Kind() {
	case reflect.Array, reflect.Slice, reflect.Map, reflect.Chan, reflect.String:
	default:
		a.t.Errorf("Len assertion requires array, slice, map, channel, or string but got %T", object)
		return
	}
	if rv.Len() != expected {
		a.t.Errorf("Expected length %d but got %d. %s", expected, rv.Len(), fmt.Sprintf(format, args...))
	}
}

// NoError asserts that err is nil.
func (a *Assert) NoError(err error, format string, args ...any) {
	a.t.Helper()
	if err != nil {
		a.t.Errorf("Expected no error but got: %v. %s", err, fmt.Sprintf(format, args...))
	}
}

// Error asserts that err is not nil.
func (a *Assert) Error(err error, format string, args ...any) {
	a.t.Helper()
	if err == nil {
		a.t.Errorf("Expected error but got nil. %s", fmt.Sprintf(format, args...))
	}
}

// Require provides requirement methods that stop execution on failure.
type Require struct {
	t *testing.T
}

// NewRequire creates a Require bound to the provided testing.T instance.
func NewRequire(t *testing.T) *Require {
	return &Require{t: t}
}

// True requires that the condition is true.
func (r *Require) True(condition bool, format string, args ...any) {
	r.t.Helper()
	if !condition {
		r.t.Fatalf("Required condition to be true but was false. %s", fmt.Sprintf(format, args...))
	}
}

// Equal requires that got equals want using reflect.DeepEqual.
func (r *Require) Equal(want, got any, format string, args ...any) {
	r.t.Helper()
	if !reflect.DeepEqual(want, got) {
		r.t.Fatalf("Required %v but got %v. %s", want, got, fmt.Sprintf(format, args...))
	}
}

// Len requires that the provided object has the expected length.
func (r *Require) Len(object any, expected int, format string, args ...any) {
	r.t.Helper()
	rv := reflect.ValueOf(object)
	switch rv.Kind() {
	case reflect.Array, reflect.Slice, reflect.Map, reflect.Chan, reflect.String:
	default:
		r.t.Fatalf("Len requirement requires array, slice, map, channel, or string but got %T", object)
		return
	}
	if rv.Len() != expected {
		r.t.Fatalf("Required length %d but got %d. %s", expected, rv.Len(), fmt.Sprintf(format, args...))
	}
}

// NoError requires that err is nil.
func (r *Require) NoError(err error, format string, args ...any) {
	r.t.Helper()
	if err != nil {
		r.t.Fatalf("Expected no error but got: %v. %s", err, fmt.Sprintf(format, args...))
	}
}

// Error requires that err is not nil.
func (r *Require) Error(err error, format string, args ...any) {
	r.t.Helper()
	if err == nil {
		r.t.Fatalf("Expected error but got nil. %s", fmt.Sprintf(format, args...))
	}
}
