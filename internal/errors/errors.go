/*
MIT License

# Copyright (c) 2025 OcomSoft

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Common error types for the knexdump tool

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// ConfigError reports settings that are missing or unusable
type ConfigError struct {
	Missing []string
	Message string
}

func (e ConfigError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("configuration error: missing %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// IntrospectionError wraps a database failure while reading one entity
type IntrospectionError struct {
	Entity    string
	Operation string
	Err       error
}

func (e IntrospectionError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("introspection error during %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("introspection error during %s of %s: %v", e.Operation, e.Entity, e.Err)
}

func (e IntrospectionError) Unwrap() error {
	return e.Err
}

type WriteError struct {
	Path string
	Err  error
}

func (e WriteError) Error() string {
	return fmt.Sprintf("write error for %s: %v", e.Path, e.Err)
}

func (e WriteError) Unwrap() error {
	return e.Err
}

// Error wrapping helpers
func NewValidationError(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

func NewConfigError(message string, missing ...string) error {
	return ConfigError{Missing: missing, Message: message}
}

func NewIntrospectionError(entity, operation string, err error) error {
	return IntrospectionError{Entity: entity, Operation: operation, Err: err}
}

func NewWriteError(path string, err error) error {
	return WriteError{Path: path, Err: err}
}

// Utility functions for error checking. They look through wrapped errors.
func IsValidationError(err error) bool {
	var target ValidationError
	return stderrors.As(err, &target)
}

func IsConfigError(err error) bool {
	var target ConfigError
	return stderrors.As(err, &target)
}

func IsIntrospectionError(err error) bool {
	var target IntrospectionError
	return stderrors.As(err, &target)
}

func IsWriteError(err error) bool {
	var target WriteError
	return stderrors.As(err, &target)
}
