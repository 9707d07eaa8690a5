package apperr

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
)

// Error codes carried on every error that crosses a package boundary.
const (
	CodeParse     = "parse_error"
	CodeIndex     = "index_error"
	CodeTransient = "transient"
	CodeFatal     = "fatal"
)

func Parse(format string, args ...any) error {
	return oops.Code(CodeParse).Errorf(format, args...)
}

func Index(format string, args ...any) error {
	return oops.Code(CodeIndex).Errorf(format, args...)
}

func Transient(err error, msg string) error {
	if err == nil {
		return oops.Code(CodeTransient).Errorf("%s", msg)
	}

	return oops.Code(CodeTransient).Wrapf(err, "%s", msg)
}

func Fatal(err error, msg string) error {
	if err == nil {
		return oops.Code(CodeFatal).Errorf("%s", msg)
	}

	return oops.Code(CodeFatal).Wrapf(err, "%s", msg)
}

// CodeOf returns the taxonomy code of err, or empty string for plain errors.
func CodeOf(err error) string {
	var oopsErr oops.OopsError
	if errors.As(err, &oopsErr) {
		code, _ := oopsErr.Code().(string)
		return code
	}

	return ""
}

func IsParse(err error) bool {
	return CodeOf(err) == CodeParse
}

func IsIndex(err error) bool {
	return CodeOf(err) == CodeIndex
}

func IsTransient(err error) bool {
	return CodeOf(err) == CodeTransient
}

func IsFatal(err error) bool {
	return CodeOf(err) == CodeFatal
}

// Retry runs fn up to attempts times with exponential backoff between tries.
// Only transient errors are retried; any other error is returned immediately.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	var err error

	delay := baseDelay

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Transient(context.Cause(ctx), "retry canceled")
			case <-time.After(delay):
			}

			delay *= 2
		}

		if err = fn(); err == nil {
			return nil
		}

		if !IsTransient(err) {
			return err
		}
	}

	return err
}
