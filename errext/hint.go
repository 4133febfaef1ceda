// Package errext contains extensions to plain Go errors that the CLI uses to
// pick exit codes and to show remedies next to a failure.
package errext

import "errors"

// HasHint is an error with a human-readable suggestion on how to fix it.
type HasHint interface {
	error
	Hint() string
}

// WithHint attaches hint to err. If err already had a hint the result reads
// "new hint (old hint)". A nil err stays nil.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return withHint{err, hint}
}

type withHint struct {
	error
	hint string
}

func (wh withHint) Unwrap() error {
	return wh.error
}

func (wh withHint) Hint() string {
	hint := wh.hint
	var oldhint HasHint
	if errors.As(wh.error, &oldhint) {
		hint = hint + " (" + oldhint.Hint() + ")"
	}

	return hint
}
