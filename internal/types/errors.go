package types

import (
	"github.com/cockroachdb/errors"
)

// Error kinds of a conversion. Concrete errors are marked with one of these,
// so errors.Is matches through any later wrapping.
var (
	ErrMalformedInput = errors.New("malformed input")
	ErrIOFailure      = errors.New("io failure")
)

const malformedHint = "the input must be a JSON array of objects, e.g. the output of `gh api --paginate repos/OWNER/REPO/issues`"

// MalformedInput marks err as ErrMalformedInput. A nil err creates a new
// error from the message.
func MalformedInput(err error, format string, args ...interface{}) error {
	if err == nil {
		err = errors.Newf(format, args...)
	} else {
		err = errors.Wrapf(err, format, args...)
	}
	return errors.Mark(errors.WithHint(err, malformedHint), ErrMalformedInput)
}

// IOFailure marks err as ErrIOFailure.
func IOFailure(err error, format string, args ...interface{}) error {
	if err == nil {
		err = errors.Newf(format, args...)
	} else {
		err = errors.Wrapf(err, format, args...)
	}
	return errors.Mark(err, ErrIOFailure)
}
