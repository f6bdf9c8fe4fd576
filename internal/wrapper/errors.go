package wrapper

// invalidInputError marks a request the caller must fix (HTTP 400).
type invalidInputError struct{ msg string }

func (e invalidInputError) Error() string   { return e.msg }
func (e invalidInputError) StatusCode() int { return 400 }

// ErrInvalidInput constructs an invalidInputError.
func ErrInvalidInput(msg string) error { return invalidInputError{msg: msg} }

// IsInvalidInput reports whether err is an invalidInputError.
func IsInvalidInput(err error) bool {
	_, ok := err.(invalidInputError)
	return ok
}
