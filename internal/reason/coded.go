package reason

import (
	"errors"
	"fmt"
	"strings"
)

// codedError carries a stable code alongside an operator-facing message so a
// failure deep in a builder or provider surfaces with its intended code
// instead of the stage fallback.
type codedError struct {
	code Code
	msg  string
}

func (e *codedError) Error() string {
	if e.msg == "" {
		return string(e.code)
	}
	return string(e.code) + ": " + e.msg
}

// Errorf builds an error tagged with a stable code.
func Errorf(code Code, format string, args ...any) error {
	return &codedError{code: code, msg: fmt.Sprintf(format, args...)}
}

// CodeError wraps code alone, with no extra message.
func CodeError(code Code) error {
	return &codedError{code: code}
}

// SplitError is FromError plus the human detail that follows the code.
func SplitError(err error) (Code, string, bool) {
	code, ok := FromError(err)
	if !ok {
		return "", "", false
	}
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code, coded.msg, true
	}
	_, detail, _ := strings.Cut(err.Error(), ":")
	return code, strings.TrimSpace(detail), true
}

// FromError extracts a stable code from an error. It recognizes errors built
// with Errorf/CodeError anywhere in the chain, and plain errors whose message
// starts with "CODE" or "CODE: detail".
func FromError(err error) (Code, bool) {
	if err == nil {
		return "", false
	}
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code, true
	}
	text := err.Error()
	head, _, _ := strings.Cut(text, ":")
	head = strings.TrimSpace(head)
	if IsKnown(head) {
		return Code(head), true
	}
	return "", false
}
