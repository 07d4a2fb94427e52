package parser

import "fmt"

// ErrorKind categorizes parse failures.
type ErrorKind int

const (
	// FormatError means the input is neither JSON nor YAML, or is not an object.
	FormatError ErrorKind = iota + 1
	// StructureError means the document parsed but could not be normalized,
	// e.g. an unresolvable $ref or a path item that is not an object.
	StructureError
)

func (k ErrorKind) String() string {
	switch k {
	case FormatError:
		return "format"
	case StructureError:
		return "structure"
	default:
		return "unknown"
	}
}

// ParseError is returned by SpecParser.Parse.
type ParseError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrFormat    = &ParseError{Kind: FormatError}
	ErrStructure = &ParseError{Kind: StructureError}
)

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is matches any ParseError of the same kind.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func formatError(message string, cause error) *ParseError {
	return &ParseError{Kind: FormatError, Message: message, Cause: cause}
}

func structureError(message string, cause error) *ParseError {
	return &ParseError{Kind: StructureError, Message: message, Cause: cause}
}
