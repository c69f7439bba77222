package program

import "fmt"

// CompileError is the structural failure reported by Compile.
type CompileError uint8

const (
	NoCompileError CompileError = iota
	MissingParen
	UnexpectedChar
	IllegalAssignment
	MissingBracket // reserved, the compiler accepts an unclosed [
	IllegalStatementTermination
	TooDeep
)

func (e CompileError) String() string {
	switch e {
	case NoCompileError:
		return "None"
	case MissingParen:
		return "Mismatched parens"
	case UnexpectedChar:
		return "Unexpected character"
	case IllegalAssignment:
		return "Left side of = must be assignable (a variable or address)"
	case MissingBracket:
		return "Missing ]"
	case IllegalStatementTermination:
		return "Illegal statement termination.\nSemi-colon may not appear within parens or ternary operators."
	case TooDeep:
		return "Expression is nested too deeply"
	}
	return "Unknown"
}

// CompileErr is returned by Compile and locates the failing token.
type CompileErr struct {
	Kind CompileError
	Pos  int // byte offset into the source
}

func (e *CompileErr) Error() string {
	return fmt.Sprintf("%s at %d", e.Kind, e.Pos)
}

// RuntimeError is the status of a single Run. None of these are fatal.
type RuntimeError uint8

const (
	NoRuntimeError RuntimeError = iota
	DivideByZero
	ModuloByZero
	MissingOperand
	MissingOpcode
	InconsistentStack
	EmptyProgram
	GetOutOfBounds
	PutOutOfBounds

	numRuntimeErrors
)

// RuntimeErrorKinds sizes tables indexed by RuntimeError.
const RuntimeErrorKinds = int(numRuntimeErrors)

func (e RuntimeError) String() string {
	switch e {
	case NoRuntimeError:
		return "None"
	case DivideByZero:
		return "Divide by zero"
	case ModuloByZero:
		return "Modulo by zero"
	case MissingOperand:
		return "Missing operand"
	case MissingOpcode:
		return "Unimplemented opcode"
	case InconsistentStack:
		return "Inconsistent stack"
	case EmptyProgram:
		return "Empty program (instruction count is zero)"
	case GetOutOfBounds:
		return "Input access is out of bounds"
	case PutOutOfBounds:
		return "Output access is out of bounds"
	}
	return "Unknown"
}

func (e RuntimeError) Error() string { return e.String() }

// RuntimeErrors lists every runtime status, NoRuntimeError included.
func RuntimeErrors() []RuntimeError {
	all := make([]RuntimeError, numRuntimeErrors)
	for i := range all {
		all[i] = RuntimeError(i)
	}
	return all
}

// ErrorString gives the display text for a compile or runtime error.
// Any other error falls back to its Error text.
func ErrorString(err error) string {
	switch e := err.(type) {
	case nil:
		return NoCompileError.String()
	case *CompileErr:
		return e.Kind.String()
	case RuntimeError:
		return e.String()
	}
	return err.Error()
}
