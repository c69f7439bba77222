/*
	Package program compiles one line of integer expression text into
	bytecode and runs it once per audio frame.

	A Program owns three things: its instructions, which never change after
	compilation; a flat memory of MemorySize cells, which persists between
	runs so expressions can count, accumulate phase and so on; and a small
	value stack, also persistent, which holds at most one value between runs.

	Variables are single letters. A letter reads the cell at its character
	code + 128, the same cell '@' reaches through raw address arithmetic,
	so the two forms alias freely. Two letters are control cells read by
	the waveform operators: 'r' the resolution and '~' the sample rate.
*/
package program

// Value is the single numeric type of the language.
type Value = int64

const (
	// MemorySize is the number of cells in a program's memory; all
	// addresses wrap modulo this.
	MemorySize = 64 * 1024

	// VarOffset biases a variable letter into its memory cell address.
	VarOffset = 128

	// DefaultSampleRate seeds the '~' cell so F works before a host sets it.
	DefaultSampleRate = 44100
)

// control cells
const (
	Resolution = 'r'
	SampleRate = '~'
	Time       = 't'
)

// Program is a compiled expression with its persistent memory and stack.
// A Program must only be run from one goroutine at a time.
type Program struct {
	ops   []Instruction
	mem   *[MemorySize]Value
	stack []Value // len is the capacity Run may use
	sp    int
}

func newProgram(ops []Instruction, peak int) *Program {
	p := &Program{
		ops:   ops,
		mem:   new([MemorySize]Value),
		stack: make([]Value, peak+1), // +1 for a value carried over from an aborted run
	}
	p.Set(SampleRate, DefaultSampleRate)
	return p
}

// InstructionCount is the number of compiled instructions.
func (p *Program) InstructionCount() int {
	return len(p.ops)
}

// Listing renders the bytecode one instruction per line.
func (p *Program) Listing() []string {
	l := make([]string, len(p.ops))
	for i, op := range p.ops {
		l[i] = op.String()
	}
	return l
}

// StackDepth is the number of values left on the stack by the last Run.
// It is never more than one.
func (p *Program) StackDepth() int {
	return p.sp
}

// MemorySize is exposed for display of memory capacity.
func (p *Program) MemorySize() int {
	return MemorySize
}

// Peek reads memory, wrapping the address into range.
func (p *Program) Peek(address Value) Value {
	return p.mem[wrap(address)]
}

// Poke writes memory, wrapping the address into range.
func (p *Program) Poke(address, v Value) {
	p.mem[wrap(address)] = v
}

// Get reads the cell of a variable letter.
func (p *Program) Get(variable byte) Value {
	return p.Peek(Value(variable) + VarOffset)
}

// Set writes the cell of a variable letter.
func (p *Program) Set(variable byte, v Value) {
	p.Poke(Value(variable)+VarOffset, v)
}

// PeekForDisplay reads memory for watch displays without touching program state.
func (p *Program) PeekForDisplay(address Value) Value {
	return p.Peek(address)
}

func wrap(address Value) Value {
	a := address % MemorySize
	if a < 0 {
		a += MemorySize
	}
	return a
}
