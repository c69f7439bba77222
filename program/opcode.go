package program

import "strconv"

// Code is a single bytecode operation
type Code uint8

const (
	// no operands, result pushed
	OpNUM Code = iota // push literal

	// one operand popped, result pushed
	OpPEK  // memory read
	OpGET  // output channel read
	OpNEG  // negate
	OpSIN  // sine shaper
	OpSQR  // square shaper
	OpFREQ // semitone to frequency
	OpTRI  // triangle shaper

	// two operands popped, result pushed
	OpPOK // memory write
	OpPUT // output channel write
	OpMUL
	OpDIV
	OpMOD
	OpADD
	OpSUB
	OpBSL // shift left
	OpBSR // shift right
	OpAND
	OpOR
	OpXOR
	OpCLT // less than
	OpCGT // greater than

	// three operands popped, result pushed
	OpTRN // ternary select

	// one operand popped, kept as the candidate result
	OpPOP

	numCodes
)

var mnemonics = [numCodes]string{
	OpNUM:  "NUM",
	OpPEK:  "PEK",
	OpGET:  "GET",
	OpNEG:  "NEG",
	OpSIN:  "SIN",
	OpSQR:  "SQR",
	OpFREQ: "FREQ",
	OpTRI:  "TRI",
	OpPOK:  "POK",
	OpPUT:  "PUT",
	OpMUL:  "MUL",
	OpDIV:  "DIV",
	OpMOD:  "MOD",
	OpADD:  "ADD",
	OpSUB:  "SUB",
	OpBSL:  "BSL",
	OpBSR:  "BSR",
	OpAND:  "AND",
	OpOR:   "OR",
	OpXOR:  "XOR",
	OpCLT:  "CLT",
	OpCGT:  "CGT",
	OpTRN:  "TRN",
	OpPOP:  "POP",
}

func (c Code) String() string {
	if c < numCodes {
		return mnemonics[c]
	}
	return "OP(" + strconv.Itoa(int(c)) + ")"
}

// Effect reports how many values the operation pops from and pushes to the stack.
func (c Code) Effect() (pops, pushes int) {
	switch {
	case c == OpNUM:
		return 0, 1
	case c >= OpPEK && c <= OpTRI:
		return 1, 1
	case c >= OpPOK && c <= OpCGT:
		return 2, 1
	case c == OpTRN:
		return 3, 1
	case c == OpPOP:
		return 1, 0
	}
	return 0, 0
}

// Instruction is an opcode with its immediate value, only used by OpNUM.
type Instruction struct {
	Code  Code
	Value Value
}

func (i Instruction) String() string {
	if i.Code == OpNUM {
		return i.Code.String() + " " + strconv.FormatInt(i.Value, 10)
	}
	return i.Code.String()
}
