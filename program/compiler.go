package program

import (
	"math"
	"strconv"
)

// DefaultMaxDepth bounds nesting of parens and ternary arms.
const DefaultMaxDepth = 256

// CompileOptions tune compilation. The zero value uses the defaults.
type CompileOptions struct {
	MaxDepth int
}

// Compile turns source text into a Program. On failure the error is a
// *CompileErr and no Program is returned.
func Compile(source string) (*Program, error) {
	return CompileWith(source, CompileOptions{})
}

// CompileWith is Compile with options.
func CompileWith(source string, opts CompileOptions) (*Program, error) {
	c := compiler{source: source, maxDepth: opts.MaxDepth}
	if c.maxDepth <= 0 {
		c.maxDepth = DefaultMaxDepth
	}
	err := c.parse()
	if err == nil {
		// everything must be consumed and parens balanced
		switch {
		case c.parens != 0 || c.char() == ')':
			err = c.fail(MissingParen)
		case c.char() != 0:
			err = c.fail(UnexpectedChar)
		}
	}
	if err != nil {
		return nil, err
	}
	return newProgram(c.ops, c.peak), nil
}

// compiler is the state of one compilation, discarded afterwards
type compiler struct {
	source   string
	pos      int
	parens   int
	depth    int // statement nesting, 1 at top level
	nesting  int // recursion through parens and ternary arms
	maxDepth int
	ops      []Instruction
	height   int // stack height after ops, ignoring aborts
	peak     int
}

func (c *compiler) char() byte {
	if c.pos < len(c.source) {
		return c.source[c.pos]
	}
	return 0
}

func (c *compiler) skipSpace() {
	for isSpace(c.char()) {
		c.pos++
	}
}

func (c *compiler) fail(kind CompileError) error {
	return &CompileErr{Kind: kind, Pos: c.pos}
}

func (c *compiler) emit(code Code, v Value) {
	c.ops = append(c.ops, Instruction{code, v})
	pops, pushes := code.Effect()
	c.height += pushes - pops
	if c.height > c.peak {
		c.peak = c.height
	}
}

// unemit removes the last instruction and returns its code
func (c *compiler) unemit() Code {
	code := c.ops[len(c.ops)-1].Code
	c.ops = c.ops[:len(c.ops)-1]
	pops, pushes := code.Effect()
	c.height -= pushes - pops
	return code
}

func (c *compiler) last() (Code, bool) {
	if len(c.ops) == 0 {
		return 0, false
	}
	return c.ops[len(c.ops)-1].Code, true
}

// parse compiles a sequence of ';' separated statements. It is re-entered
// for parenthesised groups, where ';' is not allowed.
func (c *compiler) parse() error {
	c.depth++
	defer func() { c.depth-- }()
	if err := c.enter(); err != nil {
		return err
	}
	defer c.leave()
	for c.char() != 0 {
		if err := c.parseAssignment(); err != nil {
			return err
		}
		c.skipSpace()
		if c.char() != ';' {
			return nil
		}
		// a POP inside a nested construct would leave its operands short
		if c.depth != 1 {
			return c.fail(IllegalStatementTermination)
		}
		c.pos++
		c.emit(OpPOP, 0)
		c.skipSpace()
	}
	return nil
}

func (c *compiler) enter() error {
	c.nesting++
	if c.nesting > c.maxDepth {
		return c.fail(TooDeep)
	}
	return nil
}

func (c *compiler) leave() {
	c.nesting--
}

func (c *compiler) parseAssignment() error {
	if err := c.parseTernary(); err != nil {
		return err
	}
	for {
		c.skipSpace()
		if c.char() != '=' {
			return nil
		}
		c.pos++
		// the address of the read is still on the stack once the read is
		// removed, so it becomes the address of the write
		code, ok := c.last()
		if !ok || (code != OpPEK && code != OpGET) {
			return c.fail(IllegalAssignment)
		}
		c.unemit()
		if err := c.parseTernary(); err != nil {
			return err
		}
		if code == OpPEK {
			c.emit(OpPOK, 0)
		} else {
			c.emit(OpPUT, 0)
		}
	}
}

// parseTernary emits both arms unconditionally, TRN selects between them.
// An arm is a single expression, so a ';' ends the whole statement.
func (c *compiler) parseTernary() error {
	if err := c.parseOr(); err != nil {
		return err
	}
	for {
		c.skipSpace()
		if c.char() != '?' {
			return nil
		}
		c.pos++
		if err := c.parseArm(); err != nil {
			return err
		}
		c.skipSpace()
		switch c.char() {
		case ':':
			c.pos++
		case ';':
			return c.fail(IllegalStatementTermination)
		default:
			return c.fail(UnexpectedChar)
		}
		// arms are single expressions and never end in a POP
		if err := c.parseArm(); err != nil {
			return err
		}
		c.emit(OpTRN, 0)
	}
}

func (c *compiler) parseArm() error {
	if err := c.enter(); err != nil {
		return err
	}
	defer c.leave()
	return c.parseAssignment()
}

// binary compiles a left-associative run of operators at one level.
// ops maps operator characters to their codes.
func (c *compiler) binary(next func() error, ops map[byte]Code) error {
	if err := next(); err != nil {
		return err
	}
	for {
		c.skipSpace()
		code, ok := ops[c.char()]
		if !ok {
			return nil
		}
		c.pos++
		if err := next(); err != nil {
			return err
		}
		c.emit(code, 0)
	}
}

var (
	orOps      = map[byte]Code{'|': OpOR}
	xorOps     = map[byte]Code{'^': OpXOR}
	andOps     = map[byte]Code{'&': OpAND}
	sumOps     = map[byte]Code{'+': OpADD, '-': OpSUB}
	productOps = map[byte]Code{'*': OpMUL, '/': OpDIV, '%': OpMOD}
)

func (c *compiler) parseOr() error  { return c.binary(c.parseXor, orOps) }
func (c *compiler) parseXor() error { return c.binary(c.parseAnd, xorOps) }
func (c *compiler) parseAnd() error { return c.binary(c.parseCompareOrShift, andOps) }

func (c *compiler) parseSum() error     { return c.binary(c.parseProduct, sumOps) }
func (c *compiler) parseProduct() error { return c.binary(c.parseAtom, productOps) }

// parseCompareOrShift tells << and >> from < and > by looking one character ahead
func (c *compiler) parseCompareOrShift() error {
	if err := c.parseSum(); err != nil {
		return err
	}
	for {
		c.skipSpace()
		op := c.char()
		if op != '<' && op != '>' {
			return nil
		}
		c.pos++
		shift := c.char() == op
		if shift {
			c.pos++
		}
		if err := c.parseSum(); err != nil {
			return err
		}
		switch {
		case shift && op == '<':
			c.emit(OpBSL, 0)
		case shift:
			c.emit(OpBSR, 0)
		case op == '<':
			c.emit(OpCLT, 0)
		default:
			c.emit(OpCGT, 0)
		}
	}
}

var prefixOps = map[byte]Code{
	'-': OpNEG,
	'$': OpSIN,
	'#': OpSQR,
	'F': OpFREQ,
	'T': OpTRI,
	'@': OpPEK,
	'[': OpGET,
}

func (c *compiler) parseAtom() error {
	c.skipSpace()

	// prefixes apply innermost first, the one nearest the operand runs first
	var (
		unary    []Code
		brackets int
	)
	for op := c.char(); op == '+' || prefixOps[op] != 0; op = c.char() {
		if op == '[' {
			brackets++
		}
		if op != '+' {
			unary = append(unary, prefixOps[op])
		}
		c.pos++
	}

	switch ch := c.char(); {
	case ch == '(':
		c.pos++
		c.parens++
		if err := c.parse(); err != nil {
			return err
		}
		if c.char() != ')' {
			return c.fail(MissingParen)
		}
		c.pos++
		c.parens--
	case ch == '*' && c.pos > 0 && c.source[c.pos-1] == '[':
		// [*] addresses every channel
		c.pos++
		c.emit(OpNUM, -1)
	case isAlpha(ch):
		c.emit(OpNUM, Value(ch)+VarOffset)
		c.emit(OpPEK, 0)
		c.pos++
	default:
		// like strtoull, blanks before the digits are allowed and a
		// failed literal is reported where it started
		start := c.pos
		c.skipSpace()
		digits := c.pos
		for isDigit(c.char()) {
			c.pos++
		}
		if c.pos == digits {
			c.pos = start
			return c.fail(UnexpectedChar)
		}
		c.emit(OpNUM, parseLiteral(c.source[digits:c.pos]))
	}

	for i := len(unary) - 1; i >= 0; i-- {
		c.emit(unary[i], 0)
	}
	for ; brackets > 0; brackets-- {
		c.skipSpace()
		if c.char() != ']' {
			break
		}
		c.pos++
	}
	return nil
}

// parseLiteral saturates like strtoull, so overlong literals become -1
func parseLiteral(digits string) Value {
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		n = math.MaxUint64
	}
	return Value(n)
}

func isSpace(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isAlpha(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
