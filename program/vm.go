package program

import "math"

// Run executes the program once, reading from and writing to channels.
// Run never allocates or blocks, so it is safe to call from an audio callback.
//
// A POP keeps the value it discards as the result. Unless the program
// writes a channel explicitly the result is copied to every channel. The
// first instruction to fail stops the run; channels the program did not
// write are then set to zero. Whatever happens, at most one value is left
// on the stack for the next run.
func (p *Program) Run(channels []Value) RuntimeError {
	if len(p.ops) == 0 {
		return EmptyProgram
	}
	var (
		rr     RuntimeError
		result Value
		didPut bool
		base   = p.sp // a value left by an aborted run sits below this one
	)
	for i := 0; i < len(p.ops) && rr == NoRuntimeError; i++ {
		op := p.ops[i]
		if op.Code == OpPOP {
			if p.sp > base {
				p.sp--
				result = p.stack[p.sp]
			} else {
				rr = InconsistentStack
			}
			continue
		}
		didPut = didPut || op.Code == OpPUT
		rr = p.exec(op, channels)
	}

	switch {
	case rr == NoRuntimeError:
		// one value when the program ends in an expression, none when it ends in ';'
		switch n := p.sp - base; {
		case n == 1:
			p.sp--
			result = p.stack[p.sp]
		case n > 1:
			rr = InconsistentStack
		}
		if !didPut {
			for i := range channels {
				channels[i] = result
			}
		}
	case !didPut:
		for i := range channels {
			channels[i] = 0
		}
	}

	if p.sp > 1 {
		p.sp = 1
	}
	return rr
}

func (p *Program) push(v Value) RuntimeError {
	if p.sp == len(p.stack) {
		return InconsistentStack
	}
	p.stack[p.sp] = v
	p.sp++
	return NoRuntimeError
}

func (p *Program) pop() Value {
	p.sp--
	return p.stack[p.sp]
}

// exec performs one instruction other than POP
func (p *Program) exec(op Instruction, channels []Value) RuntimeError {
	pops, _ := op.Code.Effect()
	if p.sp < pops {
		return MissingOperand
	}
	var (
		a, b, c Value
		rr      RuntimeError
	)
	switch pops {
	case 1:
		a = p.pop()
	case 2:
		b, a = p.pop(), p.pop()
	case 3:
		c, b, a = p.pop(), p.pop(), p.pop()
	}

	var v Value
	switch op.Code {
	case OpNUM:
		v = op.Value

	case OpPEK:
		v = p.Peek(a)

	case OpGET:
		if a >= 0 && a < Value(len(channels)) {
			v = channels[a]
		} else {
			rr = GetOutOfBounds
		}

	case OpNEG:
		v = -a

	case OpSIN:
		v, rr = p.sine(a)

	case OpSQR:
		v, rr = p.square(a)

	case OpFREQ:
		v, rr = p.frequency(a)

	case OpTRI:
		v, rr = p.triangle(a)

	case OpPOK:
		p.Poke(a, b)
		v = b

	case OpPUT:
		switch {
		case a == -1:
			for i := range channels {
				channels[i] = b
			}
		case a >= 0 && a < Value(len(channels)):
			channels[a] = b
		default:
			rr = PutOutOfBounds
		}
		v = b

	case OpMUL:
		v = a * b

	case OpDIV:
		if b != 0 {
			v = a / b
		} else {
			rr = DivideByZero
		}

	case OpMOD:
		if b != 0 {
			v = a % b
		} else {
			rr = ModuloByZero
		}

	case OpADD:
		v = a + b

	case OpSUB:
		v = a - b

	case OpBSL:
		v = a << (uint64(b) & 63)

	case OpBSR:
		v = a >> (uint64(b) & 63)

	case OpAND:
		v = a & b

	case OpOR:
		v = a | b

	case OpXOR:
		v = a ^ b

	case OpCLT:
		v = boolValue(a < b)

	case OpCGT:
		v = boolValue(a > b)

	case OpTRN:
		if a != 0 {
			v = b
		} else {
			v = c
		}

	default:
		return MissingOpcode
	}

	if pushed := p.push(v); pushed != NoRuntimeError {
		return pushed
	}
	return rr
}

func boolValue(b bool) Value {
	if b {
		return 1
	}
	return 0
}

// waveform shapers, scaled by the resolution cell

func (p *Program) sine(a Value) (Value, RuntimeError) {
	r := p.Get(Resolution)
	hr := r / 2
	r++
	if r == 0 {
		return 0, DivideByZero
	}
	s := math.Sin(2 * math.Pi * (float64(a%r) / float64(r)))
	return Value(math.Round(s*float64(hr) + float64(hr))), NoRuntimeError
}

func (p *Program) square(a Value) (Value, RuntimeError) {
	r := p.Get(Resolution)
	if r == 0 {
		return 0, ModuloByZero
	}
	m := a % r
	if m < 0 {
		m += r
	}
	if m < r/2 {
		return 0, NoRuntimeError
	}
	return r - 1, NoRuntimeError
}

// frequency converts a semitone number to a phase increment at the current sample rate
func (p *Program) frequency(a Value) (Value, RuntimeError) {
	if a == 0 {
		return 0, NoRuntimeError
	}
	sr := p.Get(SampleRate)
	if sr == 0 {
		return 0, DivideByZero
	}
	f := 3 * math.Pow(2, float64(a)/12) * (DefaultSampleRate / float64(sr))
	return Value(math.Round(f)), NoRuntimeError
}

// triangle folds the doubled input, rising on odd periods of r and falling on even ones
func (p *Program) triangle(a Value) (Value, RuntimeError) {
	a *= 2
	r := p.Get(Resolution)
	if r == 0 {
		return 0, DivideByZero
	}
	// floored period and remainder, so negative input folds the same way
	m := a % r
	if m < 0 {
		m += r
	}
	if ((a-m)/r)%2 != 0 {
		return m, NoRuntimeError
	}
	return r - m - 1, NoRuntimeError
}
