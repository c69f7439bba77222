package program

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listing(t *testing.T, src string) string {
	t.Helper()
	p, err := Compile(src)
	require.NoError(t, err, src)
	return strings.Join(p.Listing(), "; ")
}

func TestCompileListing(t *testing.T) {
	for _, test := range []struct {
		src, ops string
	}{
		{"3+4", "NUM 3; NUM 4; ADD"},
		{"1+2*3", "NUM 1; NUM 2; NUM 3; MUL; ADD"},
		{"(1+2)*3", "NUM 1; NUM 2; ADD; NUM 3; MUL"},
		{"8-2-1", "NUM 8; NUM 2; SUB; NUM 1; SUB"},
		{"7/2%3", "NUM 7; NUM 2; DIV; NUM 3; MOD"},
		{"1|2^3&4", "NUM 1; NUM 2; NUM 3; NUM 4; AND; XOR; OR"},
		{"1+2<<1", "NUM 1; NUM 2; ADD; NUM 1; BSL"},
		{"1<2", "NUM 1; NUM 2; CLT"},
		{"1>2", "NUM 1; NUM 2; CGT"},
		{"8>>1", "NUM 8; NUM 1; BSR"},
		{"a", "NUM 225; PEK"},
		{"Z", "NUM 218; PEK"},
		{"@5", "NUM 5; PEK"},
		{"-$x", "NUM 248; PEK; SIN; NEG"},
		{"+5", "NUM 5"},
		{"#TFa", "NUM 225; PEK; FREQ; TRI; SQR"},
		{"--3", "NUM 3; NEG; NEG"},
		{"-(1+2)", "NUM 1; NUM 2; ADD; NEG"},
		{"a=1", "NUM 225; NUM 1; POK"},
		{"@300 = t", "NUM 300; NUM 244; PEK; POK"},
		{"[0]=5", "NUM 0; NUM 5; PUT"},
		{"[1] = [0]", "NUM 1; NUM 0; GET; PUT"},
		{"[*]=9", "NUM -1; NUM 9; PUT"},
		{"[(1+1)]", "NUM 1; NUM 1; ADD; GET"},
		{"c?1:2", "NUM 227; PEK; NUM 1; NUM 2; TRN"},
		{"c?a=1:b=2", "NUM 227; PEK; NUM 225; NUM 1; POK; NUM 226; NUM 2; POK; TRN"},
		{"a?b?1:2:3", "NUM 225; PEK; NUM 226; PEK; NUM 1; NUM 2; TRN; NUM 3; TRN"},
		{"t?1:2;", "NUM 244; PEK; NUM 1; NUM 2; TRN; POP"},
		{"1;2", "NUM 1; POP; NUM 2"},
		{" 1 ; 2 ; ", "NUM 1; POP; NUM 2; POP"},
		{"99999999999999999999", "NUM -1"},
		{"\t12\n", "NUM 12"},
		{"- 1", "NUM 1; NEG"},
		{"1 - - 2", "NUM 1; NUM 2; NEG; SUB"},
		{"t*- 3", "NUM 244; PEK; NUM 3; NEG; MUL"},
		{"[ 0]=5", "NUM 0; NUM 5; PUT"},
	} {
		assert.Equal(t, test.ops, listing(t, test.src), test.src)
	}
}

func TestCompileErrors(t *testing.T) {
	for _, test := range []struct {
		src  string
		kind CompileError
		pos  int
	}{
		{"(a;b)", IllegalStatementTermination, 2},
		{"c?(a;b):1", IllegalStatementTermination, 4},
		{"c?a;b:1", IllegalStatementTermination, 3},
		{"(1+2", MissingParen, 4},
		{"1+2)", MissingParen, 3},
		{"((1)", MissingParen, 4},
		{"5=4", IllegalAssignment, 2},
		{"=4", UnexpectedChar, 0},
		{"a=b=1", IllegalAssignment, 4},
		{"-a=1", IllegalAssignment, 3},
		{"1?2", UnexpectedChar, 3},
		{"1 + !", UnexpectedChar, 4},
		{"1 2", UnexpectedChar, 2},
		{"1;;", UnexpectedChar, 2},
		{"é", UnexpectedChar, 0},
		{"1]", UnexpectedChar, 1},
		{"- a", UnexpectedChar, 1},
		{"1 + - !", UnexpectedChar, 5},
	} {
		p, err := Compile(test.src)
		assert.Nil(t, p, test.src)
		var ce *CompileErr
		if assert.ErrorAs(t, err, &ce, test.src) {
			assert.Equal(t, test.kind, ce.Kind, test.src)
			assert.Equal(t, test.pos, ce.Pos, test.src)
		}
	}
}

func TestCompileNesting(t *testing.T) {
	deep := strings.Repeat("(", 300) + "1" + strings.Repeat(")", 300)
	_, err := Compile(deep)
	var ce *CompileErr
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, TooDeep, ce.Kind)

	_, err = CompileWith(deep, CompileOptions{MaxDepth: 1000})
	assert.NoError(t, err)

	_, err = CompileWith("(((1)))", CompileOptions{MaxDepth: 4})
	assert.NoError(t, err)
	_, err = CompileWith("((((1))))", CompileOptions{MaxDepth: 4})
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, TooDeep, ce.Kind)
	assert.Equal(t, 4, ce.Pos)

	ternaries := strings.Repeat("1?", 300) + "1" + strings.Repeat(":1", 300)
	_, err = Compile(ternaries)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, TooDeep, ce.Kind)
}

func TestCompileEmpty(t *testing.T) {
	for _, src := range []string{"", "   ", "\n"} {
		p, err := Compile(src)
		require.NoError(t, err)
		assert.Equal(t, 0, p.InstructionCount())
	}
}

func TestCompileStackPeak(t *testing.T) {
	for _, test := range []struct {
		src  string
		peak int
	}{
		{"1", 1},
		{"1+2", 2},
		{"1+(2+(3+4))", 4},
		{"a=1;b=2", 2},
		{"c?1:2", 3},
		{"[0]=5;[1]=[0]", 2},
	} {
		p, err := Compile(test.src)
		require.NoError(t, err)
		assert.Len(t, p.stack, test.peak+1, test.src)
	}
}

func TestErrorStrings(t *testing.T) {
	assert.Equal(t, "None", NoCompileError.String())
	assert.Equal(t, "Mismatched parens", MissingParen.String())
	assert.Equal(t, "Missing ]", MissingBracket.String())
	assert.Equal(t, "Unknown", CompileError(200).String())
	assert.Equal(t, "Divide by zero", DivideByZero.String())
	assert.Equal(t, "Empty program (instruction count is zero)", EmptyProgram.String())
	assert.Equal(t, "Unknown", RuntimeError(200).String())

	_, err := Compile("(1")
	assert.EqualError(t, err, "Mismatched parens at 2")
	assert.Equal(t, "Mismatched parens", ErrorString(err))
	assert.Equal(t, "Output access is out of bounds", ErrorString(PutOutOfBounds))
	assert.Equal(t, "None", ErrorString(nil))

}

func TestCodeEffects(t *testing.T) {
	for code := OpNUM; code < numCodes; code++ {
		pops, pushes := code.Effect()
		assert.NotEqual(t, pops+pushes, 0, code.String())
		assert.NotEmpty(t, mnemonics[code])
	}
	assert.Equal(t, "OP(99)", Code(99).String())
	assert.Equal(t, "NUM -1", Instruction{OpNUM, -1}.String())
	assert.Equal(t, "TRN", Instruction{Code: OpTRN}.String())
}
