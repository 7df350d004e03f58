package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tarn/object"
	"tarn/parser"
)

// nullConst marks an expected constants-pool entry holding null.
type nullConst struct{}

type compilerTestCase struct {
	input                string
	expectedConstants    []interface{}
	expectedInstructions []Instructions
}

func runCompilerTests(t *testing.T, tests []compilerTestCase) {
	t.Helper()

	for _, tt := range tests {
		program, p := parser.Parse(tt.input)
		require.True(t, p.Ok(), "input %q: parser errors: %s", tt.input, p.ErrorMsg())

		bytecode, err := New().Compile(program)
		require.NoError(t, err, "input %q", tt.input)

		expected := concatInstructions(t, tt.expectedInstructions...)
		assert.Equal(t, expected.String(), bytecode.Instructions.String(), "input %q", tt.input)

		testConstants(t, tt.input, tt.expectedConstants, bytecode.Constants)
	}
}

func testConstants(t *testing.T, input string, expected []interface{}, actual []object.Object) {
	t.Helper()
	require.Len(t, actual, len(expected), "input %q: wrong number of constants", input)

	for i, constant := range expected {
		switch constant := constant.(type) {
		case int:
			integer, ok := actual[i].(*object.Integer)
			require.True(t, ok, "input %q: constant %d is %T", input, i, actual[i])
			assert.Equal(t, int64(constant), integer.Value)
		case string:
			str, ok := actual[i].(*object.String)
			require.True(t, ok, "input %q: constant %d is %T", input, i, actual[i])
			assert.Equal(t, constant, str.Value)
		case nullConst:
			_, ok := actual[i].(*object.Null)
			require.True(t, ok, "input %q: constant %d is %T, not null", input, i, actual[i])
		case []Instructions:
			fn, ok := actual[i].(*object.CompiledFunction)
			require.True(t, ok, "input %q: constant %d is %T", input, i, actual[i])
			expectedIns := concatInstructions(t, constant...)
			assert.Equal(t, expectedIns.String(), Instructions(fn.Instructions).String(),
				"input %q: constant %d", input, i)
		default:
			t.Fatalf("unhandled expected constant %T", constant)
		}
	}
}

func TestIntegerArithmetic(t *testing.T) {
	tests := []compilerTestCase{
		{
			input:             "1 + 2",
			expectedConstants: []interface{}{1, 2},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_ADD),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             "1; 2",
			expectedConstants: []interface{}{1, 2},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_POP),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             "1 - 2",
			expectedConstants: []interface{}{1, 2},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_SUB),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             "1 * 2",
			expectedConstants: []interface{}{1, 2},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_MUL),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             "2 / 1",
			expectedConstants: []interface{}{2, 1},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_DIV),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             "-1",
			expectedConstants: []interface{}{1},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_MINUS),
				mustAssemble(t, OP_POP),
			},
		},
	}

	runCompilerTests(t, tests)
}

func TestBooleanExpressions(t *testing.T) {
	tests := []compilerTestCase{
		{
			input:             "true",
			expectedConstants: []interface{}{},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_TRUE),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             "false",
			expectedConstants: []interface{}{},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_FALSE),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             "1 > 2",
			expectedConstants: []interface{}{1, 2},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_GREATER),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             "1 >= 2",
			expectedConstants: []interface{}{1, 2},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_GREATER_EQUAL),
				mustAssemble(t, OP_POP),
			},
		},
		{
			// the operands swap and OP_GREATER carries the comparison
			input:             "1 < 2",
			expectedConstants: []interface{}{2, 1},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_GREATER),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             "1 <= 2",
			expectedConstants: []interface{}{2, 1},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_GREATER_EQUAL),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             "1 == 2",
			expectedConstants: []interface{}{1, 2},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_EQUAL),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             "true != false",
			expectedConstants: []interface{}{},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_TRUE),
				mustAssemble(t, OP_FALSE),
				mustAssemble(t, OP_NOT_EQUAL),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             "!true",
			expectedConstants: []interface{}{},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_TRUE),
				mustAssemble(t, OP_BANG),
				mustAssemble(t, OP_POP),
			},
		},
	}

	runCompilerTests(t, tests)
}

func TestConditionals(t *testing.T) {
	tests := []compilerTestCase{
		{
			input:             "if (true) { 10 }; 3333;",
			expectedConstants: []interface{}{10, nullConst{}, 3333},
			expectedInstructions: []Instructions{
				// 0000
				mustAssemble(t, OP_TRUE),
				// 0001
				mustAssemble(t, OP_JUMP_NOT_TRUTHY, 10),
				// 0004
				mustAssemble(t, OP_CONSTANT, 0),
				// 0007
				mustAssemble(t, OP_JUMP, 13),
				// 0010, the missing alternative produces null
				mustAssemble(t, OP_CONSTANT, 1),
				// 0013
				mustAssemble(t, OP_POP),
				// 0014
				mustAssemble(t, OP_CONSTANT, 2),
				// 0017
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             "if (true) { 10 } else { 20 }; 3333;",
			expectedConstants: []interface{}{10, 20, 3333},
			expectedInstructions: []Instructions{
				// 0000
				mustAssemble(t, OP_TRUE),
				// 0001
				mustAssemble(t, OP_JUMP_NOT_TRUTHY, 10),
				// 0004
				mustAssemble(t, OP_CONSTANT, 0),
				// 0007
				mustAssemble(t, OP_JUMP, 13),
				// 0010
				mustAssemble(t, OP_CONSTANT, 1),
				// 0013
				mustAssemble(t, OP_POP),
				// 0014
				mustAssemble(t, OP_CONSTANT, 2),
				// 0017
				mustAssemble(t, OP_POP),
			},
		},
	}

	runCompilerTests(t, tests)
}

func TestGlobalLetStatements(t *testing.T) {
	tests := []compilerTestCase{
		{
			input: `let one = 1;
			let two = 2;`,
			expectedConstants: []interface{}{1, 2},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_SET_GLOBAL, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_SET_GLOBAL, 1),
			},
		},
		{
			input: `let one = 1;
			one;`,
			expectedConstants: []interface{}{1},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_SET_GLOBAL, 0),
				mustAssemble(t, OP_GET_GLOBAL, 0),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input: `let one = 1;
			let two = one;
			two;`,
			expectedConstants: []interface{}{1},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_SET_GLOBAL, 0),
				mustAssemble(t, OP_GET_GLOBAL, 0),
				mustAssemble(t, OP_SET_GLOBAL, 1),
				mustAssemble(t, OP_GET_GLOBAL, 1),
				mustAssemble(t, OP_POP),
			},
		},
	}

	runCompilerTests(t, tests)
}

func TestStringExpressions(t *testing.T) {
	tests := []compilerTestCase{
		{
			input:             `"monkey"`,
			expectedConstants: []interface{}{"monkey"},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             `"mon" + "key"`,
			expectedConstants: []interface{}{"mon", "key"},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_ADD),
				mustAssemble(t, OP_POP),
			},
		},
	}

	runCompilerTests(t, tests)
}

func TestArrayLiterals(t *testing.T) {
	tests := []compilerTestCase{
		{
			input:             "[]",
			expectedConstants: []interface{}{},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_ARRAY, 0),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             "[1, 2, 3]",
			expectedConstants: []interface{}{1, 2, 3},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_CONSTANT, 2),
				mustAssemble(t, OP_ARRAY, 3),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             "[1 + 2, 3 - 4, 5 * 6]",
			expectedConstants: []interface{}{1, 2, 3, 4, 5, 6},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_ADD),
				mustAssemble(t, OP_CONSTANT, 2),
				mustAssemble(t, OP_CONSTANT, 3),
				mustAssemble(t, OP_SUB),
				mustAssemble(t, OP_CONSTANT, 4),
				mustAssemble(t, OP_CONSTANT, 5),
				mustAssemble(t, OP_MUL),
				mustAssemble(t, OP_ARRAY, 3),
				mustAssemble(t, OP_POP),
			},
		},
	}

	runCompilerTests(t, tests)
}

func TestDictLiterals(t *testing.T) {
	tests := []compilerTestCase{
		{
			input:             "{}",
			expectedConstants: []interface{}{},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_HASH, 0),
				mustAssemble(t, OP_POP),
			},
		},
		{
			// pairs compile key then value, in source order
			input:             "{1: 2, 3: 4, 5: 6}",
			expectedConstants: []interface{}{1, 2, 3, 4, 5, 6},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_CONSTANT, 2),
				mustAssemble(t, OP_CONSTANT, 3),
				mustAssemble(t, OP_CONSTANT, 4),
				mustAssemble(t, OP_CONSTANT, 5),
				mustAssemble(t, OP_HASH, 6),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             "{1: 2 + 3, 4: 5 * 6}",
			expectedConstants: []interface{}{1, 2, 3, 4, 5, 6},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_CONSTANT, 2),
				mustAssemble(t, OP_ADD),
				mustAssemble(t, OP_CONSTANT, 3),
				mustAssemble(t, OP_CONSTANT, 4),
				mustAssemble(t, OP_CONSTANT, 5),
				mustAssemble(t, OP_MUL),
				mustAssemble(t, OP_HASH, 4),
				mustAssemble(t, OP_POP),
			},
		},
	}

	runCompilerTests(t, tests)
}

func TestIndexExpressions(t *testing.T) {
	tests := []compilerTestCase{
		{
			input:             "[1, 2, 3][1 + 1]",
			expectedConstants: []interface{}{1, 2, 3, 1, 1},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_CONSTANT, 2),
				mustAssemble(t, OP_ARRAY, 3),
				mustAssemble(t, OP_CONSTANT, 3),
				mustAssemble(t, OP_CONSTANT, 4),
				mustAssemble(t, OP_ADD),
				mustAssemble(t, OP_INDEX),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input:             "{1: 2}[2 - 1]",
			expectedConstants: []interface{}{1, 2, 2, 1},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_HASH, 2),
				mustAssemble(t, OP_CONSTANT, 2),
				mustAssemble(t, OP_CONSTANT, 3),
				mustAssemble(t, OP_SUB),
				mustAssemble(t, OP_INDEX),
				mustAssemble(t, OP_POP),
			},
		},
	}

	runCompilerTests(t, tests)
}

func TestFunctions(t *testing.T) {
	tests := []compilerTestCase{
		{
			input: "fn() { return 5 + 10 }",
			expectedConstants: []interface{}{
				5,
				10,
				[]Instructions{
					mustAssemble(t, OP_CONSTANT, 0),
					mustAssemble(t, OP_CONSTANT, 1),
					mustAssemble(t, OP_ADD),
					mustAssemble(t, OP_RETURN_VALUE),
				},
			},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CLOSURE, 2, 0),
				mustAssemble(t, OP_POP),
			},
		},
		{
			// an expression in tail position returns implicitly
			input: "fn() { 5 + 10 }",
			expectedConstants: []interface{}{
				5,
				10,
				[]Instructions{
					mustAssemble(t, OP_CONSTANT, 0),
					mustAssemble(t, OP_CONSTANT, 1),
					mustAssemble(t, OP_ADD),
					mustAssemble(t, OP_RETURN_VALUE),
				},
			},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CLOSURE, 2, 0),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input: "fn() { 1; 2 }",
			expectedConstants: []interface{}{
				1,
				2,
				[]Instructions{
					mustAssemble(t, OP_CONSTANT, 0),
					mustAssemble(t, OP_POP),
					mustAssemble(t, OP_CONSTANT, 1),
					mustAssemble(t, OP_RETURN_VALUE),
				},
			},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CLOSURE, 2, 0),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input: "fn() { }",
			expectedConstants: []interface{}{
				[]Instructions{
					mustAssemble(t, OP_RETURN),
				},
			},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CLOSURE, 0, 0),
				mustAssemble(t, OP_POP),
			},
		},
	}

	runCompilerTests(t, tests)
}

func TestFunctionCalls(t *testing.T) {
	tests := []compilerTestCase{
		{
			input: "fn() { 24 }();",
			expectedConstants: []interface{}{
				24,
				[]Instructions{
					mustAssemble(t, OP_CONSTANT, 0),
					mustAssemble(t, OP_RETURN_VALUE),
				},
			},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CLOSURE, 1, 0),
				mustAssemble(t, OP_CALL, 0),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input: `let oneArg = fn(a) { a };
			oneArg(24);`,
			expectedConstants: []interface{}{
				[]Instructions{
					mustAssemble(t, OP_GET_LOCAL, 0),
					mustAssemble(t, OP_RETURN_VALUE),
				},
				24,
			},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CLOSURE, 0, 0),
				mustAssemble(t, OP_SET_GLOBAL, 0),
				mustAssemble(t, OP_GET_GLOBAL, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_CALL, 1),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input: `let manyArg = fn(a, b, c) { a; b; c };
			manyArg(24, 25, 26);`,
			expectedConstants: []interface{}{
				[]Instructions{
					mustAssemble(t, OP_GET_LOCAL, 0),
					mustAssemble(t, OP_POP),
					mustAssemble(t, OP_GET_LOCAL, 1),
					mustAssemble(t, OP_POP),
					mustAssemble(t, OP_GET_LOCAL, 2),
					mustAssemble(t, OP_RETURN_VALUE),
				},
				24,
				25,
				26,
			},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CLOSURE, 0, 0),
				mustAssemble(t, OP_SET_GLOBAL, 0),
				mustAssemble(t, OP_GET_GLOBAL, 0),
				mustAssemble(t, OP_CONSTANT, 1),
				mustAssemble(t, OP_CONSTANT, 2),
				mustAssemble(t, OP_CONSTANT, 3),
				mustAssemble(t, OP_CALL, 3),
				mustAssemble(t, OP_POP),
			},
		},
	}

	runCompilerTests(t, tests)
}

func TestLetStatementScopes(t *testing.T) {
	tests := []compilerTestCase{
		{
			input: `let num = 55;
			fn() { num }`,
			expectedConstants: []interface{}{
				55,
				[]Instructions{
					mustAssemble(t, OP_GET_GLOBAL, 0),
					mustAssemble(t, OP_RETURN_VALUE),
				},
			},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_SET_GLOBAL, 0),
				mustAssemble(t, OP_CLOSURE, 1, 0),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input: "fn() { let num = 55; num }",
			expectedConstants: []interface{}{
				55,
				[]Instructions{
					mustAssemble(t, OP_CONSTANT, 0),
					mustAssemble(t, OP_SET_LOCAL, 0),
					mustAssemble(t, OP_GET_LOCAL, 0),
					mustAssemble(t, OP_RETURN_VALUE),
				},
			},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CLOSURE, 1, 0),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input: "fn() { let a = 55; let b = 77; a + b }",
			expectedConstants: []interface{}{
				55,
				77,
				[]Instructions{
					mustAssemble(t, OP_CONSTANT, 0),
					mustAssemble(t, OP_SET_LOCAL, 0),
					mustAssemble(t, OP_CONSTANT, 1),
					mustAssemble(t, OP_SET_LOCAL, 1),
					mustAssemble(t, OP_GET_LOCAL, 0),
					mustAssemble(t, OP_GET_LOCAL, 1),
					mustAssemble(t, OP_ADD),
					mustAssemble(t, OP_RETURN_VALUE),
				},
			},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CLOSURE, 2, 0),
				mustAssemble(t, OP_POP),
			},
		},
	}

	runCompilerTests(t, tests)
}

func TestBuiltins(t *testing.T) {
	tests := []compilerTestCase{
		{
			input:             "len([]); push([], 1);",
			expectedConstants: []interface{}{1},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_GET_BUILTIN, 0),
				mustAssemble(t, OP_ARRAY, 0),
				mustAssemble(t, OP_CALL, 1),
				mustAssemble(t, OP_POP),
				mustAssemble(t, OP_GET_BUILTIN, 5),
				mustAssemble(t, OP_ARRAY, 0),
				mustAssemble(t, OP_CONSTANT, 0),
				mustAssemble(t, OP_CALL, 2),
				mustAssemble(t, OP_POP),
			},
		},
		{
			input: "fn() { len([]) }",
			expectedConstants: []interface{}{
				[]Instructions{
					mustAssemble(t, OP_GET_BUILTIN, 0),
					mustAssemble(t, OP_ARRAY, 0),
					mustAssemble(t, OP_CALL, 1),
					mustAssemble(t, OP_RETURN_VALUE),
				},
			},
			expectedInstructions: []Instructions{
				mustAssemble(t, OP_CLOSURE, 0, 0),
				mustAssemble(t, OP_POP),
			},
		},
	}

	runCompilerTests(t, tests)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		input         string
		expectedError string
	}{
		{"foobar", "undefined variable: foobar"},
		{"fn() { undefinedInside }", "undefined variable: undefinedInside"},
		// the closure format carries no free variables, so an enclosing
		// function's locals are out of reach
		{"fn(a) { fn() { a } }", "cannot capture local a in a nested function"},
		{"fn() { let x = 1; fn() { x } }", "cannot capture local x in a nested function"},
	}

	for _, tt := range tests {
		program, p := parser.Parse(tt.input)
		require.True(t, p.Ok())

		_, err := New().Compile(program)
		require.Error(t, err, "input %q", tt.input)
		assert.Equal(t, tt.expectedError, err.Error())
	}
}

// A LetStatement defines its symbol before the value compiles, so a
// function can call itself through the name being bound.
func TestRecursiveLet(t *testing.T) {
	program, p := parser.Parse("let f = fn(x) { f(x) }; f(1);")
	require.True(t, p.Ok())

	_, err := New().Compile(program)
	assert.NoError(t, err)
}

func TestCompilerScopes(t *testing.T) {
	c := New()
	require.Equal(t, 0, c.scopeIndex)
	globalTable := c.symbolTable

	c.emit(OP_MUL)

	c.enterScope()
	require.Equal(t, 1, c.scopeIndex)
	assert.Same(t, globalTable, c.symbolTable.outer, "enterScope must enclose the symbol table")

	c.emit(OP_SUB)
	assert.Len(t, c.currentInstructions(), 1)
	assert.Equal(t, OP_SUB, c.scopes[c.scopeIndex].lastInstruction.Opcode)

	c.leaveScope()
	require.Equal(t, 0, c.scopeIndex)
	assert.Same(t, globalTable, c.symbolTable, "leaveScope must restore the symbol table")

	c.emit(OP_ADD)
	assert.Len(t, c.currentInstructions(), 2)
	assert.Equal(t, OP_ADD, c.scopes[c.scopeIndex].lastInstruction.Opcode)
	assert.Equal(t, OP_MUL, c.scopes[c.scopeIndex].previousInstruction.Opcode)
}

// A fresh compiler seeded with a previous run's state resolves names
// defined in that run, the way the REPL re-enters compilation.
func TestNewWithStateSharesSymbols(t *testing.T) {
	first := New()
	program, p := parser.Parse("let x = 5;")
	require.True(t, p.Ok())
	bytecode, err := first.Compile(program)
	require.NoError(t, err)

	second := NewWithState(first.SymbolTable(), bytecode.Constants)
	program, p = parser.Parse("x + 1")
	require.True(t, p.Ok())
	bytecode, err = second.Compile(program)
	require.NoError(t, err)

	expected := concatInstructions(t,
		mustAssemble(t, OP_GET_GLOBAL, 0),
		mustAssemble(t, OP_CONSTANT, 1),
		mustAssemble(t, OP_ADD),
		mustAssemble(t, OP_POP),
	)
	assert.Equal(t, expected.String(), bytecode.Instructions.String())
	testConstants(t, "x + 1", []interface{}{5, 1}, bytecode.Constants)
}
