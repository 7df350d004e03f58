// Package repl implements the interactive session: read a line, parse
// it, run it on the selected engine and print the result. Line editing
// and history come from readline; output is colored unless configured
// off. Input buffers across lines until braces balance and the last
// token can end an expression, so a function literal can span lines.
package repl

import (
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"tarn/ast"
	"tarn/compiler"
	"tarn/config"
	"tarn/interpreter"
	"tarn/lexer"
	"tarn/object"
	"tarn/parser"
	"tarn/token"
	"tarn/vm"
)

const banner = `
 _
| |_ __ _ _ __ _ __
| __/ _' | '__| '_ \
| || (_| | |  | | | |
 \__\__,_|_|  |_| |_|
`

// Session is one interactive run. The eval engine keeps a single
// environment alive across lines; the vm engine keeps the constants
// pool, globals array and global symbol table.
type Session struct {
	cfg    *config.Config
	engine string
	out    io.Writer

	errColor    *color.Color
	resultColor *color.Color
	infoColor   *color.Color

	// eval engine state
	interp *interpreter.TreeWalkInterpreter
	env    *object.Environment

	// vm engine state
	constants []object.Object
	globals   []object.Object
	symbols   *compiler.SymbolTable
}

// New creates a session writing to out and executing on the given
// engine (config.EngineEval or config.EngineVM).
func New(cfg *config.Config, engine string, out io.Writer) *Session {
	s := &Session{
		cfg:         cfg,
		engine:      engine,
		out:         out,
		errColor:    color.New(color.FgRed),
		resultColor: color.New(color.FgYellow),
		infoColor:   color.New(color.FgCyan),
		interp:      interpreter.MakeWithWriter(out),
		env:         object.NewEnvironment(),
		globals:     make([]object.Object, cfg.VM.GlobalsSize),
	}

	symbols := compiler.NewSymbolTable()
	for i, name := range object.BuiltinNames {
		symbols.DefineBuiltin(i, name)
	}
	s.symbols = symbols

	if !cfg.REPL.ColorOutput {
		s.errColor.DisableColor()
		s.resultColor.DisableColor()
		s.infoColor.DisableColor()
	}
	return s
}

// Start runs the read-eval-print loop until end of input or ".exit".
func (s *Session) Start() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      s.cfg.REPL.Prompt,
		HistoryFile: s.cfg.REPL.HistoryFile,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	s.infoColor.Fprint(s.out, banner)
	s.infoColor.Fprintf(s.out, "engine: %s | type .exit to quit\n", s.engine)

	var buffer strings.Builder
	for {
		if buffer.Len() == 0 {
			rl.SetPrompt(s.cfg.REPL.Prompt)
		} else {
			rl.SetPrompt("... ")
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			buffer.Reset()
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if strings.TrimSpace(line) == ".exit" && buffer.Len() == 0 {
			return nil
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
		source := buffer.String()

		if !inputReady(source) {
			continue
		}
		buffer.Reset()
		s.Exec(source)
	}
}

// Exec parses and runs one complete input, printing diagnostics or the
// result value.
func (s *Session) Exec(source string) {
	program, p := parser.Parse(source)
	if !p.Ok() {
		for _, msg := range p.Errors() {
			s.errColor.Fprintln(s.out, msg)
		}
		return
	}

	switch s.engine {
	case config.EngineEval:
		s.execEval(program)
	default:
		s.execVM(program)
	}
}

func (s *Session) execEval(program *ast.Program) {
	result := s.interp.Evaluate(program, s.env)
	s.printResult(result)
}

func (s *Session) execVM(program *ast.Program) {
	c := compiler.NewWithState(s.symbols, s.constants)
	bytecode, err := c.Compile(program)
	if err != nil {
		s.errColor.Fprintln(s.out, err.Error())
		return
	}
	s.constants = bytecode.Constants

	if s.cfg.REPL.ShowBytecode {
		s.infoColor.Fprint(s.out, bytecode.Instructions.String())
	}

	machine := vm.NewWithGlobalsStore(bytecode, s.globals, vm.Options{
		StackSize: s.cfg.VM.StackSize,
		MaxFrames: s.cfg.VM.MaxFrames,
		Output:    s.out,
	})
	if err := machine.Run(); err != nil {
		s.errColor.Fprintln(s.out, err.Error())
		return
	}
	s.printResult(machine.LastPopped())
}

func (s *Session) printResult(result object.Object) {
	if result == nil {
		return
	}
	if result.Type() == object.ERROR_OBJ {
		s.errColor.Fprintln(s.out, result.Inspect())
		return
	}
	s.resultColor.Fprintln(s.out, result.Inspect())
}

// inputReady reports whether source forms a complete input: all
// delimiters balance, the last token can end an expression, and the
// input does not end in an if condition or a function parameter list
// still waiting for its block.
func inputReady(source string) bool {
	l := lexer.New(source)

	var tokens []token.Token
	for tok := l.NextToken(); tok.Type != token.EOF; tok = l.NextToken() {
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		return true
	}

	depth := 0
	for _, tok := range tokens {
		switch tok.Type {
		case token.LBRACE, token.LPAREN, token.LBRACKET:
			depth++
		case token.RBRACE, token.RPAREN, token.RBRACKET:
			depth--
		}
	}
	if depth > 0 {
		return false
	}

	if last := len(tokens) - 1; tokens[last].Type == token.RPAREN {
		open := 0
		for i := last; i >= 0; i-- {
			switch tokens[i].Type {
			case token.RPAREN:
				open++
			case token.LPAREN:
				open--
			}
			if open == 0 {
				if i > 0 && (tokens[i-1].Type == token.IF || tokens[i-1].Type == token.FUNCTION) {
					return false
				}
				break
			}
		}
	}

	switch tokens[len(tokens)-1].Type {
	case token.ASSIGN, token.PLUS, token.MINUS, token.ASTERISK, token.SLASH,
		token.BANG, token.EQ, token.NE, token.LT, token.LE, token.GT, token.GE,
		token.COMMA, token.COLON, token.LPAREN, token.LBRACE, token.LBRACKET,
		token.LET, token.RETURN, token.IF, token.ELSE, token.FUNCTION:
		return false
	}
	return true
}
