package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"tarn/compiler"
	"tarn/object"
	"tarn/parser"
)

// buildCmd compiles a source file and writes the bytecode artifacts:
// <name>.tbc holds the instruction bytes hex-encoded, <name>.tbs the
// disassembly with the constants pool. Decoding the hex restores the
// instruction stream byte-exact.
type buildCmd struct{}

func (*buildCmd) Name() string     { return "build" }
func (*buildCmd) Synopsis() string { return "Compile a source file to bytecode artifacts" }
func (*buildCmd) Usage() string {
	return `build <file>:
  Compile Tarn code and write <name>.tbc (hex bytecode) and <name>.tbs (disassembly),
  where <name> is <file> without a trailing .tarn.
`
}

func (b *buildCmd) SetFlags(f *flag.FlagSet) {}

func (b *buildCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "build: no source file provided")
		return subcommands.ExitUsageError
	}
	sourcePath := args[0]

	bytecode, status := compileFile(sourcePath)
	if bytecode == nil {
		return status
	}

	base := strings.TrimSuffix(sourcePath, ".tarn")

	encoded := hex.EncodeToString(bytecode.Instructions)
	if err := os.WriteFile(base+".tbc", []byte(encoded+"\n"), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "build: writing bytecode: %v\n", err)
		return subcommands.ExitFailure
	}

	if err := os.WriteFile(base+".tbs", []byte(renderBytecode(bytecode)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "build: writing disassembly: %v\n", err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}

func compileFile(path string) (*compiler.Bytecode, subcommands.ExitStatus) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		return nil, subcommands.ExitFailure
	}

	program, p := parser.Parse(string(data))
	if !p.Ok() {
		for _, msg := range p.Errors() {
			fmt.Fprintln(os.Stderr, msg)
		}
		return nil, subcommands.ExitFailure
	}

	bytecode, err := compiler.New().Compile(program)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, subcommands.ExitFailure
	}
	return bytecode, subcommands.ExitSuccess
}

// renderBytecode formats the instruction stream and the constants pool,
// nesting the disassembly of compiled function constants.
func renderBytecode(bytecode *compiler.Bytecode) string {
	var b strings.Builder

	b.WriteString(bytecode.Instructions.String())
	fmt.Fprintf(&b, "constants: %d\n", len(bytecode.Constants))

	for i, constant := range bytecode.Constants {
		switch constant := constant.(type) {
		case *object.CompiledFunction:
			fmt.Fprintf(&b, "%04d %s locals=%d params=%d\n",
				i, constant.Type(), constant.NumLocals, constant.NumParameters)
			for _, line := range strings.Split(strings.TrimRight(compiler.Instructions(constant.Instructions).String(), "\n"), "\n") {
				fmt.Fprintf(&b, "     %s\n", line)
			}
		default:
			fmt.Fprintf(&b, "%04d %s %s\n", i, constant.Type(), constant.Inspect())
		}
	}

	return b.String()
}
